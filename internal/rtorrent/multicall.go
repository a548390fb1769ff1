package rtorrent

import (
	"context"
	"fmt"

	"github.com/got3nks/amutorrent-sub002/internal/xmlrpc"
)

// call names one daemon method with its positional arguments, for batching
// through system.multicall.
type call struct {
	method string
	args   []any
}

// callResult is one element of a batched response. Exactly one of Value and
// Fault is meaningful; a per-call fault never fails its siblings.
type callResult struct {
	Value any
	Fault *xmlrpc.Fault
}

// multicall submits every call in one system.multicall round trip and
// returns results in input order. The batching is the gateway's main
// performance lever: N torrents worth of detail queries cost one round trip
// instead of N. An empty batch returns immediately without touching the
// network.
func (c *Client) multicall(ctx context.Context, calls []call) ([]callResult, error) {
	if len(calls) == 0 {
		return []callResult{}, nil
	}

	payload := make([]any, 0, len(calls))
	for _, cl := range calls {
		args := cl.args
		if args == nil {
			args = []any{}
		}
		payload = append(payload, map[string]any{
			"methodName": cl.method,
			"params":     args,
		})
	}

	raw, err := c.caller.Call(ctx, "system.multicall", payload)
	if err != nil {
		return nil, err
	}

	elements, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected multicall response type %T", raw)
	}
	if len(elements) != len(calls) {
		return nil, fmt.Errorf("multicall returned %d results for %d calls", len(elements), len(calls))
	}

	results := make([]callResult, len(elements))
	for i, el := range elements {
		switch t := el.(type) {
		case []any:
			// Success elements arrive wrapped in a single-element array.
			if len(t) == 1 {
				results[i] = callResult{Value: t[0]}
			} else {
				results[i] = callResult{Value: t}
			}
		case map[string]any:
			fault := &xmlrpc.Fault{}
			if code, ok := t["faultCode"].(int64); ok {
				fault.Code = int(code)
			}
			if msg, ok := t["faultString"].(string); ok {
				fault.String = msg
			}
			results[i] = callResult{Fault: fault}
		default:
			results[i] = callResult{Value: el}
		}
	}
	return results, nil
}
