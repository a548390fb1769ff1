package xmlrpc

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Fault is a method-level error reported by the daemon. The call reached it
// and was rejected; this is distinct from a transport failure.
type Fault struct {
	Code   int
	String string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("fault %d: %s", f.Code, f.String)
}

type methodResponse struct {
	XMLName xml.Name        `xml:"methodResponse"`
	Params  []responseParam `xml:"params>param"`
	Fault   *responseValue  `xml:"fault>value"`
}

type responseParam struct {
	Value responseValue `xml:"value"`
}

// responseValue mirrors the wire schema: exactly one typed child element, or
// bare character data which XML-RPC defines as a string.
type responseValue struct {
	Raw      string          `xml:",chardata"`
	I4       *string         `xml:"i4"`
	Int      *string         `xml:"int"`
	I8       *string         `xml:"i8"`
	Boolean  *string         `xml:"boolean"`
	Str      *string         `xml:"string"`
	Double   *string         `xml:"double"`
	Base64   *string         `xml:"base64"`
	DateTime *string         `xml:"dateTime.iso8601"`
	Array    *responseArray  `xml:"array"`
	Struct   *responseStruct `xml:"struct"`
}

type responseArray struct {
	Values []responseValue `xml:"data>value"`
}

type responseStruct struct {
	Members []responseMember `xml:"member"`
}

type responseMember struct {
	Name  string        `xml:"name"`
	Value responseValue `xml:"value"`
}

// parseResponse decodes a full <methodResponse> body into the call's result
// value, or into a *Fault error when the daemon rejected the call.
func parseResponse(data []byte) (any, error) {
	var resp methodResponse
	if err := xml.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Fault != nil {
		return nil, decodeFault(resp.Fault)
	}
	if len(resp.Params) == 0 {
		return nil, nil
	}
	return decodeValue(&resp.Params[0].Value)
}

func decodeFault(v *responseValue) error {
	decoded, err := decodeValue(v)
	if err != nil {
		return fmt.Errorf("failed to parse fault: %w", err)
	}
	members, ok := decoded.(map[string]any)
	if !ok {
		return fmt.Errorf("malformed fault: %T", decoded)
	}
	fault := &Fault{}
	if code, ok := members["faultCode"].(int64); ok {
		fault.Code = int(code)
	}
	if msg, ok := members["faultString"].(string); ok {
		fault.String = msg
	}
	return fault
}

func decodeValue(v *responseValue) (any, error) {
	switch {
	case v.I8 != nil:
		return parseWireInt(*v.I8)
	case v.I4 != nil:
		return parseWireInt(*v.I4)
	case v.Int != nil:
		return parseWireInt(*v.Int)
	case v.Boolean != nil:
		switch strings.TrimSpace(*v.Boolean) {
		case "1", "true":
			return true, nil
		case "0", "false":
			return false, nil
		}
		return nil, fmt.Errorf("invalid boolean value %q", *v.Boolean)
	case v.Str != nil:
		return *v.Str, nil
	case v.Double != nil:
		f, err := strconv.ParseFloat(strings.TrimSpace(*v.Double), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid double value: %w", err)
		}
		return f, nil
	case v.Base64 != nil:
		b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(*v.Base64))
		if err != nil {
			return nil, fmt.Errorf("invalid base64 value: %w", err)
		}
		return b, nil
	case v.DateTime != nil:
		t, err := time.Parse(iso8601, strings.TrimSpace(*v.DateTime))
		if err != nil {
			return nil, fmt.Errorf("invalid dateTime value: %w", err)
		}
		return t, nil
	case v.Array != nil:
		items := make([]any, 0, len(v.Array.Values))
		for i := range v.Array.Values {
			item, err := decodeValue(&v.Array.Values[i])
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	case v.Struct != nil:
		members := make(map[string]any, len(v.Struct.Members))
		for i := range v.Struct.Members {
			m := &v.Struct.Members[i]
			item, err := decodeValue(&m.Value)
			if err != nil {
				return nil, err
			}
			members[m.Name] = item
		}
		return members, nil
	default:
		// A <value> without a type element carries its string as bare
		// character data.
		return v.Raw, nil
	}
}

func parseWireInt(s string) (any, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid integer value: %w", err)
	}
	return n, nil
}
