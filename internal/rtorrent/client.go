// Package rtorrent is the typed gateway to an rTorrent daemon. It batches
// XML-RPC calls, normalizes the daemon's positional rows into domain objects
// and exposes the command surface the dashboard drives.
package rtorrent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/got3nks/amutorrent-sub002/internal/domain"
)

// Caller issues one raw RPC against the daemon. *xmlrpc.Client satisfies it;
// tests substitute doubles that answer with canned values or faults.
type Caller interface {
	Call(ctx context.Context, method string, args ...any) (any, error)
}

type Config struct {
	Caller Caller
	Logger *logrus.Logger
}

// Client composes transport calls into the gateway's public operations.
// It holds no state between calls; every query rebuilds its result from the
// daemon's answer.
type Client struct {
	caller Caller
	logger *logrus.Logger
}

func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Client{caller: cfg.Caller, logger: cfg.Logger}
}

// Torrents lists every download known to the daemon. Query failures degrade
// to an empty list with a logged warning; the dashboard keeps rendering when
// the daemon is unreachable.
func (c *Client) Torrents(ctx context.Context) []domain.Torrent {
	args := make([]any, 0, len(torrentFields)+2)
	args = append(args, "", "main")
	for _, f := range torrentFields {
		args = append(args, f)
	}

	raw, err := c.caller.Call(ctx, "d.multicall2", args...)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to list torrents")
		return []domain.Torrent{}
	}
	rows, ok := raw.([]any)
	if !ok {
		c.logger.WithField("type", fmt.Sprintf("%T", raw)).Warn("Unexpected torrent listing shape")
		return []domain.Torrent{}
	}

	torrents := make([]domain.Torrent, 0, len(rows))
	for _, el := range rows {
		row, ok := el.([]any)
		if !ok {
			continue
		}
		torrents = append(torrents, torrentFromRow(row))
	}
	return torrents
}

// Trackers fetches announce details for the given torrents in one batched
// round trip, keyed by upper-cased hash. A failing torrent degrades to an
// empty list for that hash only.
func (c *Client) Trackers(ctx context.Context, hashes []string) map[string][]domain.Tracker {
	out := make(map[string][]domain.Tracker, len(hashes))
	calls := make([]call, 0, len(hashes))
	for _, h := range hashes {
		args := make([]any, 0, len(trackerFields)+2)
		args = append(args, normalizeHash(h), "")
		for _, f := range trackerFields {
			args = append(args, f)
		}
		calls = append(calls, call{method: "t.multicall", args: args})
	}

	results, err := c.multicall(ctx, calls)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to list trackers")
		for _, h := range hashes {
			out[normalizeHash(h)] = []domain.Tracker{}
		}
		return out
	}

	for i, res := range results {
		hash := normalizeHash(hashes[i])
		trackers := []domain.Tracker{}
		switch {
		case res.Fault != nil:
			c.logger.WithError(res.Fault).WithField("hash", hash).Warn("Tracker query failed")
		default:
			if rows, ok := res.Value.([]any); ok {
				for _, el := range rows {
					row, ok := el.([]any)
					if !ok {
						continue
					}
					if tr, keep := trackerFromRow(hash, row); keep {
						trackers = append(trackers, tr)
					}
				}
			}
		}
		out[hash] = trackers
	}
	return out
}

// Peers fetches connected peers for the given torrents in one batched round
// trip, keyed by upper-cased hash, degrading per torrent like Trackers.
func (c *Client) Peers(ctx context.Context, hashes []string) map[string][]domain.Peer {
	out := make(map[string][]domain.Peer, len(hashes))
	calls := make([]call, 0, len(hashes))
	for _, h := range hashes {
		args := make([]any, 0, len(peerFields)+2)
		args = append(args, normalizeHash(h), "")
		for _, f := range peerFields {
			args = append(args, f)
		}
		calls = append(calls, call{method: "p.multicall", args: args})
	}

	results, err := c.multicall(ctx, calls)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to list peers")
		for _, h := range hashes {
			out[normalizeHash(h)] = []domain.Peer{}
		}
		return out
	}

	for i, res := range results {
		hash := normalizeHash(hashes[i])
		peers := []domain.Peer{}
		switch {
		case res.Fault != nil:
			c.logger.WithError(res.Fault).WithField("hash", hash).Warn("Peer query failed")
		default:
			if rows, ok := res.Value.([]any); ok {
				for _, el := range rows {
					row, ok := el.([]any)
					if !ok {
						continue
					}
					peers = append(peers, peerFromRow(hash, row))
				}
			}
		}
		out[hash] = peers
	}
	return out
}

// GlobalStats bundles the daemon-wide counters into one batched query.
// Failures degrade to zeroed stats.
func (c *Client) GlobalStats(ctx context.Context) domain.GlobalStats {
	results, err := c.multicall(ctx, []call{
		{method: "throttle.global_down.rate"},
		{method: "throttle.global_up.rate"},
		{method: "throttle.global_down.total"},
		{method: "throttle.global_up.total"},
		{method: "network.listen.port"},
		{method: "system.pid"},
	})
	if err != nil {
		c.logger.WithError(err).Warn("Failed to query global stats")
		return domain.GlobalStats{}
	}

	get := func(i int) int64 {
		if i >= len(results) || results[i].Fault != nil {
			return 0
		}
		return asInt(results[i].Value)
	}
	return domain.GlobalStats{
		DownloadSpeed: get(0),
		UploadSpeed:   get(1),
		DownloadTotal: get(2),
		UploadTotal:   get(3),
		ListenPort:    int(get(4)),
		PID:           int(get(5)),
	}
}

// DefaultDirectory reports the daemon's configured download directory, or
// an empty string when the query fails.
func (c *Client) DefaultDirectory(ctx context.Context) string {
	raw, err := c.caller.Call(ctx, "directory.default")
	if err != nil {
		c.logger.WithError(err).Warn("Failed to query default directory")
		return ""
	}
	return asString(raw)
}

// TestConnection probes the daemon and reports the outcome as a value.
// It never returns an error; unreachable daemons show up as Connected=false.
func (c *Client) TestConnection(ctx context.Context) domain.ConnectionStatus {
	raw, err := c.caller.Call(ctx, "system.client_version")
	if err != nil {
		return domain.ConnectionStatus{Connected: false, Error: err.Error()}
	}
	return domain.ConnectionStatus{Connected: true, Version: asString(raw)}
}

// StartTorrent activates a download. The daemon needs three calls in strict
// order: open prepares the files on disk (a no-op when already open), start
// flips the lifecycle flag, resume begins the actual transfer. start alone
// leaves the torrent inert. The sequence aborts on the first failure.
func (c *Client) StartTorrent(ctx context.Context, hash string) error {
	hash = normalizeHash(hash)
	for _, verb := range []string{"d.open", "d.start", "d.resume"} {
		if _, err := c.caller.Call(ctx, verb, hash); err != nil {
			return fmt.Errorf("failed to start torrent %s at %s: %w", hash, verb, err)
		}
	}
	return nil
}

func (c *Client) StopTorrent(ctx context.Context, hash string) error {
	if _, err := c.caller.Call(ctx, "d.stop", normalizeHash(hash)); err != nil {
		return fmt.Errorf("failed to stop torrent %s: %w", hash, err)
	}
	return nil
}

// CloseTorrent stops the torrent and releases its file handles.
func (c *Client) CloseTorrent(ctx context.Context, hash string) error {
	if _, err := c.caller.Call(ctx, "d.close", normalizeHash(hash)); err != nil {
		return fmt.Errorf("failed to close torrent %s: %w", hash, err)
	}
	return nil
}

// RemoveTorrent erases the torrent from the daemon. Downloaded data stays on
// disk.
func (c *Client) RemoveTorrent(ctx context.Context, hash string) error {
	if _, err := c.caller.Call(ctx, "d.erase", normalizeHash(hash)); err != nil {
		return fmt.Errorf("failed to remove torrent %s: %w", hash, err)
	}
	return nil
}

// SetLabel stores the label in the daemon's custom1 slot.
func (c *Client) SetLabel(ctx context.Context, hash, label string) error {
	if _, err := c.caller.Call(ctx, "d.custom1.set", normalizeHash(hash), label); err != nil {
		return fmt.Errorf("failed to set label on %s: %w", hash, err)
	}
	return nil
}

// SetPriority applies a download priority. Input is tolerated loosely:
// anything above the daemon's 0..3 range caps at 3, negative or unparsable
// values fall back to 2 (normal).
func (c *Client) SetPriority(ctx context.Context, hash string, priority any) error {
	p := int64(normalizePriority(priority))
	if _, err := c.caller.Call(ctx, "d.priority.set", normalizeHash(hash), p); err != nil {
		return fmt.Errorf("failed to set priority on %s: %w", hash, err)
	}
	return nil
}

// SetLabelAndPriority updates both fields in a single batched round trip
// instead of two calls.
func (c *Client) SetLabelAndPriority(ctx context.Context, hash, label string, priority any) error {
	hash = normalizeHash(hash)
	results, err := c.multicall(ctx, []call{
		{method: "d.custom1.set", args: []any{hash, label}},
		{method: "d.priority.set", args: []any{hash, int64(normalizePriority(priority))}},
	})
	if err != nil {
		return fmt.Errorf("failed to update torrent %s: %w", hash, err)
	}
	for _, res := range results {
		if res.Fault != nil {
			return fmt.Errorf("failed to update torrent %s: %w", hash, res.Fault)
		}
	}
	return nil
}

// AddOptions tunes how a new torrent is loaded.
type AddOptions struct {
	// Paused loads the torrent without starting it.
	Paused bool
	// Label is written to the custom1 slot during the load when set.
	Label string
	// Directory overrides the daemon's default download directory when set.
	Directory string
	// Priority applies a post-add priority when non-nil, clamped like
	// SetPriority.
	Priority any
}

// directives renders the options as inline set-commands appended to the load
// call, saving the follow-up round trips.
func (o AddOptions) directives() []any {
	var out []any
	if o.Label != "" {
		out = append(out, fmt.Sprintf("d.custom1.set=\"%s\"", escapeDirective(o.Label)))
	}
	if o.Directory != "" {
		out = append(out, fmt.Sprintf("d.directory.set=\"%s\"", escapeDirective(o.Directory)))
	}
	if o.Priority != nil {
		out = append(out, fmt.Sprintf("d.priority.set=%d", normalizePriority(o.Priority)))
	}
	return out
}

func escapeDirective(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

// AddTorrent loads a metainfo file from raw bytes.
func (c *Client) AddTorrent(ctx context.Context, raw []byte, opts AddOptions) error {
	if len(raw) == 0 {
		return errors.New("empty torrent payload")
	}
	verb := "load.raw_start"
	if opts.Paused {
		verb = "load.raw"
	}
	args := append([]any{"", raw}, opts.directives()...)
	if _, err := c.caller.Call(ctx, verb, args...); err != nil {
		return fmt.Errorf("failed to load torrent: %w", err)
	}
	return nil
}

// AddMagnet loads a torrent from a magnet URI.
func (c *Client) AddMagnet(ctx context.Context, uri string, opts AddOptions) error {
	if strings.TrimSpace(uri) == "" {
		return errors.New("empty magnet uri")
	}
	verb := "load.start"
	if opts.Paused {
		verb = "load.normal"
	}
	args := append([]any{"", uri}, opts.directives()...)
	if _, err := c.caller.Call(ctx, verb, args...); err != nil {
		return fmt.Errorf("failed to load magnet: %w", err)
	}
	return nil
}
