package rtorrent

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/got3nks/amutorrent-sub002/internal/domain"
)

func newDegradeTestClient(f *fakeCaller) (*Client, *logtest.Hook) {
	logger, hook := logtest.NewNullLogger()
	return New(Config{Caller: f, Logger: logger}), hook
}

func TestTorrentsQueriesAllColumns(t *testing.T) {
	f := &fakeCaller{handler: func(method string, args []any) (any, error) {
		require.Equal(t, "d.multicall2", method)
		return []any{
			sampleRow(map[int]any{colIsOpen: int64(1), colIsActive: int64(1)}),
		}, nil
	}}
	c := newTestClient(f)

	torrents := c.Torrents(context.Background())
	require.Len(t, torrents, 1)
	assert.Equal(t, domain.TorrentStatusDownloading, torrents[0].Status)

	require.Len(t, f.calls, 1)
	args := f.calls[0].args
	require.Len(t, args, 2+len(torrentFields))
	assert.Equal(t, "", args[0])
	assert.Equal(t, "main", args[1])
	assert.Equal(t, "d.hash=", args[2])
	assert.Equal(t, "d.priority=", args[len(args)-1])
}

func TestTorrentsDegradesOnTransportError(t *testing.T) {
	f := &fakeCaller{handler: func(method string, args []any) (any, error) {
		return nil, errors.New("connection refused")
	}}
	c, hook := newDegradeTestClient(f)

	torrents := c.Torrents(context.Background())

	assert.NotNil(t, torrents)
	assert.Empty(t, torrents)
	require.NotEmpty(t, hook.Entries)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestTorrentsSkipsMalformedRows(t *testing.T) {
	f := &fakeCaller{handler: func(method string, args []any) (any, error) {
		return []any{"not a row", sampleRow(nil)}, nil
	}}
	c := newTestClient(f)

	torrents := c.Torrents(context.Background())
	assert.Len(t, torrents, 1)
}

func trackerRow(url string) []any {
	row := make([]any, len(trackerFields))
	for i := range row {
		row[i] = int64(0)
	}
	row[trkURL] = url
	row[trkIsEnabled] = int64(1)
	return row
}

func TestTrackersBatchesOneRoundTrip(t *testing.T) {
	f := &fakeCaller{handler: func(method string, args []any) (any, error) {
		require.Equal(t, "system.multicall", method)
		return []any{
			[]any{[]any{trackerRow("http://a.example/announce"), trackerRow("dht://ignored")}},
			[]any{[]any{trackerRow("udp://b.example:6969")}},
		}, nil
	}}
	c := newTestClient(f)

	out := c.Trackers(context.Background(), []string{"aaaa", "bbbb"})

	require.Len(t, f.calls, 1, "detail queries for N torrents must collapse into one round trip")
	require.Len(t, out, 2)
	assert.Len(t, out["AAAA"], 1)
	assert.Len(t, out["BBBB"], 1)
	assert.Equal(t, "http://a.example/announce", out["AAAA"][0].URL)

	payload := f.calls[0].args[0].([]any)
	require.Len(t, payload, 2)
	first := payload[0].(map[string]any)
	assert.Equal(t, "t.multicall", first["methodName"])
	params := first["params"].([]any)
	assert.Equal(t, "AAAA", params[0])
	assert.Equal(t, "", params[1])
	assert.Equal(t, "t.url=", params[2])
}

func TestTrackersPerTorrentFaultDegrades(t *testing.T) {
	f := &fakeCaller{handler: func(method string, args []any) (any, error) {
		return []any{
			[]any{[]any{trackerRow("http://a.example/announce")}},
			map[string]any{"faultCode": int64(-501), "faultString": "Could not find info-hash."},
		}, nil
	}}
	c, hook := newDegradeTestClient(f)

	out := c.Trackers(context.Background(), []string{"AAAA", "BBBB"})

	assert.Len(t, out["AAAA"], 1)
	assert.NotNil(t, out["BBBB"])
	assert.Empty(t, out["BBBB"], "one torrent's fault must not drop its siblings")
	require.NotEmpty(t, hook.Entries)
}

func TestTrackersTransportErrorDegradesAll(t *testing.T) {
	f := &fakeCaller{handler: func(method string, args []any) (any, error) {
		return nil, errors.New("connection refused")
	}}
	c, _ := newDegradeTestClient(f)

	out := c.Trackers(context.Background(), []string{"aaaa"})
	require.Len(t, out, 1)
	assert.NotNil(t, out["AAAA"])
	assert.Empty(t, out["AAAA"])
}

func TestPeersBatchesAndResolves(t *testing.T) {
	row := make([]any, len(peerFields))
	for i := range row {
		row[i] = int64(0)
	}
	row[peerAddress] = "203.0.113.4"
	row[peerID] = "-UT3550-abcdefghijkl"

	f := &fakeCaller{handler: func(method string, args []any) (any, error) {
		require.Equal(t, "system.multicall", method)
		return []any{[]any{[]any{row}}}, nil
	}}
	c := newTestClient(f)

	out := c.Peers(context.Background(), []string{"cccc"})
	require.Len(t, out["CCCC"], 1)
	assert.Equal(t, "µTorrent 3.5.5.0", out["CCCC"][0].Client)
}

func TestGlobalStats(t *testing.T) {
	f := &fakeCaller{handler: func(method string, args []any) (any, error) {
		require.Equal(t, "system.multicall", method)
		payload := args[0].([]any)
		require.Len(t, payload, 6)
		assert.Equal(t, "throttle.global_down.rate", payload[0].(map[string]any)["methodName"])
		return []any{
			[]any{int64(1024)},
			[]any{int64(512)},
			[]any{int64(1 << 30)},
			[]any{int64(1 << 29)},
			[]any{int64(50000)},
			[]any{int64(4321)},
		}, nil
	}}
	c := newTestClient(f)

	stats := c.GlobalStats(context.Background())
	assert.Equal(t, domain.GlobalStats{
		DownloadSpeed: 1024,
		UploadSpeed:   512,
		DownloadTotal: 1 << 30,
		UploadTotal:   1 << 29,
		ListenPort:    50000,
		PID:           4321,
	}, stats)
}

func TestGlobalStatsDegrades(t *testing.T) {
	f := &fakeCaller{handler: func(method string, args []any) (any, error) {
		return nil, errors.New("connection refused")
	}}
	c, _ := newDegradeTestClient(f)

	assert.Equal(t, domain.GlobalStats{}, c.GlobalStats(context.Background()))
}

func TestDefaultDirectory(t *testing.T) {
	f := &fakeCaller{handler: func(method string, args []any) (any, error) {
		require.Equal(t, "directory.default", method)
		return "/downloads", nil
	}}
	c := newTestClient(f)
	assert.Equal(t, "/downloads", c.DefaultDirectory(context.Background()))
}

func TestDefaultDirectoryDegrades(t *testing.T) {
	f := &fakeCaller{handler: func(method string, args []any) (any, error) {
		return nil, errors.New("connection refused")
	}}
	c, _ := newDegradeTestClient(f)
	assert.Equal(t, "", c.DefaultDirectory(context.Background()))
}

func TestTestConnection(t *testing.T) {
	f := &fakeCaller{handler: func(method string, args []any) (any, error) {
		require.Equal(t, "system.client_version", method)
		return "0.9.8", nil
	}}
	c := newTestClient(f)

	status := c.TestConnection(context.Background())
	assert.True(t, status.Connected)
	assert.Equal(t, "0.9.8", status.Version)
	assert.Empty(t, status.Error)
}

func TestTestConnectionNeverErrors(t *testing.T) {
	f := &fakeCaller{handler: func(method string, args []any) (any, error) {
		return nil, errors.New("connection refused")
	}}
	c := newTestClient(f)

	status := c.TestConnection(context.Background())
	assert.False(t, status.Connected)
	assert.Contains(t, status.Error, "connection refused")
}

func TestStartTorrentSequence(t *testing.T) {
	f := &fakeCaller{}
	c := newTestClient(f)

	require.NoError(t, c.StartTorrent(context.Background(), "abcd"))

	require.Len(t, f.calls, 3)
	assert.Equal(t, "d.open", f.calls[0].method)
	assert.Equal(t, "d.start", f.calls[1].method)
	assert.Equal(t, "d.resume", f.calls[2].method)
	for _, call := range f.calls {
		assert.Equal(t, []any{"ABCD"}, call.args)
	}
}

func TestStartTorrentAbortsOnFailure(t *testing.T) {
	f := &fakeCaller{handler: func(method string, args []any) (any, error) {
		if method == "d.start" {
			return nil, errors.New("boom")
		}
		return nil, nil
	}}
	c := newTestClient(f)

	err := c.StartTorrent(context.Background(), "abcd")
	require.Error(t, err)
	require.Len(t, f.calls, 2, "the sequence must stop at the failing step")
}

func TestSingleVerbMutations(t *testing.T) {
	tests := []struct {
		name string
		op   func(*Client) error
		verb string
	}{
		{"stop", func(c *Client) error { return c.StopTorrent(context.Background(), "abcd") }, "d.stop"},
		{"close", func(c *Client) error { return c.CloseTorrent(context.Background(), "abcd") }, "d.close"},
		{"remove", func(c *Client) error { return c.RemoveTorrent(context.Background(), "abcd") }, "d.erase"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeCaller{}
			c := newTestClient(f)

			require.NoError(t, tt.op(c))
			require.Len(t, f.calls, 1)
			assert.Equal(t, tt.verb, f.calls[0].method)
			assert.Equal(t, []any{"ABCD"}, f.calls[0].args)
		})
	}
}

func TestMutationErrorsPropagate(t *testing.T) {
	f := &fakeCaller{handler: func(method string, args []any) (any, error) {
		return nil, errors.New("daemon unavailable")
	}}
	c := newTestClient(f)

	assert.Error(t, c.StopTorrent(context.Background(), "abcd"))
	assert.Error(t, c.RemoveTorrent(context.Background(), "abcd"))
	assert.Error(t, c.SetLabel(context.Background(), "abcd", "tv"))
	assert.Error(t, c.SetPriority(context.Background(), "abcd", 1))
}

func TestSetLabel(t *testing.T) {
	f := &fakeCaller{}
	c := newTestClient(f)

	require.NoError(t, c.SetLabel(context.Background(), "abcd", "linux isos"))
	require.Len(t, f.calls, 1)
	assert.Equal(t, "d.custom1.set", f.calls[0].method)
	assert.Equal(t, []any{"ABCD", "linux isos"}, f.calls[0].args)
}

func TestSetPriorityClampsBeforeSending(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int64
	}{
		{"above range", 99, 3},
		{"negative", -5, 2},
		{"non-numeric", "важно", 2},
		{"in range", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeCaller{}
			c := newTestClient(f)

			require.NoError(t, c.SetPriority(context.Background(), "abcd", tt.in))
			require.Len(t, f.calls, 1)
			assert.Equal(t, "d.priority.set", f.calls[0].method)
			assert.Equal(t, []any{"ABCD", tt.want}, f.calls[0].args)
		})
	}
}

func TestSetLabelAndPriorityOneRoundTrip(t *testing.T) {
	f := &fakeCaller{handler: func(method string, args []any) (any, error) {
		return []any{[]any{int64(0)}, []any{int64(0)}}, nil
	}}
	c := newTestClient(f)

	require.NoError(t, c.SetLabelAndPriority(context.Background(), "abcd", "tv", 99))

	require.Len(t, f.calls, 1)
	assert.Equal(t, "system.multicall", f.calls[0].method)

	payload := f.calls[0].args[0].([]any)
	require.Len(t, payload, 2)
	label := payload[0].(map[string]any)
	priority := payload[1].(map[string]any)
	assert.Equal(t, "d.custom1.set", label["methodName"])
	assert.Equal(t, []any{"ABCD", "tv"}, label["params"])
	assert.Equal(t, "d.priority.set", priority["methodName"])
	assert.Equal(t, []any{"ABCD", int64(3)}, priority["params"])
}

func TestSetLabelAndPriorityFaultPropagates(t *testing.T) {
	f := &fakeCaller{handler: func(method string, args []any) (any, error) {
		return []any{
			[]any{int64(0)},
			map[string]any{"faultCode": int64(-503), "faultString": "Call failed."},
		}, nil
	}}
	c := newTestClient(f)

	assert.Error(t, c.SetLabelAndPriority(context.Background(), "abcd", "tv", 1))
}

func TestAddTorrentVerbSelection(t *testing.T) {
	f := &fakeCaller{}
	c := newTestClient(f)

	require.NoError(t, c.AddTorrent(context.Background(), []byte("d8:announce0:e"), AddOptions{}))
	require.NoError(t, c.AddTorrent(context.Background(), []byte("d8:announce0:e"), AddOptions{Paused: true}))

	require.Len(t, f.calls, 2)
	assert.Equal(t, "load.raw_start", f.calls[0].method)
	assert.Equal(t, "load.raw", f.calls[1].method)
	assert.Equal(t, "", f.calls[0].args[0])
	assert.Equal(t, []byte("d8:announce0:e"), f.calls[0].args[1])
}

func TestAddTorrentDirectives(t *testing.T) {
	f := &fakeCaller{}
	c := newTestClient(f)

	err := c.AddTorrent(context.Background(), []byte("payload"), AddOptions{
		Label:     "tv",
		Directory: "/data/tv",
		Priority:  99,
	})
	require.NoError(t, err)

	require.Len(t, f.calls, 1)
	args := f.calls[0].args
	require.Len(t, args, 5)
	assert.Equal(t, `d.custom1.set="tv"`, args[2])
	assert.Equal(t, `d.directory.set="/data/tv"`, args[3])
	assert.Equal(t, "d.priority.set=3", args[4])
}

func TestAddTorrentRejectsEmptyPayload(t *testing.T) {
	f := &fakeCaller{}
	c := newTestClient(f)

	assert.Error(t, c.AddTorrent(context.Background(), nil, AddOptions{}))
	assert.Empty(t, f.calls)
}

func TestAddMagnetVerbSelection(t *testing.T) {
	f := &fakeCaller{}
	c := newTestClient(f)

	uri := "magnet:?xt=urn:btih:abcdef"
	require.NoError(t, c.AddMagnet(context.Background(), uri, AddOptions{}))
	require.NoError(t, c.AddMagnet(context.Background(), uri, AddOptions{Paused: true}))

	require.Len(t, f.calls, 2)
	assert.Equal(t, "load.start", f.calls[0].method)
	assert.Equal(t, "load.normal", f.calls[1].method)
	assert.Equal(t, uri, f.calls[0].args[1])

	assert.Error(t, c.AddMagnet(context.Background(), "  ", AddOptions{}))
}
