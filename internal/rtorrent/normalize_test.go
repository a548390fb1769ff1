package rtorrent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/got3nks/amutorrent-sub002/internal/domain"
)

// sampleRow builds a full d.multicall2 row in column order. Overrides patch
// individual columns.
func sampleRow(overrides map[int]any) []any {
	row := make([]any, len(torrentFields))
	for i := range row {
		row[i] = int64(0)
	}
	row[colHash] = "3f8f42f92ae1c8bf8a7e4b9d0c1d2e3f4a5b6c7d"
	row[colName] = "ubuntu-24.04.iso"
	row[colDirectory] = "/downloads"
	row[colCustom1] = ""
	row[colMessage] = ""
	for i, v := range overrides {
		row[i] = v
	}
	return row
}

func TestTorrentFromRowDownloadingScenario(t *testing.T) {
	row := sampleRow(map[int]any{
		colSizeBytes:      int64(1000),
		colCompletedBytes: int64(250),
		colIsOpen:         int64(1),
		colIsActive:       int64(1),
		colDownRate:       int64(512),
		colUpRate:         int64(128),
	})

	tor := torrentFromRow(row)

	assert.Equal(t, domain.TorrentStatusDownloading, tor.Status)
	assert.Equal(t, 0.25, tor.Progress)
	assert.Equal(t, int64(1000), tor.Size)
	assert.Equal(t, int64(250), tor.CompletedBytes)
	assert.Equal(t, int64(512), tor.DownloadSpeed)
}

func TestTorrentFromRowUppercasesHash(t *testing.T) {
	tor := torrentFromRow(sampleRow(nil))
	assert.Equal(t, "3F8F42F92AE1C8BF8A7E4B9D0C1D2E3F4A5B6C7D", tor.Hash)
}

func TestTorrentFromRowRatioThousandths(t *testing.T) {
	tor := torrentFromRow(sampleRow(map[int]any{colRatio: int64(1500)}))
	assert.Equal(t, 1.5, tor.Ratio)
}

func TestTorrentFromRowZeroSizeProgress(t *testing.T) {
	tor := torrentFromRow(sampleRow(map[int]any{
		colSizeBytes:      int64(0),
		colCompletedBytes: int64(250),
	}))
	assert.Equal(t, 0.0, tor.Progress)
}

func TestTorrentFromRowProgressClamped(t *testing.T) {
	tor := torrentFromRow(sampleRow(map[int]any{
		colSizeBytes:      int64(100),
		colCompletedBytes: int64(150),
	}))
	assert.Equal(t, 1.0, tor.Progress)
}

func TestTorrentFromRowTimestamps(t *testing.T) {
	tor := torrentFromRow(sampleRow(map[int]any{
		colCreationDate:      int64(1700000000),
		colTimestampStarted:  int64(0),
		colTimestampFinished: int64(-1),
	}))

	require.NotNil(t, tor.CreationDate)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), *tor.CreationDate)
	assert.Nil(t, tor.StartedTime)
	assert.Nil(t, tor.FinishedTime)
}

func TestTorrentFromRowPeerSummary(t *testing.T) {
	tor := torrentFromRow(sampleRow(map[int]any{
		colPeersConnected: int64(7),
		colPeersComplete:  int64(3),
		colPeersAccounted: int64(12),
	}))

	assert.Equal(t, domain.PeerSummary{Connected: 7, Seeders: 3, Total: 15}, tor.Peers)
}

func TestTorrentFromRowCoercesMalformedFields(t *testing.T) {
	tor := torrentFromRow(sampleRow(map[int]any{
		colSizeBytes: "not a number",
		colDownRate:  "1024",
		colIsActive:  "1",
	}))

	assert.Equal(t, int64(0), tor.Size)
	assert.Equal(t, int64(1024), tor.DownloadSpeed)
	assert.True(t, tor.IsActive)
}

func TestTorrentFromRowShortRow(t *testing.T) {
	// A truncated row must not panic; missing columns become zero values.
	tor := torrentFromRow([]any{"abcd", "short.iso"})
	assert.Equal(t, "ABCD", tor.Hash)
	assert.Equal(t, "short.iso", tor.Name)
	assert.Equal(t, int64(0), tor.Size)
	assert.Equal(t, domain.TorrentStatusStopped, tor.Status)
}

func TestTrackerFromRowKeepsHTTPAndUDPOnly(t *testing.T) {
	mk := func(url string) []any {
		row := make([]any, len(trackerFields))
		for i := range row {
			row[i] = int64(0)
		}
		row[trkURL] = url
		return row
	}

	_, keep := trackerFromRow("HASH", mk("https://tracker.example.org/announce"))
	assert.True(t, keep)
	_, keep = trackerFromRow("HASH", mk("udp://tracker.example.org:6969"))
	assert.True(t, keep)
	_, keep = trackerFromRow("HASH", mk("dht://router"))
	assert.False(t, keep)
	_, keep = trackerFromRow("HASH", mk(""))
	assert.False(t, keep)
}

func TestTrackerFromRowClassifies(t *testing.T) {
	row := make([]any, len(trackerFields))
	for i := range row {
		row[i] = int64(0)
	}
	row[trkURL] = "http://tracker.example.org/announce"
	row[trkType] = int64(1)
	row[trkIsEnabled] = int64(1)
	row[trkIsUsable] = int64(1)
	row[trkScrapeComplete] = int64(40)
	row[trkScrapeIncomplete] = int64(12)
	row[trkSuccessCounter] = int64(5)
	row[trkActivityLast] = int64(1700000000)

	tr, keep := trackerFromRow("HASH", row)
	require.True(t, keep)

	assert.Equal(t, "HASH", tr.Hash)
	assert.Equal(t, domain.TrackerTypeHTTP, tr.Type)
	assert.Equal(t, domain.TrackerStatusWorking, tr.Status)
	assert.Equal(t, 40, tr.ScrapeComplete)
	assert.Equal(t, 12, tr.ScrapeIncomplete)
	require.NotNil(t, tr.LastActivity)
	assert.Nil(t, tr.NextActivity)
}

func TestPeerFromRowResolvesClient(t *testing.T) {
	row := make([]any, len(peerFields))
	for i := range row {
		row[i] = int64(0)
	}
	row[peerAddress] = "203.0.113.4"
	row[peerPort] = int64(51413)
	row[peerID] = "-TR3000-abcdefghijkl"
	row[peerClientVersion] = ""
	row[peerIsEncrypted] = int64(1)
	row[peerDownRate] = int64(2048)
	row[peerCompletedPercent] = int64(73)

	p := peerFromRow("HASH", row)

	assert.Equal(t, "203.0.113.4", p.Address)
	assert.Equal(t, 51413, p.Port)
	assert.Equal(t, "Transmission 3.0.0.0", p.Client)
	assert.Equal(t, "-TR3000-abcdefghijkl", p.PeerID)
	assert.True(t, p.Encrypted)
	assert.False(t, p.Incoming)
	assert.Equal(t, int64(2048), p.DownloadSpeed)
	assert.Equal(t, 73, p.CompletedPercent)
}

func TestPeerFromRowClientNeverEmpty(t *testing.T) {
	row := make([]any, len(peerFields))
	for i := range row {
		row[i] = int64(0)
	}
	p := peerFromRow("HASH", row)
	assert.Equal(t, "Unknown", p.Client)
}

func TestNormalizePriority(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
	}{
		{"in range", 1, 1},
		{"upper bound", 3, 3},
		{"above range caps", 99, 3},
		{"negative falls back to normal", -5, 2},
		{"numeric string", "3", 3},
		{"numeric string above range", "99", 3},
		{"non-numeric string", "high", 2},
		{"nil", nil, 2},
		{"float", 1.0, 1},
		{"unsupported type", []int{1}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizePriority(tt.in))
		})
	}
}

func TestAsEpoch(t *testing.T) {
	assert.Nil(t, asEpoch(int64(0)))
	assert.Nil(t, asEpoch(int64(-1)))
	assert.Nil(t, asEpoch(nil))
	ts := asEpoch(int64(1700000000))
	require.NotNil(t, ts)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), *ts)
}
