package rtorrent

import (
	"strconv"
	"strings"
	"time"

	"github.com/got3nks/amutorrent-sub002/internal/domain"
)

// The daemon's rows are loosely typed: counters may arrive as i8, string or
// even boolean depending on version. The as* helpers coerce tolerantly so a
// malformed field degrades to a zero value instead of failing the row.

func field(row []any, idx int) any {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

func asInt(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0
		}
		return n
	case []byte:
		return asInt(string(t))
	default:
		return 0
	}
}

func asBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return asInt(v) != 0
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "1"
		}
		return "0"
	default:
		return ""
	}
}

// asEpoch converts epoch seconds to a timestamp; zero and negative values
// mean "never happened" and map to nil.
func asEpoch(v any) *time.Time {
	secs := asInt(v)
	if secs <= 0 {
		return nil
	}
	t := time.Unix(secs, 0).UTC()
	return &t
}

func normalizeHash(h string) string {
	return strings.ToUpper(strings.TrimSpace(h))
}

// progress divides completed by size, clamped to [0,1]. A zero size yields
// zero rather than NaN.
func progress(completed, size int64) float64 {
	if size <= 0 {
		return 0
	}
	p := float64(completed) / float64(size)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// normalizePriority coerces whatever the caller handed us into the daemon's
// 0..3 priority range. Values above the range cap at 3; negative or
// unparsable input falls back to 2 (normal).
func normalizePriority(v any) int {
	n := int64(2)
	switch t := v.(type) {
	case int:
		n = int64(t)
	case int64:
		n = t
	case float64:
		n = int64(t)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 2
		}
		n = parsed
	case nil:
		return 2
	default:
		return 2
	}
	if n < 0 {
		return 2
	}
	if n > 3 {
		return 3
	}
	return int(n)
}

// torrentFromRow maps one positional d.multicall2 row onto the typed model.
// Column indexes are defined next to torrentFields; keep both in sync.
func torrentFromRow(row []any) domain.Torrent {
	size := asInt(field(row, colSizeBytes))
	completed := asInt(field(row, colCompletedBytes))

	t := domain.Torrent{
		Hash:           normalizeHash(asString(field(row, colHash))),
		Name:           asString(field(row, colName)),
		Directory:      asString(field(row, colDirectory)),
		IsMultiFile:    asBool(field(row, colIsMultiFile)),
		Size:           size,
		CompletedBytes: completed,
		Progress:       progress(completed, size),
		DownloadSpeed:  asInt(field(row, colDownRate)),
		UploadSpeed:    asInt(field(row, colUpRate)),
		DownloadTotal:  asInt(field(row, colDownTotal)),
		UploadTotal:    asInt(field(row, colUpTotal)),
		State:          int(asInt(field(row, colState))),
		IsActive:       asBool(field(row, colIsActive)),
		IsOpen:         asBool(field(row, colIsOpen)),
		IsHashChecking: asBool(field(row, colIsHashChecking)),
		IsComplete:     asBool(field(row, colComplete)),
		Hashing:        int(asInt(field(row, colHashing))),
		Label:          asString(field(row, colCustom1)),
		Ratio:          float64(asInt(field(row, colRatio))) / 1000,
		Priority:       int(asInt(field(row, colPriority))),
		Message:        asString(field(row, colMessage)),
		CreationDate:   asEpoch(field(row, colCreationDate)),
		StartedTime:    asEpoch(field(row, colTimestampStarted)),
		FinishedTime:   asEpoch(field(row, colTimestampFinished)),
	}

	connected := int(asInt(field(row, colPeersConnected)))
	seeders := int(asInt(field(row, colPeersComplete)))
	leechers := int(asInt(field(row, colPeersAccounted)))
	t.Peers = domain.PeerSummary{
		Connected: connected,
		Seeders:   seeders,
		Total:     seeders + leechers,
	}

	t.Status = deriveStatus(t.IsHashChecking, int64(t.Hashing), t.IsOpen, t.IsActive, t.IsComplete)
	return t
}

// trackerFromRow maps one t.multicall row. The second return is false for
// rows that should be dropped: only http and udp announce URLs are kept.
func trackerFromRow(hash string, row []any) (domain.Tracker, bool) {
	url := asString(field(row, trkURL))
	if !strings.HasPrefix(url, "http") && !strings.HasPrefix(url, "udp") {
		return domain.Tracker{}, false
	}

	tr := domain.Tracker{
		Hash:             hash,
		URL:              url,
		Type:             trackerTypeFromCode(asInt(field(row, trkType))),
		Enabled:          asBool(field(row, trkIsEnabled)),
		Usable:           asBool(field(row, trkIsUsable)),
		ScrapeComplete:   int(asInt(field(row, trkScrapeComplete))),
		ScrapeIncomplete: int(asInt(field(row, trkScrapeIncomplete))),
		ScrapeDownloaded: int(asInt(field(row, trkScrapeDownloaded))),
		FailedCount:      int(asInt(field(row, trkFailedCounter))),
		SuccessCount:     int(asInt(field(row, trkSuccessCounter))),
		LastActivity:     asEpoch(field(row, trkActivityLast)),
		NextActivity:     asEpoch(field(row, trkActivityNext)),
	}
	tr.Status = classifyTracker(tr.Enabled, tr.Usable, tr.FailedCount, tr.SuccessCount)
	return tr, true
}

// peerFromRow maps one p.multicall row.
func peerFromRow(hash string, row []any) domain.Peer {
	rawID := asString(field(row, peerID))
	version := asString(field(row, peerClientVersion))

	return domain.Peer{
		Hash:             hash,
		Address:          asString(field(row, peerAddress)),
		Port:             int(asInt(field(row, peerPort))),
		Client:           resolveClient(rawID, version),
		PeerID:           rawID,
		Encrypted:        asBool(field(row, peerIsEncrypted)),
		Incoming:         asBool(field(row, peerIsIncoming)),
		DownloadSpeed:    asInt(field(row, peerDownRate)),
		UploadSpeed:      asInt(field(row, peerUpRate)),
		DownloadTotal:    asInt(field(row, peerDownTotal)),
		UploadTotal:      asInt(field(row, peerUpTotal)),
		PeerSpeed:        asInt(field(row, peerPeerRate)),
		PeerTotal:        asInt(field(row, peerPeerTotal)),
		CompletedPercent: int(asInt(field(row, peerCompletedPercent))),
	}
}
