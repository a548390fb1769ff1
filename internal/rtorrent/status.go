package rtorrent

import "github.com/got3nks/amutorrent-sub002/internal/domain"

// deriveStatus collapses the daemon's independent lifecycle flags into one
// canonical status. The daemon treats "open" (files prepared on disk) and
// "active" (actually transferring) as separate toggles, so single-flag checks
// under- or over-report state; the ordered decision below resolves every
// combination deterministically. First match wins.
func deriveStatus(hashChecking bool, hashing int64, open, active, complete bool) domain.TorrentStatus {
	switch {
	case hashChecking:
		return domain.TorrentStatusChecking
	case hashing > 0:
		// Queued for a hash check but not running it yet.
		return domain.TorrentStatusHashingQueued
	case !open:
		if complete {
			return domain.TorrentStatusCompleted
		}
		return domain.TorrentStatusStopped
	case !active:
		return domain.TorrentStatusPaused
	case complete:
		return domain.TorrentStatusSeeding
	default:
		return domain.TorrentStatusDownloading
	}
}

// classifyTracker grades one announce URL from its counters. First match wins.
func classifyTracker(enabled, usable bool, failed, success int) domain.TrackerStatus {
	switch {
	case !enabled:
		return domain.TrackerStatusDisabled
	case usable && success > 0:
		return domain.TrackerStatusWorking
	case failed > 0 && success == 0:
		return domain.TrackerStatusError
	case failed > success:
		return domain.TrackerStatusUnreliable
	case success > 0:
		return domain.TrackerStatusWorking
	default:
		return domain.TrackerStatusNotContacted
	}
}

func trackerTypeFromCode(code int64) domain.TrackerType {
	switch code {
	case 1:
		return domain.TrackerTypeHTTP
	case 2:
		return domain.TrackerTypeUDP
	case 3:
		return domain.TrackerTypeDHT
	default:
		return domain.TrackerTypeUnknown
	}
}
