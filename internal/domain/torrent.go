package domain

import "time"

// TorrentStatus is the single canonical lifecycle state derived from the
// daemon's independent raw flags. The set is closed; consumers can rely on
// never seeing a value outside it.
type TorrentStatus string

const (
	TorrentStatusChecking      TorrentStatus = "checking"
	TorrentStatusHashingQueued TorrentStatus = "hashing-queued"
	TorrentStatusStopped       TorrentStatus = "stopped"
	TorrentStatusCompleted     TorrentStatus = "completed"
	TorrentStatusPaused        TorrentStatus = "paused"
	TorrentStatusSeeding       TorrentStatus = "seeding"
	TorrentStatusDownloading   TorrentStatus = "downloading"
	TorrentStatusUnknown       TorrentStatus = "unknown"
)

type TrackerStatus string

const (
	TrackerStatusDisabled     TrackerStatus = "disabled"
	TrackerStatusWorking      TrackerStatus = "working"
	TrackerStatusError        TrackerStatus = "error"
	TrackerStatusUnreliable   TrackerStatus = "unreliable"
	TrackerStatusNotContacted TrackerStatus = "not_contacted"
	TrackerStatusUnknown      TrackerStatus = "unknown"
)

type TrackerType string

const (
	TrackerTypeHTTP    TrackerType = "http"
	TrackerTypeUDP     TrackerType = "udp"
	TrackerTypeDHT     TrackerType = "dht"
	TrackerTypeUnknown TrackerType = "unknown"
)

// PeerSummary condenses the daemon's per-torrent peer counters.
type PeerSummary struct {
	Connected int `json:"connected"`
	Seeders   int `json:"seeders"`
	Total     int `json:"total"`
}

// Torrent is one download known to the daemon, rebuilt from scratch on every
// refresh; nothing here is cached between polls. Hash is upper-case hex and
// is the identity for every lookup and action.
type Torrent struct {
	Hash           string  `json:"hash"`
	Name           string  `json:"name"`
	Directory      string  `json:"directory"`
	IsMultiFile    bool    `json:"isMultiFile"`
	Size           int64   `json:"size"`
	CompletedBytes int64   `json:"completedBytes"`
	Progress       float64 `json:"progress"`
	DownloadSpeed  int64   `json:"downloadSpeed"`
	UploadSpeed    int64   `json:"uploadSpeed"`
	DownloadTotal  int64   `json:"downloadTotal"`
	UploadTotal    int64   `json:"uploadTotal"`

	// Raw lifecycle flags as the daemon reports them. Status is derived from
	// these on every refresh and never stored independently of them.
	State          int  `json:"state"`
	IsActive       bool `json:"isActive"`
	IsOpen         bool `json:"isOpen"`
	IsHashChecking bool `json:"isHashChecking"`
	IsComplete     bool `json:"isComplete"`
	Hashing        int  `json:"hashing"`

	Status TorrentStatus `json:"status"`

	Label    string      `json:"label"`
	Ratio    float64     `json:"ratio"`
	Priority int         `json:"priority"`
	Message  string      `json:"message"`
	Peers    PeerSummary `json:"peers"`

	CreationDate *time.Time `json:"creationDate"`
	StartedTime  *time.Time `json:"startedTime"`
	FinishedTime *time.Time `json:"finishedTime"`
}

// Tracker is one announce URL of a torrent, scoped to its parent hash.
type Tracker struct {
	Hash             string        `json:"hash"`
	URL              string        `json:"url"`
	Type             TrackerType   `json:"type"`
	Enabled          bool          `json:"enabled"`
	Usable           bool          `json:"usable"`
	ScrapeComplete   int           `json:"scrapeComplete"`
	ScrapeIncomplete int           `json:"scrapeIncomplete"`
	ScrapeDownloaded int           `json:"scrapeDownloaded"`
	FailedCount      int           `json:"failedCount"`
	SuccessCount     int           `json:"successCount"`
	LastActivity     *time.Time    `json:"lastActivity"`
	NextActivity     *time.Time    `json:"nextActivity"`
	Status           TrackerStatus `json:"status"`
}

// Peer is one connected remote endpoint of a torrent. Peers are ephemeral:
// they exist only for the duration of the query that produced them.
type Peer struct {
	Hash             string `json:"hash"`
	Address          string `json:"address"`
	Port             int    `json:"port"`
	Client           string `json:"client"`
	PeerID           string `json:"peerId"`
	Encrypted        bool   `json:"encrypted"`
	Incoming         bool   `json:"incoming"`
	DownloadSpeed    int64  `json:"downloadSpeed"`
	UploadSpeed      int64  `json:"uploadSpeed"`
	DownloadTotal    int64  `json:"downloadTotal"`
	UploadTotal      int64  `json:"uploadTotal"`
	PeerSpeed        int64  `json:"peerSpeed"`
	PeerTotal        int64  `json:"peerTotal"`
	CompletedPercent int    `json:"completedPercent"`
}

// GlobalStats aggregates daemon-wide transfer counters.
type GlobalStats struct {
	DownloadSpeed int64 `json:"downloadSpeed"`
	UploadSpeed   int64 `json:"uploadSpeed"`
	DownloadTotal int64 `json:"downloadTotal"`
	UploadTotal   int64 `json:"uploadTotal"`
	ListenPort    int   `json:"listenPort"`
	PID           int   `json:"pid"`
}

// ConnectionStatus is the structured result of a connectivity probe; probes
// report failure here instead of returning an error.
type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}
