package rtorrent

// torrentFields is the exact column list requested through d.multicall2.
// Rows come back as positional arrays, so this list and the col* indexes
// below must always change together; a mismatch silently shifts every
// column after it.
var torrentFields = []string{
	"d.hash=",
	"d.name=",
	"d.size_bytes=",
	"d.completed_bytes=",
	"d.down.rate=",
	"d.up.rate=",
	"d.up.total=",
	"d.down.total=",
	"d.state=",
	"d.is_active=",
	"d.is_open=",
	"d.is_hash_checking=",
	"d.complete=",
	"d.ratio=",
	"d.custom1=",
	"d.directory=",
	"d.creation_date=",
	"d.timestamp.started=",
	"d.timestamp.finished=",
	"d.peers_connected=",
	"d.peers_complete=",
	"d.peers_accounted=",
	"d.message=",
	"d.is_multi_file=",
	"d.hashing=",
	"d.priority=",
}

const (
	colHash = iota
	colName
	colSizeBytes
	colCompletedBytes
	colDownRate
	colUpRate
	colUpTotal
	colDownTotal
	colState
	colIsActive
	colIsOpen
	colIsHashChecking
	colComplete
	colRatio
	colCustom1
	colDirectory
	colCreationDate
	colTimestampStarted
	colTimestampFinished
	colPeersConnected
	colPeersComplete
	colPeersAccounted
	colMessage
	colIsMultiFile
	colHashing
	colPriority
)

// trackerFields is the per-torrent t.multicall column list, positional like
// torrentFields.
var trackerFields = []string{
	"t.url=",
	"t.type=",
	"t.is_enabled=",
	"t.is_usable=",
	"t.scrape_complete=",
	"t.scrape_incomplete=",
	"t.scrape_downloaded=",
	"t.failed_counter=",
	"t.success_counter=",
	"t.activity_time_last=",
	"t.activity_time_next=",
}

const (
	trkURL = iota
	trkType
	trkIsEnabled
	trkIsUsable
	trkScrapeComplete
	trkScrapeIncomplete
	trkScrapeDownloaded
	trkFailedCounter
	trkSuccessCounter
	trkActivityLast
	trkActivityNext
)

// peerFields is the per-torrent p.multicall column list.
var peerFields = []string{
	"p.address=",
	"p.port=",
	"p.client_version=",
	"p.id=",
	"p.is_encrypted=",
	"p.is_incoming=",
	"p.down_rate=",
	"p.up_rate=",
	"p.down_total=",
	"p.up_total=",
	"p.peer_rate=",
	"p.peer_total=",
	"p.completed_percent=",
}

const (
	peerAddress = iota
	peerPort
	peerClientVersion
	peerID
	peerIsEncrypted
	peerIsIncoming
	peerDownRate
	peerUpRate
	peerDownTotal
	peerUpTotal
	peerPeerRate
	peerPeerTotal
	peerCompletedPercent
)
