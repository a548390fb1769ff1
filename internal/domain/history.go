package domain

import "time"

// TransferRecord is one finished download, remembered across daemon restarts
// so the dashboard can show completion history after the torrent is removed.
type TransferRecord struct {
	ID         int64     `json:"id"`
	Hash       string    `json:"hash"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Label      string    `json:"label"`
	FinishedAt time.Time `json:"finishedAt"`
}
