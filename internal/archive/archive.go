// Package archive keeps the original .torrent files of added downloads so
// they can be reloaded into the daemon after it drops them.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anacrolix/torrent/metainfo"
)

// ErrNotFound is returned by Load for hashes the store has never seen.
var ErrNotFound = errors.New("archive: torrent not found")

// Entry describes one archived metainfo file, keyed by upper-case info-hash.
type Entry struct {
	Hash       string     `json:"hash"`
	Size       int64      `json:"size"`
	ArchivedAt *time.Time `json:"archivedAt"`
}

// Store persists raw metainfo files keyed by info-hash. Save validates the
// payload by parsing it; garbage never lands in the store. Delete is
// idempotent, Load reports missing hashes as ErrNotFound.
type Store interface {
	Save(ctx context.Context, raw []byte) (Entry, error)
	Load(ctx context.Context, hash string) ([]byte, error)
	List(ctx context.Context) ([]Entry, error)
	Delete(ctx context.Context, hash string) error
}

// InfoHash parses raw metainfo bytes and returns the upper-case hex
// info-hash.
func InfoHash(raw []byte) (string, error) {
	mi, err := metainfo.Load(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("failed to parse metainfo: %w", err)
	}
	return strings.ToUpper(mi.HashInfoBytes().HexString()), nil
}

const torrentExt = ".torrent"

func normalizeKey(hash string) string {
	return strings.ToUpper(strings.TrimSpace(hash))
}

// hashFromKey extracts the info-hash from a "<HASH>.torrent" object key or
// file name. Returns "" for keys that do not follow the naming scheme.
func hashFromKey(key string) string {
	base := key
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	if !strings.HasSuffix(base, torrentExt) {
		return ""
	}
	hash := strings.TrimSuffix(base, torrentExt)
	if len(hash) != 40 {
		return ""
	}
	for _, r := range hash {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return ""
		}
	}
	return strings.ToUpper(hash)
}
