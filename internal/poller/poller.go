// Package poller periodically snapshots the torrent daemon and feeds the
// dashboard with live updates and a finished-transfer history.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/got3nks/amutorrent-sub002/internal/domain"
	"github.com/got3nks/amutorrent-sub002/internal/service"
)

// Source provides the daemon state a poll cycle needs.
type Source interface {
	Torrents(ctx context.Context) []domain.Torrent
	GlobalStats(ctx context.Context) domain.GlobalStats
}

// Publisher receives the snapshot produced by each poll cycle.
type Publisher interface {
	Publish(v any)
}

// Snapshot is the message pushed to websocket clients after every cycle.
type Snapshot struct {
	Torrents  []domain.Torrent   `json:"torrents"`
	Stats     domain.GlobalStats `json:"stats"`
	Removed   []string           `json:"removed,omitempty"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

type Config struct {
	Interval     time.Duration
	CycleTimeout time.Duration
	Logger       *logrus.Logger
}

// Poller drives the poll loop. Create it with NewPoller.
type Poller struct {
	cfg       Config
	source    Source
	history   service.HistoryService
	publisher Publisher

	wg     sync.WaitGroup
	cancel context.CancelFunc

	mu       sync.Mutex
	previous map[string]domain.Torrent
}

func NewPoller(cfg Config, source Source, history service.HistoryService, publisher Publisher) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = cfg.Interval
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Poller{
		cfg:       cfg,
		source:    source,
		history:   history,
		publisher: publisher,
	}
}

// Start launches the poll loop. It returns immediately; Shutdown stops the
// loop and waits for the in-flight cycle to finish.
func (p *Poller) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()

		p.cycle(loopCtx)
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				p.cycle(loopCtx)
			}
		}
	}()
	p.cfg.Logger.WithField("interval", p.cfg.Interval).Info("Poller started")
}

func (p *Poller) Shutdown() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.cfg.Logger.Info("Poller stopped")
}

func (p *Poller) cycle(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, p.cfg.CycleTimeout)
	defer cancel()

	torrents := p.source.Torrents(cycleCtx)
	stats := p.source.GlobalStats(cycleCtx)

	current := make(map[string]domain.Torrent, len(torrents))
	for _, torrent := range torrents {
		current[torrent.Hash] = torrent
	}

	p.mu.Lock()
	previous := p.previous
	p.previous = current
	p.mu.Unlock()

	removed := diffRemoved(previous, current)
	if previous != nil {
		p.recordFinished(cycleCtx, previous, torrents)
	}

	if p.publisher != nil {
		p.publisher.Publish(Snapshot{
			Torrents:  torrents,
			Stats:     stats,
			Removed:   removed,
			UpdatedAt: time.Now().UTC(),
		})
	}
}

// diffRemoved returns the hashes present before but gone now. A nil previous
// map means this is the first cycle, where nothing counts as removed.
func diffRemoved(previous, current map[string]domain.Torrent) []string {
	if previous == nil {
		return nil
	}
	var removed []string
	for hash := range previous {
		if _, ok := current[hash]; !ok {
			removed = append(removed, hash)
		}
	}
	return removed
}

func (p *Poller) recordFinished(ctx context.Context, previous map[string]domain.Torrent, torrents []domain.Torrent) {
	for _, torrent := range torrents {
		prev, known := previous[torrent.Hash]
		if !known || prev.IsComplete || !torrent.IsComplete {
			continue
		}

		finishedAt := time.Now().UTC()
		if torrent.FinishedTime != nil {
			finishedAt = *torrent.FinishedTime
		}
		record := &domain.TransferRecord{
			Hash:       torrent.Hash,
			Name:       torrent.Name,
			Size:       torrent.Size,
			Label:      torrent.Label,
			FinishedAt: finishedAt,
		}
		if _, err := p.history.RecordFinished(ctx, record); err != nil {
			p.cfg.Logger.WithError(err).WithField("hash", torrent.Hash).Warn("Failed to record finished transfer")
			continue
		}
		p.cfg.Logger.WithFields(logrus.Fields{
			"hash": torrent.Hash,
			"name": torrent.Name,
		}).Info("Transfer finished")
	}
}
