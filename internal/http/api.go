package http

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/got3nks/amutorrent-sub002/internal/archive"
	"github.com/got3nks/amutorrent-sub002/internal/domain"
	"github.com/got3nks/amutorrent-sub002/internal/rtorrent"
	"github.com/got3nks/amutorrent-sub002/internal/service"
	"github.com/got3nks/amutorrent-sub002/internal/ws"
)

// Daemon is the slice of the torrent gateway the API serves.
type Daemon interface {
	Torrents(ctx context.Context) []domain.Torrent
	Trackers(ctx context.Context, hashes []string) map[string][]domain.Tracker
	Peers(ctx context.Context, hashes []string) map[string][]domain.Peer
	GlobalStats(ctx context.Context) domain.GlobalStats
	DefaultDirectory(ctx context.Context) string
	TestConnection(ctx context.Context) domain.ConnectionStatus
	StartTorrent(ctx context.Context, hash string) error
	StopTorrent(ctx context.Context, hash string) error
	CloseTorrent(ctx context.Context, hash string) error
	RemoveTorrent(ctx context.Context, hash string) error
	SetLabel(ctx context.Context, hash, label string) error
	SetPriority(ctx context.Context, hash string, priority any) error
	SetLabelAndPriority(ctx context.Context, hash, label string, priority any) error
	AddTorrent(ctx context.Context, raw []byte, opts rtorrent.AddOptions) error
	AddMagnet(ctx context.Context, uri string, opts rtorrent.AddOptions) error
}

var _ Daemon = (*rtorrent.Client)(nil)

// Handler wires HTTP routes to the gateway and domain services.
type Handler struct {
	daemon     Daemon
	users      service.UserService
	history    service.HistoryService
	archive    archive.Store
	hub        *ws.Hub
	categories map[string]string
	jwtSecret  string
	tokenTTL   time.Duration
	logger     *logrus.Logger
}

func NewHandler(
	daemon Daemon,
	users service.UserService,
	history service.HistoryService,
	store archive.Store,
	hub *ws.Hub,
	categories map[string]string,
	jwtSecret string,
	tokenTTL time.Duration,
	logger *logrus.Logger,
) *Handler {
	if categories == nil {
		categories = map[string]string{}
	}
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		daemon:     daemon,
		users:      users,
		history:    history,
		archive:    store,
		hub:        hub,
		categories: categories,
		jwtSecret:  jwtSecret,
		tokenTTL:   tokenTTL,
		logger:     logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		auth := api.Group("/auth")
		{
			auth.POST("/register", h.register)
			auth.POST("/login", h.login)
			auth.GET("/me", h.requireAuth(), h.currentUser)
		}

		protected := api.Group("")
		protected.Use(h.requireAuth())
		{
			protected.GET("/torrents", h.listTorrents)
			protected.POST("/torrents", h.addTorrent)
			protected.GET("/torrents/trackers", h.listTrackers)
			protected.GET("/torrents/peers", h.listPeers)
			protected.POST("/torrents/:hash/start", h.startTorrent)
			protected.POST("/torrents/:hash/stop", h.stopTorrent)
			protected.POST("/torrents/:hash/close", h.closeTorrent)
			protected.PATCH("/torrents/:hash", h.updateTorrent)
			protected.DELETE("/torrents/:hash", h.removeTorrent)

			protected.GET("/stats", h.globalStats)
			protected.GET("/connection", h.connectionStatus)
			protected.GET("/defaults", h.defaults)

			protected.GET("/history", h.listHistory)
			protected.DELETE("/history", h.pruneHistory)
			protected.DELETE("/history/:id", h.deleteHistory)

			protected.GET("/archive", h.listArchive)
			protected.POST("/archive/:hash/load", h.loadArchived)
			protected.DELETE("/archive/:hash", h.deleteArchived)

			protected.GET("/ws", h.serveWebsocket)
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (h *Handler) listTorrents(c *gin.Context) {
	c.JSON(http.StatusOK, h.daemon.Torrents(c.Request.Context()))
}

func (h *Handler) listTrackers(c *gin.Context) {
	hashes, err := hashesFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.daemon.Trackers(c.Request.Context(), hashes))
}

func (h *Handler) listPeers(c *gin.Context) {
	hashes, err := hashesFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.daemon.Peers(c.Request.Context(), hashes))
}

type addTorrentRequest struct {
	Magnet    string `json:"magnet" binding:"required"`
	Label     string `json:"label"`
	Category  string `json:"category"`
	Directory string `json:"directory"`
	Paused    bool   `json:"paused"`
	Priority  any    `json:"priority"`
}

func (h *Handler) addTorrent(c *gin.Context) {
	if c.ContentType() == "multipart/form-data" {
		h.addTorrentFile(c)
		return
	}

	var req addTorrentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts, err := h.loadOptions(req.Label, req.Category, req.Directory, req.Paused, req.Priority)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.daemon.AddMagnet(c.Request.Context(), req.Magnet, opts); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"added": "magnet"})
}

func (h *Handler) addTorrentFile(c *gin.Context) {
	file, header, err := c.Request.FormFile("torrent")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no torrent file provided"})
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("read torrent file: %v", err)})
		return
	}

	paused := c.PostForm("paused") == "true"
	opts, err := h.loadOptions(c.PostForm("label"), c.PostForm("category"), c.PostForm("directory"), paused, c.PostForm("priority"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.archive.Save(c.Request.Context(), raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("archive torrent file: %v", err)})
		return
	}

	if err := h.daemon.AddTorrent(c.Request.Context(), raw, opts); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"hash": entry.Hash, "filename": header.Filename})
}

// loadOptions resolves add-time options, mapping category names to their
// configured download directories. An explicit directory wins.
func (h *Handler) loadOptions(label, category, directory string, paused bool, priority any) (rtorrent.AddOptions, error) {
	if directory == "" && category != "" {
		resolved, ok := h.categories[category]
		if !ok {
			return rtorrent.AddOptions{}, fmt.Errorf("unknown category %q", category)
		}
		directory = resolved
	}
	if label == "" {
		label = category
	}
	if s, ok := priority.(string); ok && strings.TrimSpace(s) == "" {
		priority = nil
	}
	return rtorrent.AddOptions{
		Paused:    paused,
		Label:     label,
		Directory: directory,
		Priority:  priority,
	}, nil
}

func (h *Handler) startTorrent(c *gin.Context) {
	h.torrentAction(c, h.daemon.StartTorrent, "started")
}

func (h *Handler) stopTorrent(c *gin.Context) {
	h.torrentAction(c, h.daemon.StopTorrent, "stopped")
}

func (h *Handler) closeTorrent(c *gin.Context) {
	h.torrentAction(c, h.daemon.CloseTorrent, "closed")
}

func (h *Handler) torrentAction(c *gin.Context, action func(context.Context, string) error, verb string) {
	hash, err := hashParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := action(c.Request.Context(), hash); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{verb: hash})
}

type updateTorrentRequest struct {
	Label    *string `json:"label"`
	Priority any     `json:"priority"`
}

func (h *Handler) updateTorrent(c *gin.Context) {
	hash, err := hashParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req updateTorrentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	switch {
	case req.Label != nil && req.Priority != nil:
		err = h.daemon.SetLabelAndPriority(ctx, hash, *req.Label, req.Priority)
	case req.Label != nil:
		err = h.daemon.SetLabel(ctx, hash, *req.Label)
	case req.Priority != nil:
		err = h.daemon.SetPriority(ctx, hash, req.Priority)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": hash})
}

func (h *Handler) removeTorrent(c *gin.Context) {
	hash, err := hashParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deleteArchived, err := strconv.ParseBool(c.DefaultQuery("deleteArchived", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flag deleteArchived"})
		return
	}

	if err := h.daemon.RemoveTorrent(c.Request.Context(), hash); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{"removed": hash}
	if deleteArchived && h.archive != nil {
		if err := h.archive.Delete(c.Request.Context(), hash); err != nil {
			resp["warnings"] = []string{fmt.Sprintf("delete archived torrent: %v", err)}
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) globalStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.daemon.GlobalStats(c.Request.Context()))
}

func (h *Handler) connectionStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.daemon.TestConnection(c.Request.Context()))
}

func (h *Handler) defaults(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"directory":  h.daemon.DefaultDirectory(c.Request.Context()),
		"categories": h.categories,
	})
}

func (h *Handler) listHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	records, err := h.history.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) deleteHistory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
		return
	}

	if err := h.history.Delete(c.Request.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *Handler) pruneHistory(c *gin.Context) {
	days, err := strconv.Atoi(c.Query("olderThanDays"))
	if err != nil || days <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid olderThanDays"})
		return
	}

	pruned, err := h.history.Prune(c.Request.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pruned": pruned})
}

func (h *Handler) listArchive(c *gin.Context) {
	entries, err := h.archive.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}

type loadArchivedRequest struct {
	Label     string `json:"label"`
	Category  string `json:"category"`
	Directory string `json:"directory"`
	Paused    bool   `json:"paused"`
	Priority  any    `json:"priority"`
}

func (h *Handler) loadArchived(c *gin.Context) {
	hash, err := hashParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req loadArchivedRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	raw, err := h.archive.Load(c.Request.Context(), hash)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "archived torrent not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	opts, err := h.loadOptions(req.Label, req.Category, req.Directory, req.Paused, req.Priority)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.daemon.AddTorrent(c.Request.Context(), raw, opts); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"loaded": hash})
}

func (h *Handler) deleteArchived(c *gin.Context) {
	hash, err := hashParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.archive.Delete(c.Request.Context(), hash); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": hash})
}

func hashParam(c *gin.Context) (string, error) {
	hash := strings.ToUpper(strings.TrimSpace(c.Param("hash")))
	if len(hash) != 40 {
		return "", fmt.Errorf("invalid torrent hash")
	}
	if _, err := hex.DecodeString(hash); err != nil {
		return "", fmt.Errorf("invalid torrent hash")
	}
	return hash, nil
}

func hashesFromQuery(c *gin.Context) ([]string, error) {
	raw := strings.Split(c.Query("hashes"), ",")
	hashes := make([]string, 0, len(raw))
	for _, hash := range raw {
		hash = strings.TrimSpace(hash)
		if hash == "" {
			continue
		}
		hashes = append(hashes, hash)
	}
	if len(hashes) == 0 {
		return nil, fmt.Errorf("query parameter hashes is required")
	}
	return hashes, nil
}
