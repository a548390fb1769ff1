package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/got3nks/amutorrent-sub002/internal/archive"
	"github.com/got3nks/amutorrent-sub002/internal/config"
	apphttp "github.com/got3nks/amutorrent-sub002/internal/http"
	"github.com/got3nks/amutorrent-sub002/internal/poller"
	"github.com/got3nks/amutorrent-sub002/internal/repository/sqlite"
	"github.com/got3nks/amutorrent-sub002/internal/rtorrent"
	"github.com/got3nks/amutorrent-sub002/internal/service"
	"github.com/got3nks/amutorrent-sub002/internal/ws"
	"github.com/got3nks/amutorrent-sub002/internal/xmlrpc"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required")
	}
	if strings.TrimSpace(cfg.Auth.RegisterPassword) == "" {
		logger.Fatalf("auth registration password is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	historyRepo := sqlite.NewHistoryRepository(db)

	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := historyRepo.Init(ctx); err != nil {
		logger.Fatalf("init history repository: %v", err)
	}

	userService := service.NewUserService(userRepo, cfg.Auth.RegisterPassword)
	historyService := service.NewHistoryService(historyRepo)

	store, err := buildArchive(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup torrent archive: %v", err)
	}

	rpc := xmlrpc.NewClient(xmlrpc.Config{
		Host:              cfg.Rtorrent.Host,
		Port:              cfg.Rtorrent.Port,
		Path:              cfg.Rtorrent.Path,
		Username:          cfg.Rtorrent.Username,
		Password:          cfg.Rtorrent.Password,
		MaxCallsPerSecond: cfg.Rtorrent.MaxCallsPerSecond,
		Logger:            logger,
	})
	defer rpc.Close()
	connectDaemon(ctx, rpc, logger)

	daemon := rtorrent.New(rtorrent.Config{Caller: rpc, Logger: logger})

	hub := ws.NewHub(logger)

	pollInterval := time.Duration(cfg.Poll.IntervalSeconds) * time.Second
	watcher := poller.NewPoller(poller.Config{
		Interval: pollInterval,
		Logger:   logger,
	}, daemon, historyService, hub)
	watcher.Start(ctx)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(
		daemon,
		userService,
		historyService,
		store,
		hub,
		cfg.Categories,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute,
		logger,
	)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	watcher.Shutdown()
	hub.Close()

	logger.Info("bye")
}

// connectDaemon probes the daemon once and keeps retrying in the background
// if it is down, so the dashboard can boot before rTorrent does.
func connectDaemon(ctx context.Context, rpc xmlrpc.Client, logger *logrus.Logger) {
	err := rpc.Connect(ctx)
	if err == nil {
		return
	}
	logger.Warnf("torrent daemon unreachable, retrying in background: %v", err)

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := rpc.Connect(ctx); err == nil {
					return
				}
			}
		}
	}()
}

func buildArchive(ctx context.Context, cfg config.Config, logger *logrus.Logger) (archive.Store, error) {
	switch cfg.Archive.Backend {
	case "", "directory":
		if cfg.Archive.Directory == "" {
			return nil, fmt.Errorf("archive directory is required")
		}
		logger.Infof("archiving torrent files under %s", cfg.Archive.Directory)
		return archive.NewDirectoryStore(cfg.Archive.Directory), nil

	case "s3":
		if cfg.Archive.Bucket == "" {
			return nil, fmt.Errorf("archive bucket is required")
		}

		loadOpts := []func(*awscfg.LoadOptions) error{
			awscfg.WithRegion(cfg.Archive.Region),
		}
		if cfg.AWS.Profile != "" {
			loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
		}

		awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}

		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Archive.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Archive.Endpoint)
				o.UsePathStyle = true
			}
		})
		logger.Infof("archiving torrent files to s3 bucket %s (region %s)", cfg.Archive.Bucket, cfg.Archive.Region)
		return archive.NewS3Store(client, cfg.Archive.Bucket, cfg.Archive.KeyPrefix), nil

	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Archive.Backend)
	}
}
