package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/attendance-tracker/internal/app"
	"github.com/joseph-ayodele/attendance-tracker/internal/archive"
	"github.com/joseph-ayodele/attendance-tracker/internal/async"
	"github.com/joseph-ayodele/attendance-tracker/internal/common"
	"github.com/joseph-ayodele/attendance-tracker/internal/export"
	"github.com/joseph-ayodele/attendance-tracker/internal/ingest"
	"github.com/joseph-ayodele/attendance-tracker/internal/logging"
	"github.com/joseph-ayodele/attendance-tracker/internal/server"
)

func main() {
	configPath := flag.String("config", "attendance.toml", "configuration file (.toml or .yaml)")
	flag.Parse()

	// Logger
	zl, _ := zap.NewProduction()
	defer zl.Sync()
	log := zl.Sugar()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}, os.Stderr)

	// One daemon per lock file
	lock := flock.New(cfg.Server.LockFile)
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("lock %s: %v", cfg.Server.LockFile, err)
	}
	if !locked {
		log.Fatalf("another attendanced holds %s", cfg.Server.LockFile)
	}
	defer lock.Unlock()

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(ctx, cfg.Database, logger)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer store.Close()

	if err := store.DB.HealthCheck(ctx, 3*time.Second); err != nil {
		log.Fatalf("DB health failed: %v", err)
	}
	log.Infow("DB health OK", "dialect", store.DB.Dialect)

	arch, err := archive.New(ctx, cfg.Archive, logger)
	if err != nil {
		log.Fatalf("archive: %v", err)
	}

	proc := app.NewProcessor(cfg, logger, store, arch)
	queue := async.NewProcessorQueue(proc, logger,
		async.WithWorkers(cfg.Ingest.Workers),
		async.WithQueueSize(cfg.Ingest.QueueSize),
		async.WithProcessTimeout(cfg.Ingest.Timeout),
	)

	api := server.New(server.Deps{
		Processor: proc,
		Validator: app.Validator(cfg),
		Jobs:      store.Jobs,
		Records:   store.Records,
		Export:    export.NewService(store.Records, app.Clock(cfg), logger),
		DB:        store.DB,
	}, cfg.Server, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC health service
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	// Reflection for grpcurl
	reflection.Register(grpcServer)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("HTTP serving on %s", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			log.Fatalf("listen: %v", err)
		}
		g.Go(func() error {
			log.Infof("gRPC health serving on %s", cfg.Server.GRPCAddr)
			return grpcServer.Serve(lis)
		})
	}

	if len(cfg.Ingest.WatchDirs) > 0 {
		ing := ingest.NewIngestor(queue, logger)
		g.Go(func() error {
			log.Infow("watching", "dirs", cfg.Ingest.WatchDirs)
			err := ing.Watch(gctx, ingest.WatchConfig{
				Roots:       cfg.Ingest.WatchDirs,
				InitialScan: true,
				SkipHidden:  true,
				Debounce:    cfg.Ingest.Debounce,
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")
		hs.Shutdown()

		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownWait)
		defer cancel()
		if err := httpServer.Shutdown(sctx); err != nil {
			log.Warnw("http shutdown", "error", err)
		}
		grpcServer.GracefulStop()
		queue.Shutdown(sctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Errorw("daemon stopped", "error", err)
		os.Exit(1)
	}
	log.Info("stopped.")
}
