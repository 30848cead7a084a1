package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os/signal"
	"syscall"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
	grpclib "google.golang.org/grpc"

	"github.com/simaogato/replay-broker/internal/adapter/grpc"
	"github.com/simaogato/replay-broker/internal/adapter/pricefeed"
	"github.com/simaogato/replay-broker/internal/adapter/repository/filesystem"
	"github.com/simaogato/replay-broker/internal/adapter/repository/memory"
	"github.com/simaogato/replay-broker/internal/adapter/repository/postgres"
	"github.com/simaogato/replay-broker/internal/config"
	"github.com/simaogato/replay-broker/internal/domain"
	"github.com/simaogato/replay-broker/internal/logger"
	"github.com/simaogato/replay-broker/internal/usecase/execution"
	"github.com/simaogato/replay-broker/internal/usecase/market"
	"github.com/simaogato/replay-broker/internal/usecase/portfolio"
	"github.com/simaogato/replay-broker/internal/usecase/snapshot"
	"github.com/simaogato/replay-broker/internal/usecase/valuation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg, zapLogger); err != nil {
		zapLogger.Fatal("server failed", zap.Error(err))
	}
}

// run serves until ctx is cancelled or the gRPC server fails
func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	// 1. Load the historical price series
	series, err := pricefeed.LoadCSVFile(cfg.PriceFile)
	if err != nil {
		return err
	}
	logger.Info("price series loaded",
		zap.String("file", cfg.PriceFile),
		zap.Int("samples", series.Len()),
		zap.Int64("first", series.FirstTimestamp()),
		zap.Int64("interval", series.Interval()))

	// 2. Initialize persistence
	orderLog, closeOrderLog, err := newOrderLog(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeOrderLog()

	store := memory.NewPortfolioStore()

	snapshotRepo, err := filesystem.NewSnapshotRepository(cfg.SnapshotFile)
	if err != nil {
		return err
	}
	snapshotService := snapshot.NewSnapshotService(store, snapshotRepo, cfg.SnapshotInterval, logger)

	if cfg.RecoverFromSnapshot {
		if _, err := snapshotService.Restore(ctx); err != nil {
			return err
		}
	}

	// 3. Initialize services (use cases)
	valuationService := valuation.NewValuationService(series)
	portfolioService := portfolio.NewPortfolioService(store, series, valuationService, orderLog, logger)
	marketService := market.NewMarketService(store, series, valuationService, orderLog, logger)
	executionService := execution.NewExecutionService(store, series, valuationService, orderLog, logger)

	// 4. Start the gRPC server and the snapshot saver
	grpcServer := grpclib.NewServer(
		grpclib.UnaryInterceptor(grpc.LoggingInterceptor(logger)),
	)
	grpc.RegisterReplayServiceServer(grpcServer, grpc.NewServer(portfolioService, marketService, executionService))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
	}

	serveErr := make(chan error, 1)
	var wg conc.WaitGroup
	wg.Go(func() {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpclib.ErrServerStopped) {
			serveErr <- err
		}
	})
	wg.Go(func() {
		_ = snapshotService.Run(ctx)
	})

	// Graceful shutdown
	err = waitForShutdown(ctx, serveErr, grpcServer, logger)
	stop()
	wg.Wait()
	return err
}

// newOrderLog builds the configured order log backend and its cleanup
func newOrderLog(ctx context.Context, cfg config.Config, logger *zap.Logger) (domain.OrderLog, func(), error) {
	switch cfg.OrderLogBackend {
	case config.BackendPostgres:
		dsn := cfg.Database.DSN()

		db, err := postgres.NewDB(ctx, dsn, postgres.DefaultConnectTimeout)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := postgres.Migrate(dsn, logger); err != nil {
			db.Close()
			return nil, nil, err
		}

		logger.Info("order log backend ready", zap.String("backend", config.BackendPostgres))
		return postgres.NewOrderLogRepository(db), func() { db.Close() }, nil
	default:
		layout := filesystem.NewLayout(cfg.DataDir)

		logger.Info("order log backend ready",
			zap.String("backend", config.BackendFile),
			zap.String("dir", layout.BaseDir()))
		return filesystem.NewOrderLog(layout), func() {}, nil
	}
}

// waitForShutdown waits for SIGTERM/SIGINT or a server failure and gracefully shuts down the server
func waitForShutdown(ctx context.Context, serveErr <-chan error, grpcServer *grpclib.Server, logger *zap.Logger) error {
	var err error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, shutting down gracefully")
	case err = <-serveErr:
		logger.Error("gRPC server failed", zap.Error(err))
	}

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")
	return err
}
