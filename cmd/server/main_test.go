package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/simaogato/replay-broker/internal/adapter/grpc"
	"github.com/simaogato/replay-broker/internal/adapter/repository/filesystem"
	"github.com/simaogato/replay-broker/internal/config"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())
	return addr
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()

	priceFile := filepath.Join(dir, "prices.csv")
	require.NoError(t, os.WriteFile(priceFile, []byte("time,currentPrice\n1000,100.0\n1075,101.0\n1150,99.5\n"), 0o644))

	cfg := config.Default()
	cfg.GRPCAddr = freeAddr(t)
	cfg.PriceFile = priceFile
	cfg.DataDir = filepath.Join(dir, "portfolios")
	cfg.SnapshotFile = filepath.Join(dir, "recovery.json")
	cfg.SnapshotInterval = 10 * time.Millisecond
	require.NoError(t, cfg.Validate())
	return cfg
}

// startRun runs the server in the background and returns a client plus a stop
// function that waits for run to return
func startRun(t *testing.T, cfg config.Config) (*grpc.Client, func() error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, zap.NewNop()) }()

	conn, err := grpclib.NewClient(cfg.GRPCAddr, grpclib.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	client := grpc.NewClient(conn)

	// Wait until the listener is up
	require.Eventually(t, func() bool {
		_, err := client.GetCurrentMarket(context.Background())
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	stop := func() error {
		conn.Close()
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("run did not return")
			return nil
		}
	}
	return client, stop
}

func TestRun_ServesAndSnapshots(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	client, stop := startRun(t, cfg)

	p, interval, err := client.CreatePortfolio(ctx, decimal.Zero, decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, int64(75), interval)

	p, err = client.Buy(ctx, p.ID, decimal.NewFromInt(500))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1005).Equal(p.Value))

	require.NoError(t, stop())

	// The final snapshot holds the portfolio as last served
	repo, err := filesystem.NewSnapshotRepository(cfg.SnapshotFile)
	require.NoError(t, err)
	recovered, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, recovered, 1)
	assert.Equal(t, p.ID, recovered[0].ID)
	assert.Equal(t, int64(1075), recovered[0].CurrentTime)

	// A restart with recovery enabled serves the same portfolio
	cfg.GRPCAddr = freeAddr(t)
	cfg.RecoverFromSnapshot = true
	client, stop = startRun(t, cfg)

	restored, err := client.GetPortfolio(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.CurrentTime, restored.CurrentTime)
	assert.True(t, p.Value.Equal(restored.Value))

	require.NoError(t, stop())
}

func TestRun_MissingPriceFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.PriceFile = filepath.Join(t.TempDir(), "missing.csv")

	err := run(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
