package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/replay-broker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPortfolio(log domain.OrderLog) domain.Portfolio {
	id := uuid.New()
	return domain.Portfolio{
		ID:              id,
		BaseAssetTotal:  decimal.Zero,
		QuoteAssetTotal: decimal.NewFromInt(1000),
		Value:           decimal.Zero,
		CurrentTime:     1000,
		StoragePath:     log.Location(id),
	}
}

func TestOrderLog_InitCreatesLayout(t *testing.T) {
	ctx := context.Background()
	baseDir := filepath.Join(t.TempDir(), "logs")
	log := NewOrderLog(NewLayout(baseDir))
	p := newTestPortfolio(log)

	require.NoError(t, log.Init(ctx, p))

	assert.Equal(t, filepath.Join(baseDir, p.ID.String()), p.StoragePath)
	assert.FileExists(t, filepath.Join(p.StoragePath, "portfolio.json"))

	data, err := os.ReadFile(filepath.Join(p.StoragePath, "orders.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"orders":[]}`, string(data))

	history, err := log.History(ctx, p)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestOrderLog_InitTwiceFails(t *testing.T) {
	ctx := context.Background()
	log := NewOrderLog(NewLayout(t.TempDir()))
	p := newTestPortfolio(log)

	require.NoError(t, log.Init(ctx, p))
	assert.ErrorIs(t, log.Init(ctx, p), domain.ErrPersistence)
}

func TestOrderLog_InitUnwritableBaseDir(t *testing.T) {
	ctx := context.Background()

	// A regular file where the base directory should be
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	log := NewOrderLog(NewLayout(filepath.Join(blocker, "logs")))
	p := newTestPortfolio(log)

	assert.ErrorIs(t, log.Init(ctx, p), domain.ErrPersistence)
}

func TestOrderLog_AppendKeepsOrder(t *testing.T) {
	ctx := context.Background()
	log := NewOrderLog(NewLayout(t.TempDir()))
	p := newTestPortfolio(log)
	require.NoError(t, log.Init(ctx, p))

	after := p
	after.BaseAssetTotal = decimal.NewFromInt(5)
	after.QuoteAssetTotal = decimal.NewFromInt(500)
	after.Value = decimal.NewFromInt(1005)
	after.CurrentTime = 1075

	records := []domain.OrderRecord{
		{Kind: domain.OrderKindBuy, Total: decimal.NewFromInt(500), Time: 1000, Price: decimal.NewFromInt(100), Portfolio: after},
		{Kind: domain.OrderKindSell, Total: decimal.NewFromInt(2), Time: 1075, Price: decimal.NewFromInt(101), Portfolio: after},
	}
	for _, r := range records {
		require.NoError(t, log.Append(ctx, p, r))
	}

	history, err := log.History(ctx, p)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, domain.OrderKindBuy, history[0].Kind)
	assert.True(t, history[0].Total.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, int64(1000), history[0].Time)
	assert.True(t, history[0].Price.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, p.ID, history[0].Portfolio.ID)
	assert.True(t, history[0].Portfolio.Value.Equal(decimal.NewFromInt(1005)))

	assert.Equal(t, domain.OrderKindSell, history[1].Kind)
	assert.Equal(t, int64(1075), history[1].Time)
}

func TestOrderLog_AppendWithoutInitFails(t *testing.T) {
	ctx := context.Background()
	log := NewOrderLog(NewLayout(t.TempDir()))
	p := newTestPortfolio(log)

	err := log.Append(ctx, p, domain.OrderRecord{Kind: domain.OrderKindBuy})
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestOrderLog_SaveState(t *testing.T) {
	ctx := context.Background()
	log := NewOrderLog(NewLayout(t.TempDir()))
	p := newTestPortfolio(log)
	require.NoError(t, log.Init(ctx, p))

	p.Value = decimal.RequireFromString("1005.5")
	p.CurrentTime = 1075
	require.NoError(t, log.SaveState(ctx, p))

	data, err := os.ReadFile(filepath.Join(p.StoragePath, "portfolio.json"))
	require.NoError(t, err)

	var doc portfolioDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, p.ID.String(), doc.ID)
	assert.Equal(t, int64(1075), doc.CurrentTime)
	assert.True(t, doc.Value.Equal(p.Value))
	assert.Equal(t, p.StoragePath, doc.Path)

	// No temp files are left behind
	entries, err := os.ReadDir(p.StoragePath)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestOrderLog_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	log := NewOrderLog(NewLayout(t.TempDir()))
	p := newTestPortfolio(log)

	assert.ErrorIs(t, log.Init(ctx, p), context.Canceled)
	assert.ErrorIs(t, log.Append(ctx, p, domain.OrderRecord{}), context.Canceled)
}
