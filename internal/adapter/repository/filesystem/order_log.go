package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/simaogato/replay-broker/internal/domain"
)

// orderLog implements domain.OrderLog on top of one directory per portfolio.
// Append is a read-modify-write of orders.json: it relies on the caller holding
// the portfolio's exclusive lock (domain.PortfolioStore.Mutate).
type orderLog struct {
	layout Layout
}

// NewOrderLog creates a file-backed order log rooted at the layout's base directory
func NewOrderLog(layout Layout) domain.OrderLog {
	return &orderLog{layout: layout}
}

// Location returns the directory assigned to a portfolio
func (l *orderLog) Location(id uuid.UUID) string {
	return l.layout.PortfolioDir(id)
}

// Init creates the portfolio directory with its initial state and an empty order log
func (l *orderLog) Init(ctx context.Context, p domain.Portfolio) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(l.layout.BaseDir(), 0o755); err != nil {
		return fmt.Errorf("%w: failed to create data directory %s: %w", domain.ErrPersistence, l.layout.BaseDir(), err)
	}
	// Mkdir (not MkdirAll) so an existing directory is reported instead of reused
	if err := os.Mkdir(p.StoragePath, 0o755); err != nil {
		return fmt.Errorf("%w: failed to create portfolio directory %s: %w", domain.ErrPersistence, p.StoragePath, err)
	}

	if err := l.writeState(p); err != nil {
		return err
	}
	return l.writeOrders(p.StoragePath, orderLogDocument{Orders: []orderDocument{}})
}

// Append adds a record to orders.json
func (l *orderLog) Append(ctx context.Context, p domain.Portfolio, record domain.OrderRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc, err := l.readOrders(p.StoragePath)
	if err != nil {
		return err
	}
	doc.Orders = append(doc.Orders, toOrderDocument(record))

	return l.writeOrders(p.StoragePath, doc)
}

// SaveState overwrites portfolio.json
func (l *orderLog) SaveState(ctx context.Context, p domain.Portfolio) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.writeState(p)
}

// History returns every record of orders.json in append order
func (l *orderLog) History(ctx context.Context, p domain.Portfolio) ([]domain.OrderRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := l.readOrders(p.StoragePath)
	if err != nil {
		return nil, err
	}

	records := make([]domain.OrderRecord, 0, len(doc.Orders))
	for i, od := range doc.Orders {
		record, err := od.toDomain()
		if err != nil {
			return nil, fmt.Errorf("%w: order %d of %s: %w", domain.ErrPersistence, i, p.StoragePath, err)
		}
		records = append(records, record)
	}
	return records, nil
}

func (l *orderLog) writeState(p domain.Portfolio) error {
	data, err := json.Marshal(toPortfolioDocument(p))
	if err != nil {
		return fmt.Errorf("%w: failed to encode portfolio %s: %w", domain.ErrPersistence, p.ID, err)
	}
	if err := writeFileAtomic(stateFile(p.StoragePath), data); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}

func (l *orderLog) readOrders(dir string) (orderLogDocument, error) {
	path := ordersFile(dir)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return orderLogDocument{}, fmt.Errorf("%w: order log %s is missing: %w", domain.ErrPersistence, path, err)
		}
		return orderLogDocument{}, fmt.Errorf("%w: failed to read %s: %w", domain.ErrPersistence, path, err)
	}

	var doc orderLogDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return orderLogDocument{}, fmt.Errorf("%w: failed to decode %s: %w", domain.ErrPersistence, path, err)
	}
	return doc, nil
}

func (l *orderLog) writeOrders(dir string, doc orderLogDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: failed to encode order log: %w", domain.ErrPersistence, err)
	}
	if err := writeFileAtomic(ordersFile(dir), data); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}
