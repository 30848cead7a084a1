package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/simaogato/replay-broker/internal/domain"
)

// snapshotRepository implements domain.SnapshotRepository as a single JSON file
// mapping portfolio id to portfolio state
type snapshotRepository struct {
	path string
}

// NewSnapshotRepository creates the recovery file repository.
// A missing recovery file is created empty.
func NewSnapshotRepository(path string) (domain.SnapshotRepository, error) {
	repo := &snapshotRepository{path: path}

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: failed to stat %s: %w", domain.ErrPersistence, path, err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("%w: failed to create %s: %w", domain.ErrPersistence, filepath.Dir(path), err)
		}
		if err := writeFileAtomic(path, []byte("{}")); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
	}

	return repo, nil
}

// Save overwrites the recovery file
func (r *snapshotRepository) Save(ctx context.Context, portfolios map[uuid.UUID]domain.Portfolio) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := make(map[string]portfolioDocument, len(portfolios))
	for id, p := range portfolios {
		doc[id.String()] = toPortfolioDocument(p)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: failed to encode snapshot: %w", domain.ErrPersistence, err)
	}
	if err := writeFileAtomic(r.path, data); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}

// Load reads the recovery file back. A missing file yields no portfolios.
func (r *snapshotRepository) Load(ctx context.Context) ([]domain.Portfolio, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to read %s: %w", domain.ErrPersistence, r.path, err)
	}

	var doc map[string]portfolioDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %w", domain.ErrPersistence, r.path, err)
	}

	portfolios := make([]domain.Portfolio, 0, len(doc))
	for key, pd := range doc {
		if pd.ID == "" {
			pd.ID = key
		}
		p, err := pd.toDomain()
		if err != nil {
			return nil, fmt.Errorf("%w: snapshot entry %s: %w", domain.ErrPersistence, key, err)
		}
		portfolios = append(portfolios, p)
	}
	return portfolios, nil
}
