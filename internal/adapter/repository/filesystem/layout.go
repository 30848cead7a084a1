package filesystem

import (
	"path/filepath"

	"github.com/google/uuid"
)

const (
	stateFileName  = "portfolio.json"
	ordersFileName = "orders.json"
)

// Layout resolves where portfolio data lives on disk
// Directory layout:
//
//	{baseDir}/{portfolioID}/
//	  ├─ portfolio.json   (latest portfolio state)
//	  └─ orders.json      (append-only order log)
type Layout struct {
	baseDir string
}

// NewLayout creates a Layout rooted at baseDir
func NewLayout(baseDir string) Layout {
	// Keep the configured path if it cannot be made absolute
	if abs, err := filepath.Abs(baseDir); err == nil {
		baseDir = abs
	}
	return Layout{baseDir: baseDir}
}

// BaseDir returns the directory holding every portfolio directory
func (l Layout) BaseDir() string {
	return l.baseDir
}

// PortfolioDir returns the directory of a single portfolio
func (l Layout) PortfolioDir(id uuid.UUID) string {
	return filepath.Join(l.baseDir, id.String())
}

func stateFile(dir string) string {
	return filepath.Join(dir, stateFileName)
}

func ordersFile(dir string) string {
	return filepath.Join(dir, ordersFileName)
}
