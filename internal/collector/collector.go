package collector

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/dbtspectre/internal/models"
)

var modelPathPattern = regexp.MustCompile(`.*models/(.*)\.sql`)

// DiffSource lists the paths changed by the current pull/merge request
type DiffSource interface {
	ListChanges(ctx context.Context) ([]models.DiffEntry, error)
}

// ExcludeFunc reports whether a model should be dropped before lookup
type ExcludeFunc func(modelName, filePath string) bool

// Collector turns a request's diff listing into changed dbt models
type Collector struct {
	source  DiffSource
	exclude ExcludeFunc
	logger  *zap.Logger
}

// New creates a collector over source. exclude may be nil.
func New(source DiffSource, exclude ExcludeFunc, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		source:  source,
		exclude: exclude,
		logger:  logger.Named("collector"),
	}
}

// Collect lists the request's changes and returns its changed models, in
// diff order, with contents to be read at revisionRef.
// A listing failure is returned as is; the run cannot continue without it.
func (c *Collector) Collect(ctx context.Context, revisionRef string) ([]models.ChangedFile, error) {
	entries, err := c.source.ListChanges(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list changed files: %w", err)
	}

	files := ChangedModels(entries, revisionRef)
	if c.exclude == nil {
		c.logger.Debug("collected changed models", zap.Int("diff_entries", len(entries)), zap.Int("models", len(files)))
		return files, nil
	}

	kept := make([]models.ChangedFile, 0, len(files))
	for _, file := range files {
		if c.exclude(file.FileName, file.FilePath) {
			c.logger.Debug("model excluded by pattern", zap.String("model", file.FileName), zap.String("path", file.FilePath))
			continue
		}
		kept = append(kept, file)
	}

	c.logger.Debug("collected changed models",
		zap.Int("diff_entries", len(entries)),
		zap.Int("models", len(kept)),
		zap.Int("excluded", len(files)-len(kept)),
	)
	return kept, nil
}

// ChangedModels maps diff entries to changed models.
// Entries outside a models/ directory or not ending in .sql are dropped;
// duplicates by model name keep their first occurrence.
func ChangedModels(entries []models.DiffEntry, revisionRef string) []models.ChangedFile {
	files := make([]models.ChangedFile, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))

	for _, entry := range entries {
		name, ok := ParseModelPath(entry.NewPath)
		if !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		files = append(files, models.ChangedFile{
			FileName:    name,
			FilePath:    entry.NewPath,
			Status:      Classify(entry),
			RevisionRef: revisionRef,
		})
	}

	return files
}

// ParseModelPath returns the model name for a path under models/.
// "models/marts/orders.sql" yields "orders" and "models/orders.v2.sql" yields
// "orders".
func ParseModelPath(path string) (string, bool) {
	matches := modelPathPattern.FindStringSubmatch(path)
	if matches == nil {
		return "", false
	}

	segments := strings.Split(matches[1], "/")
	name := segments[len(segments)-1]
	if idx := strings.Index(name, "."); idx >= 0 {
		name = name[:idx]
	}
	if name == "" {
		return "", false
	}
	return name, true
}

// Classify derives a file status from a diff entry
func Classify(entry models.DiffEntry) models.FileStatus {
	switch {
	case entry.IsNewFile:
		return models.StatusAdded
	case entry.OldPath != "" && entry.OldPath != entry.NewPath:
		return models.StatusRenamedOrMoved
	default:
		return models.StatusModified
	}
}
