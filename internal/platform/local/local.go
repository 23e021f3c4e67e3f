// Package local runs the pipeline against a unified diff and a working tree.
package local

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
	"go.uber.org/zap"

	"github.com/ppiankov/dbtspectre/internal/comment"
	"github.com/ppiankov/dbtspectre/internal/models"
	"github.com/ppiankov/dbtspectre/internal/platform"
)

const devNull = "/dev/null"

// Workspace is a local checkout plus the diff under review.
// Comments live in memory.
type Workspace struct {
	*comment.MemoryThread

	root       string
	baseBranch string
	entries    []models.DiffEntry
	logger     *zap.Logger
}

// Open parses the unified diff at diffPath for the checkout at root
func Open(diffPath, root, baseBranch string, logger *zap.Logger) (*Workspace, error) {
	data, err := os.ReadFile(diffPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read diff: %w", err)
	}
	return New(data, root, baseBranch, logger)
}

// New parses patch for the checkout at root
func New(patch []byte, root, baseBranch string, logger *zap.Logger) (*Workspace, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid repository root %q: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("repository root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repository root %s is not a directory", absRoot)
	}

	entries, err := ParsePatch(patch)
	if err != nil {
		return nil, err
	}

	return &Workspace{
		MemoryThread: comment.NewMemoryThread("local"),
		root:         absRoot,
		baseBranch:   baseBranch,
		entries:      entries,
		logger:       logger.Named("local"),
	}, nil
}

// ParsePatch maps a unified diff to diff entries.
// A /dev/null origin marks an added file; deleted files keep their old path.
func ParsePatch(patch []byte) ([]models.DiffEntry, error) {
	fileDiffs, err := diff.NewMultiFileDiffReader(bytes.NewReader(patch)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	entries := make([]models.DiffEntry, 0, len(fileDiffs))
	for _, fileDiff := range fileDiffs {
		oldPath := strings.TrimPrefix(fileDiff.OrigName, "a/")
		newPath := strings.TrimPrefix(fileDiff.NewName, "b/")

		switch {
		case fileDiff.OrigName == devNull:
			entries = append(entries, models.DiffEntry{NewPath: newPath, IsNewFile: true})
		case fileDiff.NewName == "" || fileDiff.NewName == devNull:
			entries = append(entries, models.DiffEntry{NewPath: oldPath, OldPath: oldPath})
		default:
			entries = append(entries, models.DiffEntry{NewPath: newPath, OldPath: oldPath})
		}
	}
	return entries, nil
}

// Request describes the local change as an open request
func (w *Workspace) Request() platform.Request {
	return platform.Request{
		Title:        "local changes",
		TargetBranch: w.baseBranch,
		State:        platform.StateOpen,
	}
}

// ListChanges returns the parsed diff entries
func (w *Workspace) ListChanges(_ context.Context) ([]models.DiffEntry, error) {
	return append([]models.DiffEntry(nil), w.entries...), nil
}

// ReadFile reads path from the working tree. ref is ignored.
func (w *Workspace) ReadFile(_ context.Context, path, _ string) (string, error) {
	absPath := filepath.Join(w.root, filepath.FromSlash(path))
	rel, err := filepath.Rel(w.root, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes the repository root", path)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
