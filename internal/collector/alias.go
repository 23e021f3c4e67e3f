package collector

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/dbtspectre/internal/models"
)

// aliasPattern matches {{ config(..., alias='name', ...) }} across lines.
var aliasPattern = regexp.MustCompile(
	`(?im)\{\{\s*config\s*\(\s*(?:[^,]*,)*\s*alias\s*=\s*['"]([^'"]+)['"](?:\s*,[^,]*)*\s*\)\s*\}\}`,
)

// ContentSource reads a repository file at a given revision
type ContentSource interface {
	ReadFile(ctx context.Context, path, ref string) (string, error)
}

// ResolveAlias returns the alias declared in a model's config block, or
// fallback when there is none. It never fails.
func ResolveAlias(content, fallback string) string {
	matches := aliasPattern.FindStringSubmatch(content)
	if matches == nil {
		return fallback
	}
	if alias := strings.TrimSpace(matches[1]); alias != "" {
		return alias
	}
	return fallback
}

// AliasResolver resolves changed files to catalog asset names
type AliasResolver struct {
	contents    ContentSource
	ignoreAlias bool
	logger      *zap.Logger
}

// NewAliasResolver creates a resolver. With ignoreAlias set the file name is
// always used and no contents are fetched.
func NewAliasResolver(contents ContentSource, ignoreAlias bool, logger *zap.Logger) *AliasResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AliasResolver{
		contents:    contents,
		ignoreAlias: ignoreAlias,
		logger:      logger.Named("alias"),
	}
}

// Resolve returns the asset name for file.
// Unreadable contents fall back to the file name.
func (r *AliasResolver) Resolve(ctx context.Context, file models.ChangedFile) string {
	if r.ignoreAlias || r.contents == nil {
		return file.FileName
	}

	content, err := r.contents.ReadFile(ctx, file.FilePath, file.RevisionRef)
	if err != nil {
		r.logger.Debug("could not read model contents, using file name",
			zap.String("path", file.FilePath),
			zap.String("ref", file.RevisionRef),
			zap.Error(err),
		)
		return file.FileName
	}

	name := ResolveAlias(content, file.FileName)
	if name != file.FileName {
		r.logger.Debug("resolved model alias", zap.String("model", file.FileName), zap.String("alias", name))
	}
	return name
}
