package reporter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/dbtspectre/internal/models"
)

// Supported local output formats
const (
	FormatJSON  = "json"
	FormatSARIF = "sarif"
	FormatText  = "text"
)

// Reporter writes the result of a local run
type Reporter interface {
	Generate(report *models.Report) error
}

// Options configures a reporter
type Options struct {
	OutputDir string
	Format    string    // json, sarif or text
	Stdout    io.Writer // defaults to os.Stdout
}

type reporter struct {
	opts   Options
	logger *zap.Logger
}

// New creates a new reporter instance
func New(opts Options, logger *zap.Logger) Reporter {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Format == "" {
		opts.Format = FormatJSON
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &reporter{opts: opts, logger: logger.Named("reporter")}
}

// Generate writes comment.md plus the report in the configured format.
// The text format prints to stdout instead of writing a report file.
func (r *reporter) Generate(report *models.Report) error {
	if report == nil {
		return fmt.Errorf("report is nil")
	}

	format := strings.ToLower(strings.TrimSpace(r.opts.Format))
	switch format {
	case FormatJSON, FormatSARIF, FormatText:
	default:
		return fmt.Errorf("unsupported format %q (want json, sarif or text)", r.opts.Format)
	}

	path, err := WriteComment(report.Comment, r.opts.OutputDir)
	if err != nil {
		return err
	}
	r.logger.Info("comment written", zap.String("path", path))

	switch format {
	case FormatSARIF:
		path, err = WriteSARIF(report, r.opts.OutputDir)
	case FormatText:
		return WriteText(r.opts.Stdout, report)
	default:
		path, err = WriteJSON(report, r.opts.OutputDir, r.logger)
	}
	if err != nil {
		return err
	}

	r.logger.Info("report written", zap.String("format", format), zap.String("path", path))
	return nil
}
