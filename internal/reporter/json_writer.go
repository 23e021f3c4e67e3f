package reporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ppiankov/dbtspectre/internal/models"
)

const (
	reportFileName  = "impact.json"
	commentFileName = "comment.md"
)

// WriteJSON writes the report to impact.json in outputDir
func WriteJSON(report *models.Report, outputDir string, logger *zap.Logger) (string, error) {
	if report == nil {
		return "", fmt.Errorf("report is nil")
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report to JSON: %w", err)
	}

	outputPath := filepath.Join(outputDir, reportFileName)
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", reportFileName, err)
	}

	if logger != nil {
		logger.Debug("report written", zap.String("path", outputPath))
	}
	return outputPath, nil
}

// WriteComment writes the rendered comment body to comment.md in outputDir
func WriteComment(body, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(outputDir, commentFileName)
	if err := os.WriteFile(outputPath, []byte(body), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", commentFileName, err)
	}
	return outputPath, nil
}
