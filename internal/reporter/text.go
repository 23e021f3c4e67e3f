package reporter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ppiankov/dbtspectre/internal/models"
)

const (
	textANSIReset = "\x1b[0m"
	textANSIBold  = "\x1b[1m"
)

// WriteText prints a per-file summary of the run to out
func WriteText(out io.Writer, report *models.Report) error {
	if report == nil {
		return fmt.Errorf("report is nil")
	}
	if out == nil {
		return fmt.Errorf("writer is nil")
	}

	_, err := io.WriteString(out, renderTextReport(report, supportsANSI(out)))
	if err != nil {
		return fmt.Errorf("failed to write text report to output: %w", err)
	}
	return nil
}

func renderTextReport(report *models.Report, useANSI bool) string {
	var b strings.Builder

	title := "dbt Impact Analysis"
	if useANSI {
		title = textANSIBold + title + textANSIReset
	}
	fmt.Fprintf(&b, "%s\n", title)
	fmt.Fprintf(&b, "Integration: %s | Duration: %s\n\n", report.Integration, report.Duration)

	if len(report.Files) == 0 {
		b.WriteString("No changed dbt models.\n")
		return b.String()
	}

	t := table.NewWriter()
	t.SetOutputMirror(&b)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Model", "Status", "Asset", "Outcome", "Downstream"})

	for _, file := range report.Files {
		t.AppendRow(table.Row{
			file.File.FilePath,
			string(file.File.Status),
			file.AssetName,
			outcomeLabel(file),
			downstreamLabel(file),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "impacted", countImpacted(report.Files)})
	t.Render()

	return b.String()
}

func outcomeLabel(file models.FileResult) string {
	switch file.Outcome {
	case models.OutcomeNewModel:
		return "new model"
	case models.OutcomeNotFound:
		return "not found"
	case models.OutcomeNotMaterialized:
		return "not materialized"
	case models.OutcomeDownstreamError:
		return "lineage failed"
	case models.OutcomeImpact:
		return "impact"
	}
	return string(file.Outcome)
}

func downstreamLabel(file models.FileResult) string {
	if file.Downstream == nil {
		return "-"
	}
	if file.Downstream.HasMore {
		return fmt.Sprintf("%d (showing %d)", file.Downstream.EntityCount, len(file.Downstream.Entities))
	}
	return fmt.Sprintf("%d", file.Downstream.EntityCount)
}

func countImpacted(files []models.FileResult) int {
	total := 0
	for _, file := range files {
		if file.Downstream != nil {
			total += file.Downstream.EntityCount
		}
	}
	return total
}

func supportsANSI(out io.Writer) bool {
	file, ok := out.(*os.File)
	if !ok {
		return false
	}

	info, err := file.Stat()
	if err != nil {
		return false
	}

	return info.Mode()&os.ModeCharDevice != 0
}
