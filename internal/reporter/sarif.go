package reporter

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ppiankov/dbtspectre/internal/models"
)

const (
	ruleDownstreamImpact = "dbtspectre/DOWNSTREAM_IMPACT"
	ruleNotInCatalog     = "dbtspectre/NOT_IN_CATALOG"
	ruleLineageFailed    = "dbtspectre/LINEAGE_UNAVAILABLE"

	ruleIndexDownstreamImpact = 0
	ruleIndexNotInCatalog     = 1
	ruleIndexLineageFailed    = 2

	sarifFileName  = "impact.sarif"
	sarifSchemaURI = "https://docs.oasis-open.org/sarif/sarif/v2.1.0/cs01/schemas/sarif-schema-2.1.0.json"
)

var semanticVersionPattern = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)(?:-[0-9A-Za-z.-]+)?(?:\+[0-9A-Za-z.-]+)?$`)

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool              sarifTool               `json:"tool"`
	Results           []sarifResult           `json:"results"`
	AutomationDetails *sarifAutomationDetails `json:"automationDetails,omitempty"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifAutomationDetails struct {
	ID string `json:"id"`
}

type sarifDriver struct {
	Name            string       `json:"name"`
	Version         string       `json:"version,omitempty"`
	InformationURI  string       `json:"informationUri,omitempty"`
	ShortDesc       sarifMessage `json:"shortDescription"`
	FullDesc        sarifMessage `json:"fullDescription"`
	Rules           []sarifRule  `json:"rules"`
	SemanticVersion string       `json:"semanticVersion,omitempty"`
}

type sarifRule struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	ShortDesc     sarifMessage `json:"shortDescription"`
	FullDesc      sarifMessage `json:"fullDescription"`
	DefaultConfig sarifConfig  `json:"defaultConfiguration"`
}

type sarifConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	RuleIndex           *int              `json:"ruleIndex,omitempty"`
	Level               string            `json:"level,omitempty"`
	Message             sarifMessage      `json:"message"`
	Locations           []sarifLocation   `json:"locations,omitempty"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
	Properties          map[string]any    `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation  `json:"physicalLocation,omitempty"`
	LogicalLocations []sarifLogicalLocation `json:"logicalLocations,omitempty"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           *sarifRegion          `json:"region,omitempty"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine,omitempty"`
}

type sarifLogicalLocation struct {
	Name               string `json:"name,omitempty"`
	FullyQualifiedName string `json:"fullyQualifiedName,omitempty"`
	Kind               string `json:"kind,omitempty"`
}

// WriteSARIF writes SARIF 2.1.0 output to impact.sarif in outputDir.
// Every changed model becomes one result located at its file.
func WriteSARIF(report *models.Report, outputDir string) (string, error) {
	if report == nil {
		return "", fmt.Errorf("report is nil")
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	output := sarifLog{
		Version: "2.1.0",
		Schema:  sarifSchemaURI,
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:            report.Tool,
						Version:         report.Version,
						SemanticVersion: normalizeSemanticVersion(report.Version),
						InformationURI:  "https://github.com/ppiankov/dbtspectre",
						ShortDesc:       sarifMessage{Text: "dbt model impact analyzer"},
						FullDesc:        sarifMessage{Text: "Reports catalog assets downstream of changed dbt models."},
						Rules: []sarifRule{
							{
								ID:            ruleDownstreamImpact,
								Name:          "DOWNSTREAM_IMPACT",
								ShortDesc:     sarifMessage{Text: "Model change affects downstream assets"},
								FullDesc:      sarifMessage{Text: "The changed model materializes an asset that other catalog assets depend on."},
								DefaultConfig: sarifConfig{Level: "warning"},
							},
							{
								ID:            ruleNotInCatalog,
								Name:          "NOT_IN_CATALOG",
								ShortDesc:     sarifMessage{Text: "Model is not tracked in the catalog"},
								FullDesc:      sarifMessage{Text: "The model is new, missing or does not materialize an asset, so its impact is unknown."},
								DefaultConfig: sarifConfig{Level: "note"},
							},
							{
								ID:            ruleLineageFailed,
								Name:          "LINEAGE_UNAVAILABLE",
								ShortDesc:     sarifMessage{Text: "Downstream lineage could not be fetched"},
								FullDesc:      sarifMessage{Text: "The model was found but its downstream lineage request failed."},
								DefaultConfig: sarifConfig{Level: "warning"},
							},
						},
					},
				},
				Results: buildSARIFResults(report),
				AutomationDetails: &sarifAutomationDetails{
					ID: "dbtspectre/" + report.Integration,
				},
			},
		},
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal SARIF: %w", err)
	}

	outputPath := filepath.Join(outputDir, sarifFileName)
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", sarifFileName, err)
	}

	return outputPath, nil
}

func buildSARIFResults(report *models.Report) []sarifResult {
	results := make([]sarifResult, 0, len(report.Files))

	for _, file := range report.Files {
		result := sarifResult{
			Locations: modelLocation(file),
			PartialFingerprints: map[string]string{
				"dbtspectre/findingHash": hashFinding(string(file.Outcome), file.File.FilePath, file.AssetName),
			},
			Properties: map[string]any{
				"outcome": string(file.Outcome),
				"model":   file.AssetName,
				"status":  string(file.File.Status),
			},
		}

		switch file.Outcome {
		case models.OutcomeImpact:
			count := 0
			if file.Downstream != nil {
				count = file.Downstream.EntityCount
			}
			if count == 0 {
				continue
			}
			result.RuleID = ruleDownstreamImpact
			result.RuleIndex = ruleIndexPtr(ruleIndexDownstreamImpact)
			result.Level = "warning"
			result.Message = sarifMessage{Text: fmt.Sprintf("Model %q has %d downstream assets.", file.AssetName, count)}
			result.Properties["downstream_count"] = count
			if file.Materialized != nil {
				result.Properties["materialized_guid"] = file.Materialized.GUID
			}
		case models.OutcomeDownstreamError:
			result.RuleID = ruleLineageFailed
			result.RuleIndex = ruleIndexPtr(ruleIndexLineageFailed)
			result.Level = "warning"
			result.Message = sarifMessage{Text: fmt.Sprintf("Downstream lineage for model %q could not be fetched.", file.AssetName)}
			result.Properties["error"] = file.Error
		default:
			result.RuleID = ruleNotInCatalog
			result.RuleIndex = ruleIndexPtr(ruleIndexNotInCatalog)
			result.Level = "note"
			result.Message = sarifMessage{Text: notInCatalogMessage(file)}
		}

		results = append(results, result)
	}

	return results
}

func notInCatalogMessage(file models.FileResult) string {
	switch file.Outcome {
	case models.OutcomeNewModel:
		return fmt.Sprintf("Model %q is new and not in the catalog yet.", file.File.FileName)
	case models.OutcomeNotMaterialized:
		return fmt.Sprintf("Model %q does not materialize any asset.", file.AssetName)
	default:
		return fmt.Sprintf("Model %q could not be found or is deleted.", file.AssetName)
	}
}

func modelLocation(file models.FileResult) []sarifLocation {
	uri := strings.TrimSpace(file.File.FilePath)
	if uri == "" {
		uri = "models/" + file.File.FileName + ".sql"
	}

	return []sarifLocation{
		{
			PhysicalLocation: sarifPhysicalLocation{
				ArtifactLocation: sarifArtifactLocation{URI: uri},
				Region:           &sarifRegion{StartLine: 1},
			},
			LogicalLocations: []sarifLogicalLocation{
				{
					Name:               file.AssetName,
					FullyQualifiedName: file.File.FileName,
					Kind:               "model",
				},
			},
		},
	}
}

func normalizeSemanticVersion(version string) string {
	normalized := strings.TrimSpace(strings.TrimPrefix(version, "v"))
	if semanticVersionPattern.MatchString(normalized) {
		return normalized
	}
	return ""
}

func hashFinding(parts ...string) string {
	canonical := strings.Join(parts, "\x1f")
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

func ruleIndexPtr(index int) *int {
	value := index
	return &value
}
