package models

import "time"

// LookupStatus is the ternary outcome of a catalog model lookup
type LookupStatus string

const (
	LookupNotFound           LookupStatus = "not_found"
	LookupDoesNotMaterialize LookupStatus = "does_not_materialize"
	LookupFound              LookupStatus = "found"
)

// FileOutcome summarizes what happened to one changed file in a run
type FileOutcome string

const (
	OutcomeNewModel        FileOutcome = "new_model"
	OutcomeNotFound        FileOutcome = "not_found"
	OutcomeNotMaterialized FileOutcome = "not_materialized"
	OutcomeDownstreamError FileOutcome = "downstream_error"
	OutcomeImpact          FileOutcome = "impact"
)

// FileResult is the per-file result accumulated by the orchestrator
type FileResult struct {
	File         ChangedFile    `json:"file"`
	AssetName    string         `json:"asset_name"`
	Environment  string         `json:"environment,omitempty"`
	Outcome      FileOutcome    `json:"outcome"`
	Asset        *Asset         `json:"asset,omitempty"`
	Materialized *Asset         `json:"materialized,omitempty"`
	Downstream   *DownstreamSet `json:"downstream,omitempty"`
	Error        string         `json:"error,omitempty"`
	Section      string         `json:"-"` // rendered Markdown for this file
}

// ResourceResult records a resource attachment attempt on one guid
type ResourceResult struct {
	GUID          string `json:"guid"`
	Name          string `json:"name"`
	ConnectorName string `json:"connector_name,omitempty"`
	Attached      bool   `json:"attached"`
}

// Report is the complete output of one run, written by the local integration
type Report struct {
	Tool        string       `json:"tool"`
	Version     string       `json:"version"`
	Integration string       `json:"integration"`
	GeneratedAt time.Time    `json:"generated_at"`
	Duration    string       `json:"duration"`
	Files       []FileResult `json:"files"`
	Comment     string       `json:"comment"`
}
