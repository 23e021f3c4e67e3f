package models

// FileStatus classifies how a model file changed in the request
type FileStatus string

const (
	StatusAdded          FileStatus = "added"
	StatusModified       FileStatus = "modified"
	StatusRenamedOrMoved FileStatus = "renamed_or_moved"
)

// DiffEntry is one path from the hosting platform's change listing
type DiffEntry struct {
	NewPath   string
	OldPath   string
	IsNewFile bool
}

// ChangedFile is a changed dbt model file, deduplicated by FileName
type ChangedFile struct {
	FileName    string     `json:"file_name"` // model identity derived from the path
	FilePath    string     `json:"file_path"` // repo-relative path
	Status      FileStatus `json:"status"`
	RevisionRef string     `json:"revision_ref,omitempty"` // commit the contents are read at
}

// Asset is a catalog entity as returned by search and lineage endpoints
type Asset struct {
	GUID                string     `json:"guid"`
	TypeName            string     `json:"typeName"`
	DisplayText         string     `json:"displayText"`
	Attributes          Attributes `json:"attributes"`
	ClassificationNames []string   `json:"classificationNames,omitempty"`
	Meanings            []Meaning  `json:"meanings,omitempty"`
}

// Attributes holds the catalog attributes requested for every asset
type Attributes struct {
	Name                    string   `json:"name"`
	Description             string   `json:"description,omitempty"`
	UserDescription         string   `json:"userDescription,omitempty"`
	SourceURL               string   `json:"sourceURL,omitempty"`
	QualifiedName           string   `json:"qualifiedName,omitempty"`
	ConnectorName           string   `json:"connectorName,omitempty"`
	CertificateStatus       string   `json:"certificateStatus,omitempty"`
	CertificateUpdatedBy    string   `json:"certificateUpdatedBy,omitempty"`
	CertificateUpdatedAt    int64    `json:"certificateUpdatedAt,omitempty"`
	OwnerUsers              []string `json:"ownerUsers,omitempty"`
	OwnerGroups             []string `json:"ownerGroups,omitempty"`
	AssetDbtProjectName     string   `json:"assetDbtProjectName,omitempty"`
	AssetDbtEnvironmentName string   `json:"assetDbtEnvironmentName,omitempty"`
	DbtModelSQLAssets       []Asset  `json:"dbtModelSqlAssets,omitempty"`
}

// Meaning is a business glossary term linked to an asset
type Meaning struct {
	DisplayText string `json:"displayText"`
	TermGUID    string `json:"termGuid"`
}

// Classification is a tag definition from the catalog type system
type Classification struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// DownstreamSet is the merged result of the downstream lineage pages
type DownstreamSet struct {
	Entities    []Asset `json:"entities"`
	EntityCount int     `json:"entity_count"`
	HasMore     bool    `json:"has_more"`
}

// Comment is a bot comment on a pull/merge request
type Comment struct {
	ID     int64
	Author string
	Body   string
}

// MaterializedAsset returns the first dbtModelSqlAssets entry, the canonical
// materialized table of a dbt model.
func (a *Asset) MaterializedAsset() (Asset, bool) {
	if a == nil || len(a.Attributes.DbtModelSQLAssets) == 0 {
		return Asset{}, false
	}
	return a.Attributes.DbtModelSQLAssets[0], true
}

// IsMaterialized reports whether the model compiles to a tracked table
func (a *Asset) IsMaterialized() bool {
	_, ok := a.MaterializedAsset()
	return ok
}

// PreferredDescription prefers the user-supplied description over the generated one
func (attrs Attributes) PreferredDescription() string {
	if attrs.UserDescription != "" {
		return attrs.UserDescription
	}
	return attrs.Description
}

// Owners returns owner users followed by owner groups
func (attrs Attributes) Owners() []string {
	owners := make([]string, 0, len(attrs.OwnerUsers)+len(attrs.OwnerGroups))
	owners = append(owners, attrs.OwnerUsers...)
	return append(owners, attrs.OwnerGroups...)
}
