package reporter

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ppiankov/dbtspectre/internal/models"
)

const (
	maxCellRunes = 100
	maxCellItems = 10
	sectionBreak = "\n\n---\n\n"
)

// Renderer turns analysis results into the Markdown posted on requests.
// Links carry a utm_source naming the integration.
type Renderer struct {
	instanceURL string
	utmSource   string
}

// NewRenderer creates a renderer for the given instance and integration name
// ("github", "gitlab" or "local").
func NewRenderer(instanceURL, integration string) *Renderer {
	return &Renderer{
		instanceURL: strings.TrimRight(instanceURL, "/"),
		utmSource:   "dbt_" + integration + "_action",
	}
}

func (r *Renderer) assetURL(guid, view string) string {
	return fmt.Sprintf("%s/assets/%s/%s?utm_source=%s", r.instanceURL, guid, view, r.utmSource)
}

// Section renders the comment block for one file result
func (r *Renderer) Section(result models.FileResult, classifications []models.Classification) string {
	switch result.Outcome {
	case models.OutcomeNewModel:
		return r.NewModel(result.File.FileName)
	case models.OutcomeNotFound:
		return r.NotFound(result.AssetName)
	case models.OutcomeNotMaterialized:
		guid := ""
		if result.Asset != nil {
			guid = result.Asset.GUID
		}
		return r.DoesNotMaterialize(result.AssetName, guid)
	case models.OutcomeDownstreamError:
		return r.DownstreamFailure(result.Asset)
	case models.OutcomeImpact:
		return r.Impact(result.Asset, result.Materialized, result.Downstream, classifications)
	}
	return ""
}

// NewModel is shown for models added in the request
func (r *Renderer) NewModel(fileName string) string {
	return fmt.Sprintf("### %s <b>%s</b> 🆕\nIts a new model and not present in Atlan yet, you'll see the downstream impact for it after its present in Atlan.",
		ConnectorImage("dbt"), fileName)
}

// NotFound is shown when no model matches the name
func (r *Renderer) NotFound(name string) string {
	return fmt.Sprintf("❌ Model with name **%s** could not be found or is deleted <br><br>", name)
}

// DoesNotMaterialize is shown when the model has no materialized asset
func (r *Renderer) DoesNotMaterialize(name, guid string) string {
	return fmt.Sprintf("❌ Model with name [%s](%s) does not materialise any asset <br><br>",
		name, r.assetURL(guid, "overview"))
}

// DownstreamFailure is shown when lineage could not be fetched for a model
func (r *Renderer) DownstreamFailure(model *models.Asset) string {
	if model == nil {
		return "_Failed to fetch impacted assets._"
	}
	return fmt.Sprintf("### %s [%s](%s) %s\n\n_Failed to fetch impacted assets._\n\n%s [View lineage in Atlan](%s)",
		ConnectorImage(model.Attributes.ConnectorName),
		model.DisplayText,
		r.assetURL(model.GUID, "overview"),
		CertificationImage(model.Attributes.CertificateStatus),
		ImageURL("atlan-logo", 15, 15),
		r.assetURL(model.GUID, "lineage/overview"))
}

// Impact renders asset info, the downstream table and the view button
func (r *Renderer) Impact(model, materialized *models.Asset, set *models.DownstreamSet, classifications []models.Classification) string {
	if model == nil || materialized == nil {
		return ""
	}

	table := "No downstream assets found."
	if set != nil && len(set.Entities) > 0 {
		table = r.downstreamTable(materialized.GUID, set, classifications)
	}

	return r.assetInfo(model, materialized) + "\n\n" + table + "\n\n" + r.viewButton(model.GUID)
}

func (r *Renderer) assetInfo(model, materialized *models.Asset) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s [%s](%s) %s\nMaterialised asset: %s [%s](%s) %s",
		ConnectorImage(model.Attributes.ConnectorName),
		model.DisplayText,
		r.assetURL(model.GUID, "overview"),
		CertificationImage(model.Attributes.CertificateStatus),
		ConnectorImage(materialized.Attributes.ConnectorName),
		materialized.Attributes.Name,
		r.assetURL(materialized.GUID, "overview"),
		CertificationImage(materialized.Attributes.CertificateStatus))

	if env := materialized.Attributes.AssetDbtEnvironmentName; env != "" {
		fmt.Fprintf(&b, " | Environment Name: `%s`", env)
	}
	if project := materialized.Attributes.AssetDbtProjectName; project != "" {
		fmt.Fprintf(&b, " | Project Name: `%s`", project)
	}
	return b.String()
}

func (r *Renderer) viewButton(guid string) string {
	return fmt.Sprintf("%s [View asset in Atlan](%s)", ImageURL("atlan-logo", 15, 15), r.assetURL(guid, "overview"))
}

func (r *Renderer) downstreamTable(materializedGUID string, set *models.DownstreamSet, classifications []models.Classification) string {
	rows := r.impactRows(set.Entities, classifications)
	sortImpactRows(rows)

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, r.renderRow(row))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<details><summary><b>%d downstream assets 👇</b></summary><br/>\n\n", set.EntityCount)
	b.WriteString("Name | Type | Description | Owners | Terms | Classifications | Source URL\n")
	b.WriteString("--- | --- | --- | --- | --- | --- | ---\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\n")
	if set.HasMore {
		fmt.Fprintf(&b, "[See more downstream assets at Atlan](%s)", r.assetURL(materializedGUID, "lineage"))
	}
	b.WriteString("\n\n</details>")
	return b.String()
}

// impactRow is one downstream asset prepared for the table
type impactRow struct {
	guid              string
	displayText       string
	connectorName     string
	typeLabel         string
	description       string
	certificateStatus string
	owners            string
	terms             string
	classifications   string
	sourceURL         string
}

func (r *Renderer) impactRows(entities []models.Asset, classifications []models.Classification) []impactRow {
	displayNames := make(map[string]string, len(classifications))
	for _, class := range classifications {
		displayNames[class.Name] = class.DisplayName
	}

	rows := make([]impactRow, 0, len(entities))
	for _, entity := range entities {
		attrs := entity.Attributes

		terms := make([]string, 0, len(entity.Meanings))
		for _, meaning := range entity.Meanings {
			terms = append(terms, fmt.Sprintf("[%s](%s)", meaning.DisplayText, r.assetURL(meaning.TermGUID, "overview")))
		}

		tags := make([]string, 0, len(classifications))
		for _, class := range classifications {
			if slices.Contains(entity.ClassificationNames, class.Name) {
				tags = append(tags, "`"+displayNames[class.Name]+"`")
			}
		}

		rows = append(rows, impactRow{
			guid:              entity.GUID,
			displayText:       truncate(entity.DisplayText),
			connectorName:     truncate(attrs.ConnectorName),
			typeLabel:         truncate(TypeLabel(entity.TypeName, attrs.ConnectorName)),
			description:       truncate(attrs.PreferredDescription()),
			certificateStatus: attrs.CertificateStatus,
			owners:            truncateList(attrs.Owners()),
			terms:             truncateList(terms),
			classifications:   truncateList(tags),
			sourceURL:         attrs.SourceURL,
		})
	}
	return rows
}

// sortImpactRows orders rows by type label and then by connector, both
// with English collation. The second stable pass makes connector the
// primary key and keeps type order within a connector.
func sortImpactRows(rows []impactRow) {
	collator := collate.New(language.English)
	slices.SortStableFunc(rows, func(a, b impactRow) int {
		return collator.CompareString(a.typeLabel, b.typeLabel)
	})
	slices.SortStableFunc(rows, func(a, b impactRow) int {
		return collator.CompareString(a.connectorName, b.connectorName)
	})
}

func (r *Renderer) renderRow(row impactRow) string {
	source := " "
	if row.sourceURL != "" {
		source = fmt.Sprintf("[Open in %s](%s)", row.connectorName, row.sourceURL)
	}

	cells := []string{
		fmt.Sprintf("%s [%s](%s) %s",
			ConnectorImage(row.connectorName),
			row.displayText,
			r.assetURL(row.guid, "overview"),
			CertificationImage(row.certificateStatus)),
		"`" + row.typeLabel + "`",
		row.description,
		row.owners,
		row.terms,
		row.classifications,
		source,
	}
	for i, cell := range cells {
		cells[i] = escapeCell(cell)
	}
	return strings.Join(cells, " | ")
}

// escapeCell keeps a value inside its table cell
func escapeCell(value string) string {
	value = strings.ReplaceAll(value, "|", "•")
	return strings.ReplaceAll(value, "\n", "")
}

// TypeLabel derives a short type label by dropping the connector name from
// the type name, so SnowflakeDynamicTable on snowflake becomes Dynamictable.
func TypeLabel(typeName, connectorName string) string {
	label := strings.ToLower(typeName)
	if connectorName != "" {
		label = strings.Replace(label, connectorName, "", 1)
	}
	first, size := utf8.DecodeRuneInString(label)
	if first == utf8.RuneError {
		return label
	}
	return string(unicode.ToUpper(first)) + strings.ToLower(label[size:])
}

func truncate(value string) string {
	if utf8.RuneCountInString(value) > maxCellRunes {
		return string([]rune(value)[:maxCellRunes]) + "..."
	}
	return value
}

func truncateList(items []string) string {
	if len(items) > maxCellItems {
		return strings.Join(items[:maxCellItems], ", ") + "..."
	}
	return strings.Join(items, ", ")
}

// BaseComment wraps the per-file sections into the request comment.
// count is the number of changed model files in the run.
func (r *Renderer) BaseComment(count int, sections []string) string {
	noun := "model"
	if count > 1 {
		noun = "models"
	}
	return fmt.Sprintf("### %s Atlan impact analysis\nHere is your downstream impact analysis for **%d %s** you have edited.\n\n%s",
		ImageURL("atlan-logo", 15, 15), count, noun, strings.Join(sections, sectionBreak))
}

// MergeComment reports which assets received the merged request as a resource
func (r *Renderer) MergeComment(resources []models.ResourceResult) string {
	var b strings.Builder
	b.WriteString("## 🎊 Congrats on the merge!\n\n")

	if len(resources) == 0 {
		b.WriteString("None of the edited models had downstream assets, so no resources were added.")
		return b.String()
	}

	b.WriteString("This pull request has been added as a resource to the following assets:\n")
	b.WriteString("Name | Resource set successfully\n")
	b.WriteString("--- | ---\n")

	failed := false
	for _, resource := range resources {
		status := "✅"
		if !resource.Attached {
			status = "❌"
			failed = true
		}
		fmt.Fprintf(&b, "%s [%s](%s) | %s\n",
			ConnectorImage(resource.ConnectorName),
			escapeCell(resource.Name),
			r.assetURL(resource.GUID, "overview"),
			status)
	}

	if failed {
		b.WriteString("\n> Seems like we were unable to set the resources for some of the assets due to insufficient permissions. " +
			"To ensure that the pull request is linked as a resource, you will need to assign the right persona with requisite permissions to the API token.")
	}
	return b.String()
}
