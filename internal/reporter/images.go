package reporter

import (
	"fmt"
	"strings"
)

type hostedImage struct {
	alt string
	src string
}

const assetHost = "https://assets.atlan.com/assets/"

// hostedImages maps image keys to their public URLs.
// Unknown keys render as an empty string.
var hostedImages = map[string]hostedImage{
	"atlan-logo":                        {alt: "Atlan Logo", src: assetHost + "atlan-a-logo-blue.svg"},
	"dbt":                               {alt: "dbt", src: assetHost + "dbt-new.svg"},
	"certification-verified":            {alt: "Certificate Verified", src: assetHost + "verified-status.svg"},
	"certification-draft":               {alt: "Certificate Draft", src: assetHost + "draft-status.svg"},
	"certification-deprecated":          {alt: "Certificate Deprecated", src: assetHost + "deprecated-status.svg"},
	"connector-athena":                  {alt: "Connector Athena", src: assetHost + "athena.svg"},
	"connector-azure-datalake":          {alt: "Connector Azure Datalake", src: assetHost + "azure-datalake.svg"},
	"connector-bigquery":                {alt: "Connector BigQuery", src: assetHost + "bigquery.svg"},
	"connector-databricks":              {alt: "Connector Databricks", src: assetHost + "databricks.svg"},
	"connector-dbt":                     {alt: "Connector dbt", src: assetHost + "dbt-new.svg"},
	"connector-glue":                    {alt: "Connector Glue", src: assetHost + "glue.svg"},
	"connector-hive":                    {alt: "Connector Hive", src: assetHost + "hive.svg"},
	"connector-looker":                  {alt: "Connector Looker", src: assetHost + "looker.svg"},
	"connector-metabase":                {alt: "Connector Metabase", src: assetHost + "metabase.svg"},
	"connector-microsoft-azure-synapse": {alt: "Connector Microsoft Azure Synapse", src: assetHost + "azure-synapse.svg"},
	"connector-mode":                    {alt: "Connector Mode", src: assetHost + "mode.svg"},
	"connector-mssql":                   {alt: "Connector MSSQL", src: assetHost + "mssql.svg"},
	"connector-mysql":                   {alt: "Connector MySQL", src: assetHost + "mysql.svg"},
	"connector-oracle":                  {alt: "Connector Oracle", src: assetHost + "oracle.svg"},
	"connector-postgres":                {alt: "Connector Postgres", src: assetHost + "postgres.svg"},
	"connector-powerbi":                 {alt: "Connector Power BI", src: assetHost + "powerbi.svg"},
	"connector-presto":                  {alt: "Connector Presto", src: assetHost + "presto.svg"},
	"connector-quicksight":              {alt: "Connector QuickSight", src: assetHost + "quicksight.svg"},
	"connector-redash":                  {alt: "Connector Redash", src: assetHost + "redash.svg"},
	"connector-redshift":                {alt: "Connector Redshift", src: assetHost + "redshift.svg"},
	"connector-salesforce":              {alt: "Connector Salesforce", src: assetHost + "salesforce.svg"},
	"connector-sigma":                   {alt: "Connector Sigma", src: assetHost + "sigma.svg"},
	"connector-snowflake":               {alt: "Connector Snowflake", src: assetHost + "snowflake.svg"},
	"connector-tableau":                 {alt: "Connector Tableau", src: assetHost + "tableau.svg"},
	"connector-thoughtspot":             {alt: "Connector ThoughtSpot", src: assetHost + "thoughtspot.svg"},
	"connector-trino":                   {alt: "Connector Trino", src: assetHost + "trino.svg"},
}

// ImageURL renders an <img> tag for a hosted image
func ImageURL(name string, height, width int) string {
	image, ok := hostedImages[name]
	if !ok {
		return ""
	}
	return fmt.Sprintf(`<img src="%s" alt="%s" height="%d" width="%d"/>`, image.src, image.alt, height, width)
}

// ConnectorImage renders the 15x15 icon for a connector
func ConnectorImage(connectorName string) string {
	return ImageURL("connector-"+strings.ToLower(connectorName), 15, 15)
}

// CertificationImage renders the 15x15 badge for a certificate status
func CertificationImage(status string) string {
	return ImageURL("certification-"+strings.ToLower(status), 15, 15)
}
