package transform

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// qnSeparator joins ancestor names into a qualified name. Fixed wire
// contract with the downstream catalog.
const qnSeparator = "/"

// visualizationRoot anchors visualization qualified names outside the
// database hierarchy.
const visualizationRoot = "visualizations"

var titleCaser = cases.Title(language.English)

// QualifiedName joins the ordered ancestor names with the catalog
// separator. Callers pass names in database, schema, table, column order.
func QualifiedName(parts ...string) string {
	return strings.Join(parts, qnSeparator)
}

// VisualizationQualifiedName builds the qualified name for a chart spec
// from its title, normalized to lower case with underscores.
func VisualizationQualifiedName(title string) string {
	return QualifiedName(visualizationRoot, NormalizeTitle(title))
}

// NormalizeTitle lower-cases a chart title and replaces spaces with
// underscores.
func NormalizeTitle(title string) string {
	return strings.ReplaceAll(strings.ToLower(title), " ", "_")
}

// DisplayName converts a raw record name into its human-readable form:
// underscores become spaces and each word is title-cased.
func DisplayName(name string) string {
	return titleCaser.String(strings.ReplaceAll(name, "_", " "))
}
