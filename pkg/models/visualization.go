package models

// VisualizationKind identifies the chart family a spec renders as.
type VisualizationKind string

const (
	VizBarChart VisualizationKind = "bar_chart"
	VizPieChart VisualizationKind = "pie_chart"
	VizHeatmap  VisualizationKind = "heatmap"
)

// VisualizationSpec is a chart-ready aggregate derived from one table.
// Payload shape depends on the kind: bar charts carry per-column null
// counts, pie charts carry storage-kind counts, heatmaps carry describe
// statistics keyed by column name.
type VisualizationSpec struct {
	Kind    VisualizationKind `json:"kind"`
	Title   string            `json:"title"`
	Payload map[string]any    `json:"payload"`
}
