package visualize

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/sourcesense-inc/sourcesense-engine/pkg/connector"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/models"
)

// Aggregator derives chart-ready summaries from loaded tables.
type Aggregator struct {
	logger *zap.Logger
}

func NewAggregator(logger *zap.Logger) *Aggregator {
	return &Aggregator{logger: logger.Named("visualize")}
}

// TableVisualizations produces the aggregates for one table: a bar chart
// of per-column null counts, a pie chart of storage-kind distribution,
// and, when at least one numeric column exists, a heatmap of descriptive
// statistics. A failure while aggregating contributes zero specs for the
// table and never aborts the run.
func (a *Aggregator) TableVisualizations(data *connector.TabularData, tableName string) (specs []models.VisualizationSpec) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("visualization aggregation failed",
				zap.String("table", tableName),
				zap.Any("panic", r))
			specs = nil
		}
	}()

	if data == nil || data.ColumnCount() == 0 {
		return nil
	}

	specs = append(specs, a.nullCountBar(data, tableName))
	specs = append(specs, a.typeDistributionPie(data, tableName))
	if heatmap, ok := a.numericStatsHeatmap(data, tableName); ok {
		specs = append(specs, heatmap)
	}
	return specs
}

func (a *Aggregator) nullCountBar(data *connector.TabularData, tableName string) models.VisualizationSpec {
	columns := make([]string, 0, data.ColumnCount())
	nullCounts := make([]int, 0, data.ColumnCount())
	for _, col := range data.Columns {
		nulls := 0
		for _, v := range col.Values {
			if v == nil {
				nulls++
			}
		}
		columns = append(columns, col.Name)
		nullCounts = append(nullCounts, nulls)
	}
	return models.VisualizationSpec{
		Kind:  models.VizBarChart,
		Title: fmt.Sprintf("Data Quality Overview - %s", tableName),
		Payload: map[string]any{
			"columns":     columns,
			"null_counts": nullCounts,
			"total_rows":  data.RowCount(),
		},
	}
}

func (a *Aggregator) typeDistributionPie(data *connector.TabularData, tableName string) models.VisualizationSpec {
	byKind := make(map[string]int)
	for _, col := range data.Columns {
		byKind[string(col.Kind)]++
	}

	labels := make([]string, 0, len(byKind))
	for kind := range byKind {
		labels = append(labels, kind)
	}
	sort.Slice(labels, func(i, j int) bool {
		if byKind[labels[i]] != byKind[labels[j]] {
			return byKind[labels[i]] > byKind[labels[j]]
		}
		return labels[i] < labels[j]
	})

	values := make([]int, len(labels))
	for i, label := range labels {
		values[i] = byKind[label]
	}
	return models.VisualizationSpec{
		Kind:  models.VizPieChart,
		Title: fmt.Sprintf("Data Type Distribution - %s", tableName),
		Payload: map[string]any{
			"labels": labels,
			"values": values,
		},
	}
}

// numericStatsHeatmap builds describe-style statistics per numeric
// column. Statistics that are undefined for the sample (std of a single
// value) are omitted rather than emitted as NaN.
func (a *Aggregator) numericStatsHeatmap(data *connector.TabularData, tableName string) (models.VisualizationSpec, bool) {
	columns := make([]string, 0, data.ColumnCount())
	statistics := make(map[string]map[string]float64)
	for _, col := range data.Columns {
		if col.Kind != connector.KindInt64 && col.Kind != connector.KindFloat64 {
			continue
		}
		columns = append(columns, col.Name)
		if described := describe(col.Values); described != nil {
			statistics[col.Name] = described
		}
	}
	if len(statistics) == 0 {
		return models.VisualizationSpec{}, false
	}
	return models.VisualizationSpec{
		Kind:  models.VizHeatmap,
		Title: fmt.Sprintf("Numeric Column Statistics - %s", tableName),
		Payload: map[string]any{
			"columns":    columns,
			"statistics": statistics,
		},
	}, true
}

// describe computes count/mean/std/min/quartiles/max over the non-null
// values. Returns nil for an all-null column.
func describe(values []any) map[string]float64 {
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		switch n := v.(type) {
		case int64:
			nums = append(nums, float64(n))
		case float64:
			nums = append(nums, n)
		}
	}
	if len(nums) == 0 {
		return nil
	}
	sort.Float64s(nums)

	described := map[string]float64{
		"count": float64(len(nums)),
		"mean":  stat.Mean(nums, nil),
		"min":   nums[0],
		"25%":   stat.Quantile(0.25, stat.LinInterp, nums, nil),
		"50%":   stat.Quantile(0.5, stat.LinInterp, nums, nil),
		"75%":   stat.Quantile(0.75, stat.LinInterp, nums, nil),
		"max":   nums[len(nums)-1],
	}
	if sd := stat.StdDev(nums, nil); !math.IsNaN(sd) {
		described["std"] = sd
	}
	return described
}
