package visualize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sourcesense-inc/sourcesense-engine/pkg/connector"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/models"
)

func numericTable() *connector.TabularData {
	return &connector.TabularData{
		Columns: []connector.Column{
			{Name: "id", Kind: connector.KindInt64, Values: []any{int64(1), int64(2), int64(3), int64(4)}},
			{Name: "city", Kind: connector.KindObject, Values: []any{"a", nil, "c", nil}},
			{Name: "note", Kind: connector.KindObject, Values: []any{"x", "y", "z", "w"}},
		},
	}
}

func textOnlyTable() *connector.TabularData {
	return &connector.TabularData{
		Columns: []connector.Column{
			{Name: "city", Kind: connector.KindObject, Values: []any{"a", "b"}},
		},
	}
}

func TestTableVisualizations_WithNumericColumn(t *testing.T) {
	agg := NewAggregator(zap.NewNop())
	specs := agg.TableVisualizations(numericTable(), "orders")

	require.Len(t, specs, 3)
	assert.Equal(t, models.VizBarChart, specs[0].Kind)
	assert.Equal(t, models.VizPieChart, specs[1].Kind)
	assert.Equal(t, models.VizHeatmap, specs[2].Kind)

	assert.Equal(t, "Data Quality Overview - orders", specs[0].Title)
	assert.Equal(t, "Data Type Distribution - orders", specs[1].Title)
	assert.Equal(t, "Numeric Column Statistics - orders", specs[2].Title)
}

func TestTableVisualizations_NoNumericColumn(t *testing.T) {
	agg := NewAggregator(zap.NewNop())
	specs := agg.TableVisualizations(textOnlyTable(), "notes")

	require.Len(t, specs, 2)
	assert.Equal(t, models.VizBarChart, specs[0].Kind)
	assert.Equal(t, models.VizPieChart, specs[1].Kind)
}

func TestTableVisualizations_EmptyTable(t *testing.T) {
	agg := NewAggregator(zap.NewNop())

	assert.Nil(t, agg.TableVisualizations(&connector.TabularData{}, "empty"))
	assert.Nil(t, agg.TableVisualizations(nil, "nil"))
}

func TestNullCountBar(t *testing.T) {
	agg := NewAggregator(zap.NewNop())
	specs := agg.TableVisualizations(numericTable(), "orders")

	payload := specs[0].Payload
	assert.Equal(t, []string{"id", "city", "note"}, payload["columns"])
	assert.Equal(t, []int{0, 2, 0}, payload["null_counts"])
	assert.Equal(t, 4, payload["total_rows"])
}

// Pie slices are ordered by count descending, then label ascending. The
// payload carries the slice sizes under "values".
func TestTypeDistributionPie_Ordering(t *testing.T) {
	agg := NewAggregator(zap.NewNop())
	specs := agg.TableVisualizations(numericTable(), "orders")

	payload := specs[1].Payload
	assert.Equal(t, []string{"object", "int64"}, payload["labels"])
	assert.Equal(t, []int{2, 1}, payload["values"])
	assert.NotContains(t, payload, "counts")
}

func TestNumericStatsHeatmap_DescribeStatistics(t *testing.T) {
	agg := NewAggregator(zap.NewNop())
	specs := agg.TableVisualizations(numericTable(), "orders")

	payload := specs[2].Payload
	assert.Equal(t, []string{"id"}, payload["columns"])
	statistics, ok := payload["statistics"].(map[string]map[string]float64)
	require.True(t, ok)

	described, ok := statistics["id"]
	require.True(t, ok)
	assert.Equal(t, 4.0, described["count"])
	assert.Equal(t, 2.5, described["mean"])
	assert.Equal(t, 1.0, described["min"])
	assert.Equal(t, 4.0, described["max"])
	assert.Contains(t, described, "25%")
	assert.Contains(t, described, "50%")
	assert.Contains(t, described, "75%")
	assert.Contains(t, described, "std")
	assert.GreaterOrEqual(t, described["50%"], 2.0)
	assert.LessOrEqual(t, described["50%"], 2.5)
}

// A single-value column has no defined standard deviation; the key is
// omitted rather than emitted as NaN.
func TestDescribe_SingleValueOmitsStd(t *testing.T) {
	described := describe([]any{int64(7)})
	require.NotNil(t, described)
	assert.Equal(t, 1.0, described["count"])
	assert.Equal(t, 7.0, described["mean"])
	assert.NotContains(t, described, "std")
}

func TestDescribe_AllNull(t *testing.T) {
	assert.Nil(t, describe([]any{nil, nil}))
}
