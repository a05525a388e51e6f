package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sourcesense-inc/sourcesense-engine/pkg/connector"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/models"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/retry"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/transform"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/visualize"
)

// fakeSource is an in-memory connector.Source for runner tests.
type fakeSource struct {
	info         models.SourceInfo
	tables       map[string]*connector.TabularData
	order        []string
	connectErr   error
	connectCalls int
	failTables   map[string]bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		info: models.SourceInfo{
			Name:      "fixture.xlsx",
			Path:      "/tmp/fixture.xlsx",
			SizeBytes: 1024,
			Extension: ".xlsx",
		},
		tables:     make(map[string]*connector.TabularData),
		failTables: make(map[string]bool),
	}
}

func (f *fakeSource) addTable(name string, data *connector.TabularData) {
	f.tables[name] = data
	f.order = append(f.order, name)
}

func (f *fakeSource) Connect(ctx context.Context) error {
	f.connectCalls++
	return f.connectErr
}

func (f *fakeSource) ListTables(ctx context.Context) ([]string, error) {
	return append([]string(nil), f.order...), nil
}

func (f *fakeSource) GetTable(ctx context.Context, name string) (*connector.TabularData, error) {
	if f.failTables[name] {
		return nil, errors.New("table load failed")
	}
	data, ok := f.tables[name]
	if !ok {
		return nil, errors.New("table not found")
	}
	return data, nil
}

func (f *fakeSource) SourceMetadata() models.SourceInfo { return f.info }
func (f *fakeSource) Disconnect() error                 { return nil }

func quickRetry() *retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxRetries = 1
	cfg.InitialDelay = 1
	return cfg
}

func newRunner(source connector.Source) (*Runner, *RunContext) {
	logger := zap.NewNop()
	stages := NewStages(
		source,
		visualize.NewAggregator(logger),
		transform.NewTransformer("excel-sourcesense", "default", logger),
		logger,
	)
	runner := NewRunner(stages, quickRetry(), nil, logger)
	rc := NewRunContext(uuid.New(), "/tmp/fixture.xlsx", "default")
	return runner, rc
}

func fixtureSource() *fakeSource {
	source := newFakeSource()
	source.addTable("orders", &connector.TabularData{
		Columns: []connector.Column{
			{Name: "x", Kind: connector.KindInt64, Values: []any{
				int64(1), int64(2), int64(3), int64(4), int64(5),
				int64(6), int64(7), int64(8), int64(9), nil,
			}},
		},
	})
	source.addTable("notes", &connector.TabularData{
		Columns: []connector.Column{
			{Name: "y", Kind: connector.KindObject, Values: []any{"a", nil, "b", nil, nil}},
		},
	})
	return source
}

func TestRun_EndToEnd(t *testing.T) {
	runner, rc := newRunner(fixtureSource())

	require.NoError(t, runner.Run(context.Background(), rc))

	require.NotNil(t, rc.Database)
	assert.Equal(t, "fixture", rc.Database.Name)
	assert.Equal(t, 2, rc.Database.TableCount)

	require.NotNil(t, rc.Schema)
	assert.Equal(t, "fixture", rc.Schema.Name)

	require.Len(t, rc.Tables, 2)
	assert.Equal(t, 10, rc.Tables[0].RowCount)
	assert.Equal(t, 5, rc.Tables[1].RowCount)

	require.Len(t, rc.Columns, 2)

	x := rc.Columns[0]
	assert.Equal(t, 1, x.NullCount)
	assert.Equal(t, 10.0, x.NullPercentage)
	assert.Equal(t, models.QualityHigh, x.QualityLevel)
	assert.NotNil(t, x.NumericStats)
	assert.Nil(t, x.StringStats)

	y := rc.Columns[1]
	assert.Equal(t, 3, y.NullCount)
	assert.Equal(t, 60.0, y.NullPercentage)
	assert.Equal(t, models.QualityLow, y.QualityLevel)
	assert.NotNil(t, y.StringStats)
	assert.Nil(t, y.NumericStats)

	// orders has a numeric column (3 specs), notes does not (2 specs)
	assert.Len(t, rc.Visualizations, 5)

	// 1 database + 1 schema + 2 tables + 2 columns + 5 visualizations
	assert.Len(t, rc.Entities, 11)

	for _, name := range models.AllStages() {
		_, ok := rc.StageResults[name]
		assert.True(t, ok, "missing result for stage %s", name)
	}
}

func TestRun_PreflightFailureAborts(t *testing.T) {
	source := fixtureSource()
	source.connectErr = errors.New("file is corrupt")
	runner, rc := newRunner(source)

	err := runner.Run(context.Background(), rc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PreflightCheck")

	// No extraction stage ran.
	assert.Nil(t, rc.Database)
	assert.Nil(t, rc.Tables)
	assert.Nil(t, rc.Entities)
}

// A permanent preflight failure burns no retries; a transient one is
// retried up to the configured budget.
func TestRun_PreflightRetryClassification(t *testing.T) {
	permanent := fixtureSource()
	permanent.connectErr = errors.New("source file not found")
	runner, rc := newRunner(permanent)

	require.Error(t, runner.Run(context.Background(), rc))
	assert.Equal(t, 1, permanent.connectCalls)

	transient := fixtureSource()
	transient.connectErr = errors.New("connection refused")
	runner, rc = newRunner(transient)

	require.Error(t, runner.Run(context.Background(), rc))
	// MaxRetries=1 means one initial attempt plus one retry.
	assert.Equal(t, 2, transient.connectCalls)
}

func TestRun_ZeroTables(t *testing.T) {
	runner, rc := newRunner(newFakeSource())

	require.NoError(t, runner.Run(context.Background(), rc))

	require.NotNil(t, rc.Database)
	assert.Equal(t, 0, rc.Database.TableCount)
	assert.Empty(t, rc.Tables)
	assert.Empty(t, rc.Columns)
	assert.Empty(t, rc.Visualizations)

	// Only database and schema entities remain.
	require.Len(t, rc.Entities, 2)
	assert.Equal(t, "ExcelDatabase", rc.Entities[0].TypeName)
	assert.Equal(t, "ExcelSchema", rc.Entities[1].TypeName)
}

func TestRun_FailedTableSkipped(t *testing.T) {
	source := fixtureSource()
	source.failTables["notes"] = true
	runner, rc := newRunner(source)

	require.NoError(t, runner.Run(context.Background(), rc))

	require.Len(t, rc.Tables, 1)
	assert.Equal(t, "orders", rc.Tables[0].Name)
	// Loaded tables define the reported count.
	assert.Equal(t, 1, rc.Database.TableCount)
	assert.Equal(t, 1, rc.StageResults[models.StageFetchTables].Errors)
	assert.Equal(t, 1, rc.StageResults[models.StageFetchTables].Processed)
}

// Re-running a list-building stage rebuilds its output instead of
// appending to it.
func TestStages_Idempotent(t *testing.T) {
	source := fixtureSource()
	logger := zap.NewNop()
	stages := NewStages(
		source,
		visualize.NewAggregator(logger),
		transform.NewTransformer("excel-sourcesense", "default", logger),
		logger,
	)
	rc := NewRunContext(uuid.New(), "/tmp/fixture.xlsx", "default")
	ctx := context.Background()

	require.NoError(t, source.Connect(ctx))
	_, err := stages.FetchDatabase(ctx, rc)
	require.NoError(t, err)
	_, err = stages.FetchSchema(ctx, rc)
	require.NoError(t, err)

	_, err = stages.FetchTables(ctx, rc)
	require.NoError(t, err)
	first := append([]models.TableInfo(nil), rc.Tables...)

	_, err = stages.FetchTables(ctx, rc)
	require.NoError(t, err)
	assert.Equal(t, first, rc.Tables)

	_, err = stages.FetchColumns(ctx, rc)
	require.NoError(t, err)
	firstCols := append([]models.ColumnProfile(nil), rc.Columns...)

	_, err = stages.FetchColumns(ctx, rc)
	require.NoError(t, err)
	assert.Equal(t, firstCols, rc.Columns)
}

func TestRun_Cancelled(t *testing.T) {
	runner, rc := newRunner(fixtureSource())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runner.Run(ctx, rc)
	assert.ErrorIs(t, err, context.Canceled)
}
