package transform

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sourcesense-inc/sourcesense-engine/pkg/models"
)

// Audit actor stamped on every entity envelope. Wire contract.
const auditActor = "ExcelSourceSense"

// entityStatus is the fixed catalog lifecycle status for new entities.
const entityStatus = "ACTIVE"

// Input carries the profiled metadata records the transformer maps.
// Fields mirror the run context's accumulation order.
type Input struct {
	Database       *models.DatabaseInfo
	Schema         *models.SchemaInfo
	Tables         []models.TableInfo
	Columns        []models.ColumnProfile
	Visualizations []models.VisualizationSpec
}

// Transformer maps profiled metadata records into catalog entities.
type Transformer struct {
	connectorName string
	tenantID      string
	logger        *zap.Logger
	now           func() time.Time
}

func NewTransformer(connectorName, tenantID string, logger *zap.Logger) *Transformer {
	return &Transformer{
		connectorName: connectorName,
		tenantID:      tenantID,
		logger:        logger.Named("transform"),
		now:           time.Now,
	}
}

// Transform maps every record in the input to a catalog entity, in fixed
// order: database, schema, tables, columns, visualizations. A record
// whose mapper fails becomes an empty placeholder entity and counts as
// one error; the run continues. A failure outside per-record handling
// discards the whole output and returns an empty list.
func (t *Transformer) Transform(in Input) (entities []models.CatalogEntity, errorCount int) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("transform failed, discarding output", zap.Any("panic", r))
			entities = []models.CatalogEntity{}
			errorCount = 1
		}
	}()

	entities = []models.CatalogEntity{}

	if in.Database != nil {
		entities, errorCount = t.appendEntity(entities, errorCount, "database", func() (mapped, error) {
			return t.mapDatabase(*in.Database)
		})
	}
	if in.Schema != nil {
		entities, errorCount = t.appendEntity(entities, errorCount, "schema", func() (mapped, error) {
			return t.mapSchema(*in.Schema)
		})
	}
	for _, table := range in.Tables {
		table := table
		entities, errorCount = t.appendEntity(entities, errorCount, "table", func() (mapped, error) {
			return t.mapTable(table)
		})
	}
	for _, col := range in.Columns {
		col := col
		entities, errorCount = t.appendEntity(entities, errorCount, "column", func() (mapped, error) {
			return t.mapColumn(col)
		})
	}
	for _, viz := range in.Visualizations {
		viz := viz
		entities, errorCount = t.appendEntity(entities, errorCount, "visualization", func() (mapped, error) {
			return t.mapVisualization(viz)
		})
	}

	return entities, errorCount
}

// appendEntity runs one mapper and wraps its output in the envelope.
// On mapper failure the placeholder entity keeps the list position.
func (t *Transformer) appendEntity(entities []models.CatalogEntity, errorCount int, kind string, mapFn func() (mapped, error)) ([]models.CatalogEntity, int) {
	m, err := mapFn()
	if err != nil {
		t.logger.Warn("entity mapping failed, emitting placeholder",
			zap.String("kind", kind),
			zap.Error(err))
		return append(entities, models.CatalogEntity{}), errorCount + 1
	}

	entity, err := t.wrap(kind, m)
	if err != nil {
		t.logger.Warn("entity serialization failed, emitting placeholder",
			zap.String("kind", kind),
			zap.Error(err))
		return append(entities, models.CatalogEntity{}), errorCount + 1
	}
	return append(entities, entity), errorCount
}

// wrap adds the catalog envelope around a mapper's typed output.
// createTime and updateTime are the same instant.
func (t *Transformer) wrap(kind string, m mapped) (models.CatalogEntity, error) {
	attributes, err := toWireMap(m.attributes)
	if err != nil {
		return models.CatalogEntity{}, fmt.Errorf("attributes for %s: %w", kind, err)
	}
	customAttributes, err := toWireMap(m.customAttributes)
	if err != nil {
		return models.CatalogEntity{}, fmt.Errorf("custom attributes for %s: %w", kind, err)
	}

	nowMillis := t.now().UnixMilli()
	return models.CatalogEntity{
		TypeName:         "Excel" + capitalize(kind),
		Attributes:       attributes,
		CustomAttributes: customAttributes,
		Status:           entityStatus,
		CreatedBy:        auditActor,
		UpdatedBy:        auditActor,
		CreateTime:       nowMillis,
		UpdateTime:       nowMillis,
	}, nil
}

// toWireMap serializes a typed attribute variant into the loosely-typed
// wire map.
func toWireMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
