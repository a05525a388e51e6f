package connector

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/sourcesense-inc/sourcesense-engine/pkg/apperrors"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/models"
)

// csvTableName is the single table a delimited source exposes, mirroring
// the default sheet name of a workbook.
const csvTableName = "Sheet1"

// CSVSource reads a single-table delimited file.
type CSVSource struct {
	path      string
	logger    *zap.Logger
	info      models.SourceInfo
	connected bool
}

func newCSVSource(path string, logger *zap.Logger) *CSVSource {
	return &CSVSource{path: path, logger: logger.Named("csv-source")}
}

// Connect verifies the file exists and records its metadata.
func (s *CSVSource) Connect(ctx context.Context) error {
	info, err := statSource(s.path)
	if err != nil {
		return err
	}
	s.info = info
	s.connected = true
	s.logger.Info("connected to csv source",
		zap.String("path", s.path),
		zap.Int64("size_bytes", info.SizeBytes))
	return nil
}

// ListTables returns the single implicit table.
func (s *CSVSource) ListTables(ctx context.Context) ([]string, error) {
	if !s.connected {
		return nil, apperrors.ErrNotConnected
	}
	return []string{csvTableName}, nil
}

// GetTable reads the whole file and returns it as typed columns. The
// first record is the header; short records are padded with nulls.
func (s *CSVSource) GetTable(ctx context.Context, name string) (*TabularData, error) {
	if !s.connected {
		return nil, apperrors.ErrNotConnected
	}
	if name != csvTableName {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrTableNotFound, name)
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // tolerate ragged rows

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return &TabularData{}, nil
	}

	return buildTable(records[0], records[1:]), nil
}

// SourceMetadata returns the metadata captured at Connect.
func (s *CSVSource) SourceMetadata() models.SourceInfo {
	return s.info
}

// Disconnect releases the source handle.
func (s *CSVSource) Disconnect() error {
	s.connected = false
	return nil
}
