package connector

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/sourcesense-inc/sourcesense-engine/pkg/apperrors"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/models"
)

// WorkbookSource reads a multi-sheet workbook; each sheet is one table.
type WorkbookSource struct {
	path   string
	logger *zap.Logger
	info   models.SourceInfo
	file   *excelize.File
}

func newWorkbookSource(path string, logger *zap.Logger) *WorkbookSource {
	return &WorkbookSource{path: path, logger: logger.Named("workbook-source")}
}

// Connect opens the workbook and records the file metadata.
func (s *WorkbookSource) Connect(ctx context.Context) error {
	info, err := statSource(s.path)
	if err != nil {
		return err
	}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		// Legacy binary .xls files are not readable; only the xlsx
		// container format is.
		if strings.EqualFold(filepath.Ext(s.path), ".xls") {
			return fmt.Errorf("legacy xls format is not readable, convert the file to xlsx: %w", err)
		}
		return fmt.Errorf("failed to open workbook: %w", err)
	}

	s.info = info
	s.file = f
	s.logger.Info("connected to workbook source",
		zap.String("path", s.path),
		zap.Int("sheets", len(f.GetSheetList())))
	return nil
}

// ListTables returns the workbook's sheet names in order.
func (s *WorkbookSource) ListTables(ctx context.Context) ([]string, error) {
	if s.file == nil {
		return nil, apperrors.ErrNotConnected
	}
	return s.file.GetSheetList(), nil
}

// GetTable reads one sheet into typed columns. The first row is the
// header; short rows are padded with nulls.
func (s *WorkbookSource) GetTable(ctx context.Context, name string) (*TabularData, error) {
	if s.file == nil {
		return nil, apperrors.ErrNotConnected
	}

	rows, err := s.file.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrTableNotFound, name)
	}
	if len(rows) == 0 {
		return &TabularData{}, nil
	}

	return buildTable(rows[0], rows[1:]), nil
}

// SourceMetadata returns the metadata captured at Connect.
func (s *WorkbookSource) SourceMetadata() models.SourceInfo {
	return s.info
}

// Disconnect closes the workbook handle.
func (s *WorkbookSource) Disconnect() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
