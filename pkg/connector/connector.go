package connector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/sourcesense-inc/sourcesense-engine/pkg/apperrors"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/models"
)

// Source is the connector contract the pipeline depends on. Connect must
// be called before ListTables/GetTable; Disconnect releases the handle.
type Source interface {
	Connect(ctx context.Context) error
	ListTables(ctx context.Context) ([]string, error)
	GetTable(ctx context.Context, name string) (*TabularData, error)
	SourceMetadata() models.SourceInfo
	Disconnect() error
}

// SupportedExtensions are the source kinds the engine can open.
var SupportedExtensions = []string{".xlsx", ".xls", ".csv"}

// Open returns the Source implementation for the file's extension.
// An unsupported extension is a connection error, not a pipeline error.
func Open(path string, logger *zap.Logger) (Source, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv":
		return newCSVSource(path, logger), nil
	case ".xlsx", ".xls":
		return newWorkbookSource(path, logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedSource, ext)
	}
}

// statSource builds SourceInfo from the file on disk.
func statSource(path string) (models.SourceInfo, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.SourceInfo{}, fmt.Errorf("%w: %s", apperrors.ErrSourceNotFound, path)
		}
		return models.SourceInfo{}, fmt.Errorf("failed to stat source: %w", err)
	}
	return models.SourceInfo{
		Name:          filepath.Base(path),
		Path:          path,
		SizeBytes:     fi.Size(),
		Extension:     strings.ToLower(filepath.Ext(path)),
		ModifiedEpoch: fi.ModTime().Unix(),
	}, nil
}
