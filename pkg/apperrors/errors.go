package apperrors

import "errors"

var (
	ErrUnsupportedSource = errors.New("unsupported source type")
	ErrSourceNotFound    = errors.New("source file not found")
	ErrNotConnected      = errors.New("source not connected")
	ErrTableNotFound     = errors.New("table not found")
	ErrRunNotFound       = errors.New("pipeline run not found")
	ErrStageNotFound     = errors.New("pipeline stage not found")
	ErrRunNotFinished    = errors.New("pipeline run has not finished")
)
