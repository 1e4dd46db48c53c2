// errors.go - error taxonomy for the log-polar transform engine

package lpx

import "errors"

// Sentinel errors for the transform engine, checked with errors.Is.
// Per-frame scan failures wrap one of these; callers log and drop the
// frame rather than treat the pipeline as broken.
var (
	ErrInvalidTables = errors.New("lpx: scan tables not initialized")
	ErrInvalidFormat = errors.New("lpx: malformed scan-tables file")
	ErrEmptyInput    = errors.New("lpx: empty raster")
	ErrOutOfRange    = errors.New("lpx: cell array length exceeds capacity")
	ErrIOFailure     = errors.New("lpx: file I/O failure")
)
