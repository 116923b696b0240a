package logic

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFeatures is returned when a forecast is requested before a successful load
	ErrNoFeatures = errors.New("no feature vectors available")
	// ErrNotReady is returned when the classifier session or vocabulary is missing
	ErrNotReady = errors.New("classifier not ready")
	// ErrBusy is returned when the async job queue rejects a model run
	ErrBusy = errors.New("forecast queue full")
	// ErrSuperseded is returned by a load that a newer load replaced
	ErrSuperseded = errors.New("superseded by a newer request")
)

// ParseError reports malformed or empty source text
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parse error: " + e.Reason
}

// SchemaError reports a header or model output whose shape is not usable
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return "schema error: " + e.Reason
}

// DataError reports a source in which no usable rows survived filtering
type DataError struct {
	Reason string
}

func (e *DataError) Error() string {
	return "data error: " + e.Reason
}

// FetchError reports a source that could not be retrieved
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch source: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ModelLoadError reports an unusable model runtime or artifact
type ModelLoadError struct {
	Artifact string
	Err      error
}

func (e *ModelLoadError) Error() string {
	if e.Artifact == "" {
		return fmt.Sprintf("model load failed: %v", e.Err)
	}
	return fmt.Sprintf("model load failed (%s): %v", e.Artifact, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// InferenceError reports a failure while executing a loaded model
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// IsLoadFailure reports whether err terminates a load cycle
func IsLoadFailure(err error) bool {
	var pe *ParseError
	var se *SchemaError
	var de *DataError
	return errors.As(err, &pe) || errors.As(err, &se) || errors.As(err, &de)
}

// IsModelFailure reports whether err came from loading or running a model.
// In the forecast path these errors trigger the baseline fallback.
func IsModelFailure(err error) bool {
	var le *ModelLoadError
	var ie *InferenceError
	var se *SchemaError
	return errors.As(err, &le) || errors.As(err, &ie) || errors.As(err, &se)
}
