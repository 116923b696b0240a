package inference

import (
	"bytes"
	"context"
	"fmt"
)

// Format identifies the encoding of a model artifact
type Format string

const (
	FormatUnknown Format = "unknown"
	FormatTFLite  Format = "tflite"
	FormatLinear  Format = "linear"
)

// tfliteIdentifier is the flatbuffer file identifier at offset 4
var tfliteIdentifier = []byte("TFL3")

// Sniff inspects the artifact header to determine its format
func Sniff(artifact []byte) Format {
	if len(artifact) >= 8 && bytes.Equal(artifact[4:8], tfliteIdentifier) {
		return FormatTFLite
	}
	trimmed := bytes.TrimLeft(artifact, " \t\r\n\ufeff")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatLinear
	}
	return FormatUnknown
}

// AutoRuntime dispatches to a concrete runtime based on the artifact format
type AutoRuntime struct {
	TFLite Runtime
	Linear Runtime
}

// Load sniffs the artifact and loads it with the matching runtime
func (a *AutoRuntime) Load(ctx context.Context, artifact []byte) (Session, error) {
	var rt Runtime
	format := Sniff(artifact)
	switch format {
	case FormatTFLite:
		rt = a.TFLite
	case FormatLinear:
		rt = a.Linear
	default:
		return nil, fmt.Errorf("unrecognized model artifact (%d bytes)", len(artifact))
	}
	if rt == nil {
		return nil, fmt.Errorf("no runtime configured for %s artifacts", format)
	}
	return rt.Load(ctx, artifact)
}
