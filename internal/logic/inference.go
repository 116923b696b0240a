package logic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/openmohaa/medal-forecast/internal/inference"
	"github.com/openmohaa/medal-forecast/internal/models"
)

// FeatureColumns is the column order of the forecast model's input matrix
var FeatureColumns = []string{"gold_sum", "silver_sum", "bronze_sum", "total_sum", "momentum"}

// DefaultFeatureInput is the tensor name the forecast matrix is submitted under
const DefaultFeatureInput = "features"

// SessionSource provides a loaded model session
type SessionSource interface {
	Session(ctx context.Context) (inference.Session, error)
	Name() string
}

// ArtifactSession resolves a session through a shared Loader
type ArtifactSession struct {
	Loader   *inference.Loader
	Artifact string
	Fetcher  inference.ArtifactFetcher
}

// Session returns the cached session, loading it on first use
func (a *ArtifactSession) Session(ctx context.Context) (inference.Session, error) {
	if a == nil || a.Fetcher == nil {
		return nil, errors.New("no model artifact configured")
	}
	return a.Loader.Load(ctx, a.Artifact, a.Fetcher)
}

// Name returns the artifact identifier
func (a *ArtifactSession) Name() string {
	if a == nil {
		return ""
	}
	return a.Artifact
}

// InferenceAdapter maps feature vectors to an external scoring model and back
type InferenceAdapter struct {
	model     SessionSource
	inputName string
}

// NewInferenceAdapter creates an adapter submitting features under inputName
func NewInferenceAdapter(model SessionSource, inputName string) *InferenceAdapter {
	if inputName == "" {
		inputName = DefaultFeatureInput
	}
	return &InferenceAdapter{model: model, inputName: inputName}
}

// BuildFeatureMatrix flattens features into row-major float32 data, one row per
// entity in ascending entity order, columns as in FeatureColumns.
func BuildFeatureMatrix(features map[string]models.FeatureVector) ([]string, []float32) {
	entities := make([]string, 0, len(features))
	for entity := range features {
		entities = append(entities, entity)
	}
	sort.Strings(entities)

	data := make([]float32, 0, len(entities)*len(FeatureColumns))
	for _, entity := range entities {
		fv := features[entity]
		data = append(data,
			float32(fv.Gold),
			float32(fv.Silver),
			float32(fv.Bronze),
			float32(fv.Total),
			float32(fv.Momentum),
		)
	}
	return entities, data
}

// Predict scores every entity with one batched model call and splits each
// predicted total by historical medal share. Only the first output tensor is
// read, and only its first column when it has several.
func (a *InferenceAdapter) Predict(ctx context.Context, features map[string]models.FeatureVector) ([]models.Forecast, error) {
	session, err := a.model.Session(ctx)
	if err != nil {
		return nil, &ModelLoadError{Artifact: a.model.Name(), Err: err}
	}

	entities, data := BuildFeatureMatrix(features)
	input, err := inference.NewFloat32Tensor(a.inputName, []int64{int64(len(entities)), int64(len(FeatureColumns))}, data)
	if err != nil {
		return nil, &InferenceError{Err: err}
	}

	start := time.Now()
	outputs, err := session.Run(ctx, []inference.Tensor{input})
	inferenceDuration.WithLabelValues("forecast").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, &InferenceError{Err: err}
	}

	totals, err := readColumn(outputs, len(entities))
	if err != nil {
		return nil, err
	}

	forecasts := make([]models.Forecast, 0, len(entities))
	for i, entity := range entities {
		v := float64(totals[i])
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &InferenceError{Err: fmt.Errorf("non-finite prediction for %s", entity)}
		}
		total := max(0, int(math.Round(v)))
		forecasts = append(forecasts, SplitByShare(entity, total, features[entity]))
	}

	SortForecasts(forecasts)
	return forecasts, nil
}

// readColumn extracts the first column of the first output for n rows
func readColumn(outputs []inference.Tensor, n int) ([]float32, error) {
	if len(outputs) == 0 {
		return nil, &SchemaError{Reason: "model returned no outputs"}
	}
	out := outputs[0]
	if out.Float32s == nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("output %q is not a float tensor", out.Name)}
	}

	rows, cols := len(out.Float32s), 1
	if len(out.Shape) > 0 {
		rows, cols = out.Rows(), out.Cols()
	}
	if rows < n || cols < 1 || len(out.Float32s) < rows*cols {
		return nil, &SchemaError{Reason: fmt.Sprintf("output %q has shape %v, need %d rows", out.Name, out.Shape, n)}
	}

	column := make([]float32, n)
	for i := range column {
		column[i] = out.Float32s[i*cols]
	}
	return column, nil
}
