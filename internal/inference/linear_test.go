package inference

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const medalClassifierJSON = `{
  "format": "linear/v1",
  "inputs": [
    {"name": "Age", "kind": "numeric", "scale": [5.0]},
    {"name": "Rank", "kind": "numeric", "scale": [10.0]},
    {"name": "Gender", "kind": "categorical", "categories": ["Female", "Male"]},
    {"name": "NOC", "kind": "categorical", "categories": ["FRA", "USA"]}
  ],
  "coefficients": [
    [0.0, -2.0, 0.1, 0.0, 0.0, 0.4],
    [0.0,  0.0, 0.0, 0.1, 0.0, 0.0],
    [0.0,  2.0, 0.0, 0.0, 0.0, 0.1]
  ],
  "intercepts": [0.5, 0.2, 0.1],
  "link": "softmax",
  "output": "probabilities"
}`

func singleRow(t *testing.T, age, rank float32, gender, noc string) []Tensor {
	t.Helper()
	mk := func(tn Tensor, err error) Tensor {
		require.NoError(t, err)
		return tn
	}
	return []Tensor{
		mk(NewFloat32Tensor("Age", []int64{1, 1}, []float32{age})),
		mk(NewFloat32Tensor("Rank", []int64{1, 1}, []float32{rank})),
		mk(NewStringTensor("Gender", []int64{1, 1}, []string{gender})),
		mk(NewStringTensor("NOC", []int64{1, 1}, []string{noc})),
	}
}

func TestLinearRuntime_SoftmaxProbabilities(t *testing.T) {
	session, err := LinearRuntime{}.Load(context.Background(), []byte(medalClassifierJSON))
	require.NoError(t, err)

	out, err := session.Run(context.Background(), singleRow(t, 25, 1, "Female", "USA"))
	require.NoError(t, err)
	require.Len(t, out, 1)

	probs := out[0]
	assert.Equal(t, "probabilities", probs.Name)
	assert.Equal(t, []int64{1, 3}, probs.Shape)

	var sum float64
	for _, p := range probs.Float32s {
		assert.GreaterOrEqual(t, p, float32(0))
		assert.LessOrEqual(t, p, float32(1))
		sum += float64(p)
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
	// Rank 1 pulls towards the first class
	assert.Greater(t, probs.Float32s[0], probs.Float32s[2])
}

func TestLinearRuntime_UnknownCategoryIgnored(t *testing.T) {
	session, err := LinearRuntime{}.Load(context.Background(), []byte(medalClassifierJSON))
	require.NoError(t, err)

	known, err := session.Run(context.Background(), singleRow(t, 25, 3, "Female", "FRA"))
	require.NoError(t, err)
	unknown, err := session.Run(context.Background(), singleRow(t, 25, 3, "Female", "ATLANTIS"))
	require.NoError(t, err)

	// FRA has zero weight everywhere, so an unknown NOC encodes identically
	assert.InDeltaSlice(t, known[0].Float32s, unknown[0].Float32s, 1e-6)
}

func TestLinearRuntime_IdentityRegressorBatch(t *testing.T) {
	artifact := `{
	  "format": "linear/v1",
	  "inputs": [{"name": "features", "kind": "numeric", "width": 5}],
	  "coefficients": [[0, 0, 0, 1.0, 0.5]],
	  "link": "identity"
	}`
	session, err := LinearRuntime{}.Load(context.Background(), []byte(artifact))
	require.NoError(t, err)

	in, err := NewFloat32Tensor("features", []int64{2, 5}, []float32{
		36, 19, 12, 67, 9,
		1, 1, 1, 3, -2,
	})
	require.NoError(t, err)

	out, err := session.Run(context.Background(), []Tensor{in})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "output", out[0].Name)
	assert.Equal(t, []int64{2, 1}, out[0].Shape)
	assert.InDeltaSlice(t, []float32{71.5, 2}, out[0].Float32s, 1e-6)
}

func TestLinearRuntime_SigmoidTwoColumns(t *testing.T) {
	artifact := `{"format":"linear/v1","inputs":[{"name":"x","kind":"numeric"}],"coefficients":[[1]],"link":"sigmoid"}`
	session, err := LinearRuntime{}.Load(context.Background(), []byte(artifact))
	require.NoError(t, err)

	in, err := NewFloat32Tensor("x", []int64{1, 1}, []float32{0})
	require.NoError(t, err)
	out, err := session.Run(context.Background(), []Tensor{in})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.5, 0.5}, out[0].Float32s, 1e-6)
}

func TestLinearRuntime_LoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		artifact string
		wantErr  string
	}{
		{"not json", `{oops`, "decode linear model"},
		{"wrong format", `{"format":"linear/v0"}`, "unsupported linear model format"},
		{"no inputs", `{"format":"linear/v1","coefficients":[[1]]}`, "declares no inputs"},
		{"width mismatch", `{"format":"linear/v1","inputs":[{"name":"x","kind":"numeric","width":2}],"coefficients":[[1]]}`, "inputs encode 2"},
		{"bad kind", `{"format":"linear/v1","inputs":[{"name":"x","kind":"ordinal"}],"coefficients":[[1]]}`, "unknown kind"},
		{"bad link", `{"format":"linear/v1","inputs":[{"name":"x","kind":"numeric"}],"coefficients":[[1]],"link":"tanh"}`, "unknown link"},
		{"empty categories", `{"format":"linear/v1","inputs":[{"name":"c","kind":"categorical"}],"coefficients":[[]]}`, "no categories"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LinearRuntime{}.Load(context.Background(), []byte(tt.artifact))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLinearRuntime_RunRejectsBadInputs(t *testing.T) {
	session, err := LinearRuntime{}.Load(context.Background(), []byte(medalClassifierJSON))
	require.NoError(t, err)

	inputs := singleRow(t, 25, 1, "Female", "USA")

	_, err = session.Run(context.Background(), inputs[:3])
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing input "NOC"`)

	swapped := append([]Tensor(nil), inputs...)
	swapped[0] = Tensor{Name: "Age", Shape: []int64{1, 1}, Strings: []string{"25"}}
	_, err = session.Run(context.Background(), swapped)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 1 float values")
}

func TestNewFloat32Tensor_ShapeMismatch(t *testing.T) {
	_, err := NewFloat32Tensor("features", []int64{2, 5}, make([]float32, 9))
	require.Error(t, err)

	tn, err := NewFloat32Tensor("features", []int64{2, 5}, make([]float32, 10))
	require.NoError(t, err)
	assert.Equal(t, 2, tn.Rows())
	assert.Equal(t, 5, tn.Cols())
	assert.False(t, tn.IsString())
}
