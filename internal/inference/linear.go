package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
)

// LinearFormatVersion is the only accepted value of LinearModel.Format
const LinearFormatVersion = "linear/v1"

// Input kinds of a linear model
const (
	InputNumeric     = "numeric"
	InputCategorical = "categorical"
)

// Output links of a linear model
const (
	LinkIdentity = "identity"
	LinkSoftmax  = "softmax"
	LinkSigmoid  = "sigmoid"
)

// LinearModel is a JSON-exported linear model: scaled numeric columns and
// one-hot categorical columns feed one or more linear outputs. With a softmax
// link it reproduces a multinomial logistic regression; with identity it is a
// plain regressor.
type LinearModel struct {
	Format       string        `json:"format"`
	Inputs       []LinearInput `json:"inputs"`
	Coefficients [][]float64   `json:"coefficients"` // [output][encoded feature]
	Intercepts   []float64     `json:"intercepts"`
	Link         string        `json:"link"`
	Output       string        `json:"output"`
}

// LinearInput describes one named input tensor
type LinearInput struct {
	Name       string    `json:"name"`
	Kind       string    `json:"kind"`
	Width      int       `json:"width,omitempty"`      // Numeric columns per row, default 1
	Scale      []float64 `json:"scale,omitempty"`      // Per-column divisor (StandardScaler with_mean=False)
	Categories []string  `json:"categories,omitempty"` // One-hot vocabulary; unknown values encode as all zeros
}

func (in LinearInput) encodedWidth() int {
	if in.Kind == InputCategorical {
		return len(in.Categories)
	}
	return in.Width
}

// LinearRuntime loads LinearModel artifacts
type LinearRuntime struct{}

// Load decodes and validates the JSON artifact
func (LinearRuntime) Load(ctx context.Context, artifact []byte) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var m LinearModel
	if err := json.Unmarshal(artifact, &m); err != nil {
		return nil, fmt.Errorf("decode linear model: %w", err)
	}
	if err := m.normalize(); err != nil {
		return nil, err
	}

	s := &linearSession{model: m, categoryIndex: make([]map[string]int, len(m.Inputs))}
	for i, in := range m.Inputs {
		if in.Kind != InputCategorical {
			continue
		}
		idx := make(map[string]int, len(in.Categories))
		for j, c := range in.Categories {
			idx[c] = j
		}
		s.categoryIndex[i] = idx
	}
	return s, nil
}

func (m *LinearModel) normalize() error {
	if m.Format != LinearFormatVersion {
		return fmt.Errorf("unsupported linear model format %q", m.Format)
	}
	if len(m.Inputs) == 0 {
		return fmt.Errorf("linear model declares no inputs")
	}
	if m.Link == "" {
		m.Link = LinkIdentity
	}
	if m.Output == "" {
		m.Output = "output"
	}

	width := 0
	for i := range m.Inputs {
		in := &m.Inputs[i]
		switch in.Kind {
		case InputNumeric:
			if in.Width <= 0 {
				in.Width = 1
			}
			if len(in.Scale) != 0 && len(in.Scale) != in.Width {
				return fmt.Errorf("input %q: %d scale values for width %d", in.Name, len(in.Scale), in.Width)
			}
		case InputCategorical:
			if len(in.Categories) == 0 {
				return fmt.Errorf("input %q: categorical input has no categories", in.Name)
			}
		default:
			return fmt.Errorf("input %q: unknown kind %q", in.Name, in.Kind)
		}
		width += in.encodedWidth()
	}

	if len(m.Coefficients) == 0 {
		return fmt.Errorf("linear model has no coefficients")
	}
	for k, row := range m.Coefficients {
		if len(row) != width {
			return fmt.Errorf("coefficient row %d has %d values, inputs encode %d", k, len(row), width)
		}
	}
	if len(m.Intercepts) == 0 {
		m.Intercepts = make([]float64, len(m.Coefficients))
	}
	if len(m.Intercepts) != len(m.Coefficients) {
		return fmt.Errorf("%d intercepts for %d outputs", len(m.Intercepts), len(m.Coefficients))
	}

	switch m.Link {
	case LinkIdentity, LinkSoftmax:
	case LinkSigmoid:
		if len(m.Coefficients) != 1 {
			return fmt.Errorf("sigmoid link needs exactly one coefficient row, got %d", len(m.Coefficients))
		}
	default:
		return fmt.Errorf("unknown link %q", m.Link)
	}
	return nil
}

type linearSession struct {
	model         LinearModel
	categoryIndex []map[string]int
}

// Run encodes every row, applies the linear layer and the link function
func (s *linearSession) Run(ctx context.Context, inputs []Tensor) ([]Tensor, error) {
	byName := make(map[string]Tensor, len(inputs))
	for _, t := range inputs {
		byName[t.Name] = t
	}

	rows := -1
	for _, in := range s.model.Inputs {
		t, ok := byName[in.Name]
		if !ok {
			return nil, fmt.Errorf("missing input %q", in.Name)
		}
		if rows == -1 {
			rows = t.Rows()
		} else if t.Rows() != rows {
			return nil, fmt.Errorf("input %q has %d rows, expected %d", in.Name, t.Rows(), rows)
		}
		switch in.Kind {
		case InputNumeric:
			if t.IsString() || len(t.Float32s) != rows*in.Width {
				return nil, fmt.Errorf("input %q: expected %d float values", in.Name, rows*in.Width)
			}
		case InputCategorical:
			if !t.IsString() || len(t.Strings) != rows {
				return nil, fmt.Errorf("input %q: expected %d string values", in.Name, rows)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outputs := len(s.model.Coefficients)
	cols := outputs
	if s.model.Link == LinkSigmoid {
		cols = 2
	}

	data := make([]float32, 0, rows*cols)
	encoded := make([]float64, len(s.model.Coefficients[0]))
	logits := make([]float64, outputs)
	for r := 0; r < rows; r++ {
		s.encodeRow(r, byName, encoded)
		for k, coef := range s.model.Coefficients {
			logits[k] = s.model.Intercepts[k] + dot(coef, encoded)
		}
		for _, v := range s.applyLink(logits) {
			data = append(data, float32(v))
		}
	}

	return []Tensor{{
		Name:     s.model.Output,
		Shape:    []int64{int64(rows), int64(cols)},
		Float32s: data,
	}}, nil
}

func (s *linearSession) encodeRow(r int, byName map[string]Tensor, encoded []float64) {
	for i := range encoded {
		encoded[i] = 0
	}
	offset := 0
	for i, in := range s.model.Inputs {
		t := byName[in.Name]
		switch in.Kind {
		case InputNumeric:
			for c := 0; c < in.Width; c++ {
				v := float64(t.Float32s[r*in.Width+c])
				if len(in.Scale) > 0 && in.Scale[c] != 0 {
					v /= in.Scale[c]
				}
				encoded[offset+c] = v
			}
		case InputCategorical:
			if j, ok := s.categoryIndex[i][t.Strings[r]]; ok {
				encoded[offset+j] = 1
			}
		}
		offset += in.encodedWidth()
	}
}

func (s *linearSession) applyLink(logits []float64) []float64 {
	switch s.model.Link {
	case LinkSoftmax:
		return softmax(logits)
	case LinkSigmoid:
		p := sigmoid(logits[0])
		return []float64{1 - p, p}
	default:
		out := make([]float64, len(logits))
		copy(out, logits)
		return out
	}
}

func (s *linearSession) Close() error { return nil }

func softmax(z []float64) []float64 {
	maxZ := math.Inf(-1)
	for _, v := range z {
		maxZ = math.Max(maxZ, v)
	}
	out := make([]float64, len(z))
	var sum float64
	for i, v := range z {
		out[i] = math.Exp(v - maxZ)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func sigmoid(z float64) float64 {
	if z > 20 {
		return 1.0
	}
	if z < -20 {
		return 0.0
	}
	return 1.0 / (1.0 + math.Exp(-z))
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
