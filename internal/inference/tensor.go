// Package inference defines the contract between the forecasting core and
// external model runtimes, plus the runtimes and session cache behind it.
package inference

import (
	"context"
	"fmt"
)

// Tensor is a named buffer exchanged with a model session. Exactly one of
// Float32s or Strings carries data.
type Tensor struct {
	Name     string
	Shape    []int64
	Float32s []float32
	Strings  []string
}

// NewFloat32Tensor builds a float tensor, checking data against shape
func NewFloat32Tensor(name string, shape []int64, data []float32) (Tensor, error) {
	t := Tensor{Name: name, Shape: shape, Float32s: data}
	if n := t.Elements(); n != len(data) {
		return Tensor{}, fmt.Errorf("tensor %q: shape %v needs %d values, got %d", name, shape, n, len(data))
	}
	return t, nil
}

// NewStringTensor builds a string tensor, checking data against shape
func NewStringTensor(name string, shape []int64, data []string) (Tensor, error) {
	t := Tensor{Name: name, Shape: shape, Strings: data}
	if n := t.Elements(); n != len(data) {
		return Tensor{}, fmt.Errorf("tensor %q: shape %v needs %d values, got %d", name, shape, n, len(data))
	}
	return t, nil
}

// IsString reports whether the tensor carries string data
func (t Tensor) IsString() bool {
	return t.Strings != nil
}

// Elements returns the number of values implied by the shape
func (t Tensor) Elements() int {
	if len(t.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range t.Shape {
		n *= int(d)
	}
	return n
}

// Rows returns the leading dimension
func (t Tensor) Rows() int {
	if len(t.Shape) == 0 {
		return 0
	}
	return int(t.Shape[0])
}

// Cols returns the product of all non-leading dimensions, at least 1
func (t Tensor) Cols() int {
	n := 1
	for _, d := range t.Shape[min(1, len(t.Shape)):] {
		n *= int(d)
	}
	return n
}

// Session is a loaded model ready for inference
type Session interface {
	Run(ctx context.Context, inputs []Tensor) ([]Tensor, error)
	Close() error
}

// Runtime turns an opaque model artifact into a Session
type Runtime interface {
	Load(ctx context.Context, artifact []byte) (Session, error)
}

// ArtifactFetcher retrieves model artifact bytes
type ArtifactFetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}
