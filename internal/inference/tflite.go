package inference

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	tflite "github.com/tphakala/go-tflite"
	"go.uber.org/zap"
)

// TFLiteRuntime loads TensorFlow Lite flatbuffer models
type TFLiteRuntime struct {
	Threads int
	Logger  *zap.Logger
}

// NewTFLiteRuntime creates a runtime; threads <= 0 uses all CPUs
func NewTFLiteRuntime(threads int, logger *zap.Logger) *TFLiteRuntime {
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	return &TFLiteRuntime{Threads: threads, Logger: logger}
}

// Load creates an interpreter for the artifact and allocates its tensors
func (r *TFLiteRuntime) Load(ctx context.Context, artifact []byte) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := r.Logger.Sugar()

	model := tflite.NewModel(artifact)
	if model == nil {
		return nil, fmt.Errorf("cannot load TensorFlow Lite model (%d bytes)", len(artifact))
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(r.Threads)
	options.SetErrorReporter(func(msg string, _ any) {
		log.Errorw("TFLite error", "message", msg)
	}, nil)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		options.Delete()
		model.Delete()
		return nil, fmt.Errorf("cannot create interpreter")
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		options.Delete()
		model.Delete()
		return nil, fmt.Errorf("tensor allocation failed: %v", status)
	}

	log.Infow("TFLite model loaded",
		"bytes", len(artifact),
		"inputs", interpreter.GetInputTensorCount(),
		"outputs", interpreter.GetOutputTensorCount(),
		"threads", r.Threads,
	)

	return &tfliteSession{model: model, options: options, interpreter: interpreter}, nil
}

type tfliteSession struct {
	mu          sync.Mutex
	model       *tflite.Model
	options     *tflite.InterpreterOptions
	interpreter *tflite.Interpreter
}

// Run resizes each input to the provided shape, invokes the interpreter and
// copies every float output. The interpreter is not safe for concurrent use.
func (s *tfliteSession) Run(ctx context.Context, inputs []Tensor) ([]Tensor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.interpreter == nil {
		return nil, fmt.Errorf("session closed")
	}
	if want := s.interpreter.GetInputTensorCount(); len(inputs) != want {
		return nil, fmt.Errorf("model expects %d inputs, got %d", want, len(inputs))
	}

	for i, in := range inputs {
		if in.IsString() {
			return nil, fmt.Errorf("input %q: string tensors are not supported by TFLite models", in.Name)
		}
		dims := make([]int32, len(in.Shape))
		for d, v := range in.Shape {
			dims[d] = int32(v) //nolint:gosec // tensor dims are small
		}
		if status := s.interpreter.ResizeInputTensor(i, dims); status != tflite.OK {
			return nil, fmt.Errorf("resize input %q to %v failed: %v", in.Name, in.Shape, status)
		}
	}
	if status := s.interpreter.AllocateTensors(); status != tflite.OK {
		return nil, fmt.Errorf("tensor allocation failed: %v", status)
	}

	for i, in := range inputs {
		tensor := s.interpreter.GetInputTensor(i)
		if tensor == nil {
			return nil, fmt.Errorf("cannot get input tensor %d", i)
		}
		buf := tensor.Float32s()
		if len(buf) != len(in.Float32s) {
			return nil, fmt.Errorf("input %q: model buffer holds %d values, got %d", in.Name, len(buf), len(in.Float32s))
		}
		copy(buf, in.Float32s)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if status := s.interpreter.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("tensor invoke failed: %v", status)
	}

	count := s.interpreter.GetOutputTensorCount()
	outputs := make([]Tensor, 0, count)
	for i := 0; i < count; i++ {
		tensor := s.interpreter.GetOutputTensor(i)
		if tensor == nil {
			return nil, fmt.Errorf("cannot get output tensor %d", i)
		}
		shape := make([]int64, tensor.NumDims())
		for d := range shape {
			shape[d] = int64(tensor.Dim(d))
		}
		out := Tensor{Name: tensor.Name(), Shape: shape}
		if tensor.Type() == tflite.Float32 {
			out.Float32s = make([]float32, len(tensor.Float32s()))
			copy(out.Float32s, tensor.Float32s())
		}
		outputs = append(outputs, out)
	}

	return outputs, nil
}

// Close releases the interpreter and model
func (s *tfliteSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.interpreter != nil {
		s.interpreter.Delete()
		s.options.Delete()
		s.model.Delete()
		s.interpreter = nil
	}
	return nil
}
