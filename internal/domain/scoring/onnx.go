package scoring

import (
	"context"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	onnxruntime "github.com/yalue/onnxruntime_go"

	"github.com/mmatheygr/lead-scoring/pkg/metrics"
)

// ONNXScorer implements Scorer against a serialized pre-trained classifier
// loaded through onnxruntime. The model is treated as an opaque black box:
// one float32 feature row in, class probabilities (or logits) out.
//
// The session and its tensors are reused across calls; Run is serialized
// with a mutex since the tensors hold per-call state.
type ONNXScorer struct {
	modelPath      string
	libraryPath    string
	inputName      string
	outputName     string
	featureColumns []string

	mu           sync.Mutex
	session      *onnxruntime.AdvancedSession
	inputTensor  *onnxruntime.Tensor[float32]
	outputTensor *onnxruntime.Tensor[float32]
	outputWidth  int64
}

// ONNXOption applies a configuration option to the ONNXScorer.
type ONNXOption func(*ONNXScorer)

// WithLibraryPath sets the onnxruntime shared library location.
func WithLibraryPath(path string) ONNXOption {
	return func(s *ONNXScorer) {
		if path != "" {
			s.libraryPath = path
		}
	}
}

// WithTensorNames overrides the model graph's input and output tensor names.
func WithTensorNames(input, output string) ONNXOption {
	return func(s *ONNXScorer) {
		if input != "" {
			s.inputName = input
		}
		if output != "" {
			s.outputName = output
		}
	}
}

// NewONNXScorer creates a scorer for the model at modelPath. The model must
// accept a [1, len(featureColumns)] float32 tensor. The runtime environment
// is initialized here so a bad model path fails at startup, not on the first
// upload.
func NewONNXScorer(modelPath string, featureColumns []string, opts ...ONNXOption) (*ONNXScorer, error) {
	s := &ONNXScorer{
		modelPath:      modelPath,
		inputName:      "input",
		outputName:     "probabilities",
		featureColumns: featureColumns,
		outputWidth:    2, // binary classifier: [P(no purchase), P(purchase)]
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	if s.libraryPath != "" {
		onnxruntime.SetSharedLibraryPath(s.libraryPath)
	}
	if !onnxruntime.IsInitialized() {
		if err := onnxruntime.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
		}
	}

	if err := s.initializeSession(); err != nil {
		return nil, err
	}
	return s, nil
}

// initializeSession creates the session and its reusable tensors.
func (s *ONNXScorer) initializeSession() error {
	n := int64(len(s.featureColumns))

	inputShape := onnxruntime.NewShape(1, n)
	inputTensor, err := onnxruntime.NewTensor(inputShape, make([]float32, n))
	if err != nil {
		return fmt.Errorf("%w: input tensor: %v", ErrModelLoad, err)
	}

	outputShape := onnxruntime.NewShape(1, s.outputWidth)
	outputTensor, err := onnxruntime.NewEmptyTensor[float32](outputShape)
	if err != nil {
		if derr := inputTensor.Destroy(); derr != nil {
			return fmt.Errorf("%w: output tensor: %v (cleanup: %v)", ErrModelLoad, err, derr)
		}
		return fmt.Errorf("%w: output tensor: %v", ErrModelLoad, err)
	}

	session, err := onnxruntime.NewAdvancedSession(s.modelPath,
		[]string{s.inputName},
		[]string{s.outputName},
		[]onnxruntime.Value{inputTensor},
		[]onnxruntime.Value{outputTensor},
		nil)
	if err != nil {
		_ = inputTensor.Destroy()
		_ = outputTensor.Destroy()
		return fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	s.session = session
	s.inputTensor = inputTensor
	s.outputTensor = outputTensor
	return nil
}

// Score runs single-row inference for the lead.
func (s *ONNXScorer) Score(ctx context.Context, in Input) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}

	start := time.Now()
	defer func() {
		metrics.RecordModelLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.inputTensor.GetData()
	for i, fc := range s.featureColumns {
		v, ok := in.Features[fc]
		if !ok {
			return Result{}, fmt.Errorf("%w: lead %s missing feature %q", ErrInference, in.CustomerID, fc)
		}
		data[i] = float32(v)
	}

	if err := s.session.Run(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInference, err)
	}

	out := s.outputTensor.GetData()
	p, err := positiveClassProbability(out)
	if err != nil {
		return Result{}, err
	}

	return Result{
		CustomerID:  in.CustomerID,
		Probability: Clamp(p),
	}, nil
}

// positiveClassProbability extracts P(purchase) from the model output. A
// two-wide output is [P(class 0), P(class 1)]; a one-wide output is the
// positive probability directly. Outputs outside [0,1] are treated as logits
// and squashed.
func positiveClassProbability(out []float32) (float64, error) {
	switch len(out) {
	case 0:
		return 0, fmt.Errorf("%w: empty model output", ErrInference)
	case 1:
		p := float64(out[0])
		if p < 0 || p > 1 {
			p = sigmoid(p)
		}
		return p, nil
	default:
		p0, p1 := float64(out[0]), float64(out[1])
		if p0 < 0 || p1 < 0 || p0 > 1 || p1 > 1 {
			// Logits: softmax over the two classes.
			m := math.Max(p0, p1)
			e0, e1 := math.Exp(p0-m), math.Exp(p1-m)
			return e1 / (e0 + e1), nil
		}
		return p1, nil
	}
}

// Close releases the session and its tensors.
func (s *ONNXScorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		if err := s.session.Destroy(); err != nil {
			return fmt.Errorf("%w: %v", ErrModelLoad, err)
		}
		s.session = nil
	}
	if s.inputTensor != nil {
		_ = s.inputTensor.Destroy()
		s.inputTensor = nil
	}
	if s.outputTensor != nil {
		_ = s.outputTensor.Destroy()
		s.outputTensor = nil
	}
	return nil
}
