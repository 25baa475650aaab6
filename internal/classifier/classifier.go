// Package classifier runs the pre-trained issue-category classifier via ONNX
// Runtime. The model is opaque: a fixed-width float32 feature row in,
// per-class probabilities out. Class order matches the frozen category
// vocabulary's id order.
package classifier

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/linnemanlabs/sift/internal/embedder"
)

// Model is the probability contract the triage engine depends on. The ONNX
// model satisfies it in production; tests substitute a stub.
type Model interface {
	// PredictProba scores one feature row and returns a probability per
	// class, in frozen class-id order.
	PredictProba(features []float32) ([]float64, error)
	// NumClasses returns the width of the probability vector.
	NumClasses() int
}

// ONNXModel wraps an inference session over an exported gradient-boosted
// classifier. Exported models carry two outputs (predicted label and
// per-class probabilities); only the probabilities are consumed here.
type ONNXModel struct {
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
	width      int64
	classes    int64
}

// Load opens the classifier model and validates its tensor shapes against
// the expected feature width and class count.
func Load(modelPath, libPath string, featureWidth, numClasses int) (*ONNXModel, error) {
	if err := embedder.InitRuntime(libPath); err != nil {
		return nil, fmt.Errorf("classifier: onnx runtime init: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("classifier: read model info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("classifier: expected 1 input, model has %d", len(inputs))
	}

	in := inputs[0]
	if got := lastDim(in.Dimensions); got > 0 && got != int64(featureWidth) {
		return nil, fmt.Errorf("classifier: model input width %d != feature width %d", got, featureWidth)
	}

	// Prefer the probabilities output; converters name it "probabilities"
	// and emit it after the label output.
	outName := ""
	for _, out := range outputs {
		if out.Name == "probabilities" {
			outName = out.Name
			break
		}
	}
	if outName == "" {
		if len(outputs) == 0 {
			return nil, fmt.Errorf("classifier: model has no outputs")
		}
		outName = outputs[len(outputs)-1].Name
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("classifier: session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(modelPath, []string{in.Name}, []string{outName}, opts)
	if err != nil {
		return nil, fmt.Errorf("classifier: create session: %w", err)
	}

	return &ONNXModel{
		session:    session,
		inputName:  in.Name,
		outputName: outName,
		width:      int64(featureWidth),
		classes:    int64(numClasses),
	}, nil
}

// NumClasses implements Model.
func (m *ONNXModel) NumClasses() int {
	return int(m.classes)
}

// PredictProba implements Model for a single feature row.
func (m *ONNXModel) PredictProba(features []float32) ([]float64, error) {
	if int64(len(features)) != m.width {
		return nil, fmt.Errorf("classifier: feature row width %d != expected %d", len(features), m.width)
	}

	tIn, err := ort.NewTensor(ort.NewShape(1, m.width), features)
	if err != nil {
		return nil, fmt.Errorf("classifier: input tensor: %w", err)
	}
	defer tIn.Destroy()

	tOut, err := ort.NewEmptyTensor[float32](ort.NewShape(1, m.classes))
	if err != nil {
		return nil, fmt.Errorf("classifier: output tensor: %w", err)
	}
	defer tOut.Destroy()

	if err := m.session.Run([]ort.Value{tIn}, []ort.Value{tOut}); err != nil {
		return nil, fmt.Errorf("classifier: inference: %w", err)
	}

	raw := tOut.GetData()
	probs := make([]float64, m.classes)
	for i := range probs {
		probs[i] = float64(raw[i])
	}
	return probs, nil
}

// Close releases ONNX Runtime resources.
func (m *ONNXModel) Close() error {
	return m.session.Destroy()
}

func lastDim(dims []int64) int64 {
	if len(dims) == 0 {
		return -1
	}
	return dims[len(dims)-1]
}
