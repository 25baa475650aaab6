package embedder

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortInit guards process-wide ONNX Runtime initialization. The runtime can
// only be initialized once; the classifier session shares it.
var ortInit struct {
	once sync.Once
	err  error
}

// InitRuntime points ONNX Runtime at its shared library and initializes the
// environment. Safe to call from multiple packages; only the first call has
// any effect.
func InitRuntime(libPath string) error {
	ortInit.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortInit.err = ort.InitializeEnvironment()
	})
	return ortInit.err
}

// onnxSession wraps a dynamic session for a BERT-style encoder model.
type onnxSession struct {
	session    *ort.DynamicAdvancedSession
	inputNames []string
	outputName string
	embedDim   int64
	outputRank int
}

func newONNXSession(modelPath, libPath string) (*onnxSession, error) {
	if err := InitRuntime(libPath); err != nil {
		return nil, fmt.Errorf("onnx runtime init: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("read model info: %w", err)
	}

	have := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		have[in.Name] = true
	}
	inputNames := []string{"input_ids", "attention_mask"}
	for _, name := range inputNames {
		if !have[name] {
			return nil, fmt.Errorf("model missing required input %q", name)
		}
	}
	if have["token_type_ids"] {
		inputNames = append(inputNames, "token_type_ids")
	}

	if len(outputs) == 0 {
		return nil, fmt.Errorf("model has no outputs")
	}
	out := outputs[0]
	dims := out.Dimensions

	// Token embeddings [batch, seq, dim] or pooled output [batch, dim].
	var embedDim int64
	switch len(dims) {
	case 3:
		embedDim = dims[2]
	case 2:
		embedDim = dims[1]
	default:
		return nil, fmt.Errorf("unexpected output rank %d for %q", len(dims), out.Name)
	}
	if embedDim <= 0 {
		return nil, fmt.Errorf("model output %q has dynamic embedding dim", out.Name)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(2)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, []string{out.Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &onnxSession{
		session:    session,
		inputNames: inputNames,
		outputName: out.Name,
		embedDim:   embedDim,
		outputRank: len(dims),
	}, nil
}

// infer runs the encoder for a single sequence. Returns the flat output
// tensor data and whether it is already pooled ([1, dim] rather than
// [1, seq, dim]).
func (s *onnxSession) infer(ids, mask []int64) (data []float32, pooled bool, err error) {
	seqLen := int64(len(ids))
	shape := ort.NewShape(1, seqLen)

	tensors := make([]ort.Value, 0, 3)
	defer func() {
		for _, t := range tensors {
			t.Destroy()
		}
	}()

	tIDs, err := ort.NewTensor(shape, ids)
	if err != nil {
		return nil, false, fmt.Errorf("input_ids tensor: %w", err)
	}
	tensors = append(tensors, tIDs)

	tMask, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, false, fmt.Errorf("attention_mask tensor: %w", err)
	}
	tensors = append(tensors, tMask)

	if len(s.inputNames) == 3 {
		tTypes, err := ort.NewTensor(shape, make([]int64, seqLen))
		if err != nil {
			return nil, false, fmt.Errorf("token_type_ids tensor: %w", err)
		}
		tensors = append(tensors, tTypes)
	}

	var outShape ort.Shape
	if s.outputRank == 3 {
		outShape = ort.NewShape(1, seqLen, s.embedDim)
	} else {
		outShape = ort.NewShape(1, s.embedDim)
	}
	tOut, err := ort.NewEmptyTensor[float32](outShape)
	if err != nil {
		return nil, false, fmt.Errorf("output tensor: %w", err)
	}
	defer tOut.Destroy()

	if err := s.session.Run(tensors, []ort.Value{tOut}); err != nil {
		return nil, false, fmt.Errorf("inference: %w", err)
	}

	src := tOut.GetData()
	data = make([]float32, len(src))
	copy(data, src)
	return data, s.outputRank == 2, nil
}

func (s *onnxSession) close() error {
	return s.session.Destroy()
}
