// Package embedder runs a pre-trained sentence encoder locally via ONNX
// Runtime. The encoder is an opaque transformer to the rest of the service:
// text in, fixed-width dense vector out. The pipeline is tokenize -> ONNX
// inference -> mean pool -> L2 normalize.
package embedder

import (
	"fmt"
	"math"
)

// Encoder produces fixed-width dense embedding vectors from text.
type Encoder struct {
	session *onnxSession
	tok     *tokenizer
}

// New loads the encoder model and its WordPiece vocabulary. libPath is the
// ONNX Runtime shared library shipped alongside the model files.
func New(modelPath, vocabPath, libPath string) (*Encoder, error) {
	sess, err := newONNXSession(modelPath, libPath)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	v, err := loadWordVocab(vocabPath)
	if err != nil {
		_ = sess.close()
		return nil, err
	}

	return &Encoder{session: sess, tok: &tokenizer{vocab: v}}, nil
}

// Dim returns the embedding width.
func (e *Encoder) Dim() int {
	return int(e.session.embedDim)
}

// Encode returns the embedding vector for one text. The model may emit
// either token embeddings [1, seq, dim] (mean-pooled here) or an already
// pooled [1, dim] row; both shapes normalize to a flat dim-length vector.
func (e *Encoder) Encode(text string) ([]float32, error) {
	ids, mask := e.tok.encode(text)

	raw, pooled, err := e.session.infer(ids, mask)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	dim := int(e.session.embedDim)
	var vec []float32
	if pooled {
		vec = raw[:dim]
	} else {
		vec = meanPool(raw, mask, dim)
	}
	l2Normalize(vec)
	return vec, nil
}

// Close releases ONNX Runtime resources.
func (e *Encoder) Close() error {
	return e.session.close()
}

// meanPool averages token embeddings over positions with a set attention
// mask. hidden is a flat [seq * dim] slice for a single sequence.
func meanPool(hidden []float32, mask []int64, dim int) []float32 {
	out := make([]float32, dim)
	var n float32
	for pos, m := range mask {
		if m == 0 {
			continue
		}
		n++
		base := pos * dim
		for i := 0; i < dim; i++ {
			out[i] += hidden[base+i]
		}
	}
	if n == 0 {
		return out
	}
	for i := range out {
		out[i] /= n
	}
	return out
}

// l2Normalize scales vec to unit length in place. The zero vector is left
// untouched.
func l2Normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * inv)
	}
}
