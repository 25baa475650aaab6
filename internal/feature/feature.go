// Package feature assembles the fixed-order feature vector the classifier
// was trained on: a scalar structural block, the encoded repository id, the
// sparse TF-IDF block, and the dense embedding block. Field order is a
// contract shared with the offline training pipeline; any positional drift
// silently corrupts predictions.
package feature

import (
	"fmt"
	"strings"

	"github.com/linnemanlabs/sift/internal/vocab"
)

// Transform stage names used in StageError. The classifier stage lives in
// the triage engine but shares this taxonomy.
const (
	StageTFIDF      = "tfidf"
	StageEmbedding  = "embedding"
	StageClassifier = "classifier"
)

// StageError wraps a failure from one of the opaque model transforms with
// the stage that produced it, so operators can tell a broken artifact from
// a malformed input.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// UnknownRepositoryError is returned when the repository is outside the
// frozen training vocabulary. There is no fallback bucket.
type UnknownRepositoryError struct {
	Repo string
}

func (e *UnknownRepositoryError) Error() string {
	return fmt.Sprintf("unknown repository %q", e.Repo)
}

// SparseVectorizer is the opaque TF-IDF transform: text in, fixed-width
// non-negative weights out.
type SparseVectorizer interface {
	Transform(text string) []float32
	Width() int
}

// DenseEncoder is the opaque embedding transform: text in, fixed-width
// dense vector out.
type DenseEncoder interface {
	Encode(text string) ([]float32, error)
	Dim() int
}

// Assembler builds feature rows from raw issue text. It is stateless apart
// from the immutable transforms and vocabulary it wraps, and safe for
// concurrent use.
type Assembler struct {
	vectorizer SparseVectorizer
	encoder    DenseEncoder
	repos      *vocab.Vocabulary
	schema     Schema
}

// NewAssembler wires the assembler to its frozen transforms.
func NewAssembler(vectorizer SparseVectorizer, encoder DenseEncoder, repos *vocab.Vocabulary) *Assembler {
	return &Assembler{
		vectorizer: vectorizer,
		encoder:    encoder,
		repos:      repos,
		schema: Schema{
			TFIDFWidth: vectorizer.Width(),
			EmbedDim:   encoder.Dim(),
		},
	}
}

// Schema returns the fixed vector layout.
func (a *Assembler) Schema() Schema {
	return a.schema
}

// Extract builds one feature row from combined issue text (title and body
// joined by a newline, as at training time) and the repository name. The
// returned slice always has exactly Schema().Width() values.
func (a *Assembler) Extract(text, repo string) ([]float32, error) {
	title, body := splitText(text)

	repoID, err := a.repos.Encode(repo)
	if err != nil {
		return nil, &UnknownRepositoryError{Repo: repo}
	}

	sparse := a.vectorizer.Transform(text)
	if len(sparse) != a.schema.TFIDFWidth {
		return nil, &StageError{
			Stage: StageTFIDF,
			Err:   fmt.Errorf("got %d weights, want %d", len(sparse), a.schema.TFIDFWidth),
		}
	}

	dense, err := a.encoder.Encode(text)
	if err != nil {
		return nil, &StageError{Stage: StageEmbedding, Err: err}
	}
	if len(dense) != a.schema.EmbedDim {
		return nil, &StageError{
			Stage: StageEmbedding,
			Err:   fmt.Errorf("got %d values, want %d", len(dense), a.schema.EmbedDim),
		}
	}

	// Zero-filled row first: any structural field the extraction step does
	// not set keeps a 0 default, preserving total width if feature logic
	// evolves.
	row := make([]float32, a.schema.Width())
	copy(row, structuralFeatures(title, body))
	row[StructuralFieldCount] = float32(repoID)
	copy(row[StructuralFieldCount+1:], sparse)
	copy(row[StructuralFieldCount+1+a.schema.TFIDFWidth:], dense)

	return row, nil
}

// splitText separates combined text back into title (first line) and body,
// mirroring the training pipeline's join.
func splitText(text string) (title, body string) {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i], text[i+1:]
	}
	return text, ""
}
