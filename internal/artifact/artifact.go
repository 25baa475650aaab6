// Package artifact loads the exported model bundle: the classifier, its
// TF-IDF vectorizer, the label and repository encoders, and the embedding
// model assets. The four top-level artifacts are produced together by one
// training run and are only valid as a set; a partial bundle is a
// deployment error, not something to work around at runtime.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/linnemanlabs/sift/internal/classifier"
	"github.com/linnemanlabs/sift/internal/embedder"
	"github.com/linnemanlabs/sift/internal/feature"
	"github.com/linnemanlabs/sift/internal/tfidf"
	"github.com/linnemanlabs/sift/internal/vocab"
)

// Artifact file names inside the bundle directory. These match the export
// step of the training pipeline.
const (
	classifierFile = "classifier.onnx"
	vectorizerFile = "tfidf_vectorizer.json"
	labelFile      = "label_encoder.json"
	repoFile       = "repo_encoder.json"

	embeddingDir       = "embedding"
	embeddingModelFile = "model.onnx"
	embeddingVocabFile = "vocab.txt"
)

// ErrMissingDir is returned when the bundle directory itself does not exist.
var ErrMissingDir = errors.New("artifact: bundle directory not found")

// MissingArtifactError names the specific artifact absent from an otherwise
// present bundle directory.
type MissingArtifactError struct {
	Name string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("artifact: missing %s", e.Name)
}

// Bundle holds every loaded model component. Construct with Load; callers
// own Close.
type Bundle struct {
	Classifier *classifier.ONNXModel
	Vectorizer *tfidf.Vectorizer
	Encoder    *embedder.Encoder
	Categories *vocab.Vocabulary
	Repos      *vocab.Vocabulary
	Schema     feature.Schema
}

// Load reads a complete bundle from dir, validating presence of every
// artifact before opening any of them, so one error message covers the whole
// deployment problem. libPath locates the ONNX Runtime shared library.
func Load(dir, libPath string) (*Bundle, error) {
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrMissingDir, dir)
	}

	required := []string{
		classifierFile,
		vectorizerFile,
		labelFile,
		repoFile,
		filepath.Join(embeddingDir, embeddingModelFile),
		filepath.Join(embeddingDir, embeddingVocabFile),
	}
	for _, name := range required {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return nil, &MissingArtifactError{Name: name}
		}
	}

	vectorizer, err := tfidf.Load(filepath.Join(dir, vectorizerFile))
	if err != nil {
		return nil, err
	}

	categories, err := vocab.Load(filepath.Join(dir, labelFile))
	if err != nil {
		return nil, fmt.Errorf("artifact: label encoder: %w", err)
	}

	repos, err := vocab.Load(filepath.Join(dir, repoFile))
	if err != nil {
		return nil, fmt.Errorf("artifact: repo encoder: %w", err)
	}

	encoder, err := embedder.New(
		filepath.Join(dir, embeddingDir, embeddingModelFile),
		filepath.Join(dir, embeddingDir, embeddingVocabFile),
		libPath,
	)
	if err != nil {
		return nil, err
	}

	schema := feature.Schema{
		TFIDFWidth: vectorizer.Width(),
		EmbedDim:   encoder.Dim(),
	}

	model, err := classifier.Load(
		filepath.Join(dir, classifierFile), libPath,
		schema.Width(), categories.Len(),
	)
	if err != nil {
		encoder.Close()
		return nil, err
	}

	return &Bundle{
		Classifier: model,
		Vectorizer: vectorizer,
		Encoder:    encoder,
		Categories: categories,
		Repos:      repos,
		Schema:     schema,
	}, nil
}

// Assembler builds the feature assembler wired to this bundle's transforms.
func (b *Bundle) Assembler() *feature.Assembler {
	return feature.NewAssembler(b.Vectorizer, b.Encoder, b.Repos)
}

// Close releases the ONNX sessions. Safe to call once after Load succeeds.
func (b *Bundle) Close() error {
	err := b.Encoder.Close()
	if cerr := b.Classifier.Close(); err == nil {
		err = cerr
	}
	return err
}
