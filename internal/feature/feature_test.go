package feature

import (
	"errors"
	"testing"

	"github.com/linnemanlabs/sift/internal/vocab"
)

type fakeVectorizer struct {
	width int
	out   []float32
}

func (v *fakeVectorizer) Transform(string) []float32 {
	if v.out != nil {
		return v.out
	}
	return make([]float32, v.width)
}

func (v *fakeVectorizer) Width() int { return v.width }

type fakeEncoder struct {
	dim int
	out []float32
	err error
}

func (e *fakeEncoder) Encode(string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	if e.out != nil {
		return e.out, nil
	}
	return make([]float32, e.dim), nil
}

func (e *fakeEncoder) Dim() int { return e.dim }

func testRepos(t *testing.T) *vocab.Vocabulary {
	t.Helper()
	v, err := vocab.New([]string{"acme/api", "acme/web"})
	if err != nil {
		t.Fatalf("vocab.New: %v", err)
	}
	return v
}

func TestAssemblerWidthInvariant(t *testing.T) {
	t.Parallel()

	a := NewAssembler(&fakeVectorizer{width: 250}, &fakeEncoder{dim: 384}, testRepos(t))
	want := StructuralFieldCount + 1 + 250 + 384

	if got := a.Schema().Width(); got != want {
		t.Fatalf("Schema().Width() = %d, want %d", got, want)
	}

	for _, text := range []string{"", "crash on startup\nstack trace attached", "\n"} {
		row, err := a.Extract(text, "acme/api")
		if err != nil {
			t.Fatalf("Extract(%q): %v", text, err)
		}
		if len(row) != want {
			t.Errorf("Extract(%q) len = %d, want %d", text, len(row), want)
		}
	}
}

func TestAssemblerBlockLayout(t *testing.T) {
	t.Parallel()

	sparse := []float32{0.1, 0.2, 0.3}
	dense := []float32{0.9, 0.8}
	a := NewAssembler(&fakeVectorizer{width: 3, out: sparse}, &fakeEncoder{dim: 2, out: dense}, testRepos(t))

	row, err := a.Extract("Crash!\nnil pointer", "acme/web")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if got := row[StructuralFieldCount]; got != 1 {
		t.Errorf("repo_encoded = %v, want 1", got)
	}
	for i, want := range sparse {
		if got := row[StructuralFieldCount+1+i]; got != want {
			t.Errorf("tfidf_%d = %v, want %v", i, got, want)
		}
	}
	for i, want := range dense {
		if got := row[StructuralFieldCount+1+len(sparse)+i]; got != want {
			t.Errorf("bert_%d = %v, want %v", i, got, want)
		}
	}

	// Title comes from the first line only.
	if got := row[idx(t, "title_has_exclamation")]; got != 1 {
		t.Errorf("title_has_exclamation = %v, want 1", got)
	}
	if got := row[idx(t, "body_has_exclamation")]; got != 0 {
		t.Errorf("body_has_exclamation = %v, want 0", got)
	}
}

func TestAssemblerUnknownRepository(t *testing.T) {
	t.Parallel()

	a := NewAssembler(&fakeVectorizer{width: 4}, &fakeEncoder{dim: 4}, testRepos(t))

	_, err := a.Extract("some issue", "evil/unknown")
	if err == nil {
		t.Fatal("Extract with unknown repo: want error, got nil")
	}
	var unknownErr *UnknownRepositoryError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("error = %v, want *UnknownRepositoryError", err)
	}
	if unknownErr.Repo != "evil/unknown" {
		t.Errorf("Repo = %q, want %q", unknownErr.Repo, "evil/unknown")
	}
}

func TestAssemblerStageErrors(t *testing.T) {
	t.Parallel()

	t.Run("tfidf width mismatch", func(t *testing.T) {
		t.Parallel()
		a := NewAssembler(&fakeVectorizer{width: 4, out: []float32{1}}, &fakeEncoder{dim: 2}, testRepos(t))
		_, err := a.Extract("x", "acme/api")
		var stageErr *StageError
		if !errors.As(err, &stageErr) || stageErr.Stage != StageTFIDF {
			t.Fatalf("error = %v, want StageError with stage %q", err, StageTFIDF)
		}
	})

	t.Run("embedding failure", func(t *testing.T) {
		t.Parallel()
		encErr := errors.New("session lost")
		a := NewAssembler(&fakeVectorizer{width: 4}, &fakeEncoder{dim: 2, err: encErr}, testRepos(t))
		_, err := a.Extract("x", "acme/api")
		var stageErr *StageError
		if !errors.As(err, &stageErr) || stageErr.Stage != StageEmbedding {
			t.Fatalf("error = %v, want StageError with stage %q", err, StageEmbedding)
		}
		if !errors.Is(err, encErr) {
			t.Errorf("errors.Is(err, encErr) = false, want true")
		}
	})

	t.Run("embedding dim mismatch", func(t *testing.T) {
		t.Parallel()
		a := NewAssembler(&fakeVectorizer{width: 4}, &fakeEncoder{dim: 2, out: []float32{1, 2, 3}}, testRepos(t))
		_, err := a.Extract("x", "acme/api")
		var stageErr *StageError
		if !errors.As(err, &stageErr) || stageErr.Stage != StageEmbedding {
			t.Fatalf("error = %v, want StageError with stage %q", err, StageEmbedding)
		}
	})
}

func TestSchemaFieldNames(t *testing.T) {
	t.Parallel()

	s := Schema{TFIDFWidth: 2, EmbedDim: 3}
	names := s.FieldNames()
	if len(names) != s.Width() {
		t.Fatalf("len(FieldNames) = %d, want %d", len(names), s.Width())
	}
	if names[0] != "created_hour" {
		t.Errorf("names[0] = %q, want created_hour", names[0])
	}
	if names[StructuralFieldCount] != "repo_encoded" {
		t.Errorf("names[%d] = %q, want repo_encoded", StructuralFieldCount, names[StructuralFieldCount])
	}
	if names[StructuralFieldCount+1] != "tfidf_0" {
		t.Errorf("first sparse column = %q, want tfidf_0", names[StructuralFieldCount+1])
	}
	if last := names[len(names)-1]; last != "bert_2" {
		t.Errorf("last column = %q, want bert_2", last)
	}
}
