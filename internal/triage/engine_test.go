package triage

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/sift/internal/feature"
	"github.com/linnemanlabs/sift/internal/vocab"
)

// stubModel returns fixed probabilities, standing in for the ONNX classifier.
type stubModel struct {
	probs []float64
	err   error
}

func (m *stubModel) PredictProba([]float32) ([]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.probs, nil
}

func (m *stubModel) NumClasses() int { return len(m.probs) }

type stubVectorizer struct{ width int }

func (v *stubVectorizer) Transform(string) []float32 { return make([]float32, v.width) }
func (v *stubVectorizer) Width() int                 { return v.width }

type stubEncoder struct{ dim int }

func (e *stubEncoder) Encode(string) ([]float32, error) { return make([]float32, e.dim), nil }
func (e *stubEncoder) Dim() int                         { return e.dim }

func newTestEngine(t *testing.T, model *stubModel, classes []string, hooks EngineHooks) *Engine {
	t.Helper()

	repos, err := vocab.New([]string{"acme/api", "acme/web"})
	if err != nil {
		t.Fatalf("repos vocab: %v", err)
	}
	categories, err := vocab.New(classes)
	if err != nil {
		t.Fatalf("categories vocab: %v", err)
	}

	assembler := feature.NewAssembler(&stubVectorizer{width: 8}, &stubEncoder{dim: 4}, repos)
	return NewEngine(assembler, model, categories, hooks, log.Nop())
}

func TestEngineSuggestTags(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t,
		&stubModel{probs: []float64{0.9, 0.05, 0.03, 0.02}},
		[]string{"bug", "feature", "doc", "other"},
		EngineHooks{},
	)

	tags, err := e.SuggestTags(context.Background(), "login crashes", "stack trace attached", "acme/api")
	if err != nil {
		t.Fatalf("SuggestTags: %v", err)
	}

	want := []Tag{
		{Tag: "bug", Confidence: 0.9},
		{Tag: "feature", Confidence: 0.05},
		{Tag: "doc", Confidence: 0.03},
	}
	if !reflect.DeepEqual(tags, want) {
		t.Errorf("tags = %+v, want %+v", tags, want)
	}
}

func TestEngineDeterminism(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t,
		&stubModel{probs: []float64{0.4, 0.3, 0.2, 0.1}},
		[]string{"is_bug_cat", "is_feature_cat", "is_doc_cat", "is_other_cat"},
		EngineHooks{},
	)

	first, err := e.Predict(context.Background(), "t", "b", "acme/web", 0)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := e.Predict(context.Background(), "t", "b", "acme/web", 0)
		if err != nil {
			t.Fatalf("Predict run %d: %v", i, err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs:\nfirst %+v\nagain %+v", i, first, again)
		}
	}
}

func TestEngineUnknownRepository(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t,
		&stubModel{probs: []float64{0.5, 0.5}},
		[]string{"bug", "other"},
		EngineHooks{},
	)

	_, err := e.Predict(context.Background(), "t", "b", "totally/unknown-repo", 0)
	var unknownErr *feature.UnknownRepositoryError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("error = %v, want *feature.UnknownRepositoryError", err)
	}
}

func TestEngineClassifierFailure(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t,
		&stubModel{err: errors.New("session closed"), probs: []float64{0, 0}},
		[]string{"bug", "other"},
		EngineHooks{},
	)

	_, err := e.Predict(context.Background(), "t", "b", "acme/api", 0)
	var stageErr *feature.StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != feature.StageClassifier {
		t.Fatalf("error = %v, want classifier StageError", err)
	}
}

func TestEngineClassWidthMismatch(t *testing.T) {
	t.Parallel()

	// Three probabilities against a two-class vocabulary.
	e := newTestEngine(t,
		&stubModel{probs: []float64{0.5, 0.3, 0.2}},
		[]string{"bug", "other"},
		EngineHooks{},
	)

	_, err := e.Predict(context.Background(), "t", "b", "acme/api", 0)
	var stageErr *feature.StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != feature.StageClassifier {
		t.Fatalf("error = %v, want classifier StageError", err)
	}
}

func TestEngineHooks(t *testing.T) {
	t.Parallel()

	var stages []string
	var completed string
	hooks := EngineHooks{
		OnStage:    func(stage string, _ float64) { stages = append(stages, stage) },
		OnComplete: func(category string, _, _ float64) { completed = category },
	}

	e := newTestEngine(t,
		&stubModel{probs: []float64{0.7, 0.3}},
		[]string{"bug", "other"},
		hooks,
	)

	if _, err := e.Predict(context.Background(), "t", "b", "acme/api", 0); err != nil {
		t.Fatalf("Predict: %v", err)
	}

	if !reflect.DeepEqual(stages, []string{"features", "classifier"}) {
		t.Errorf("stages = %v", stages)
	}
	if completed != "bug" {
		t.Errorf("completed category = %q, want bug", completed)
	}
}

func TestEngineCreatesSpans(t *testing.T) {
	// Not parallel: swaps the global OTel tracer provider.

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	e := newTestEngine(t,
		&stubModel{probs: []float64{0.7, 0.3}},
		[]string{"bug", "other"},
		EngineHooks{},
	)

	if _, err := e.Predict(context.Background(), "t", "b", "acme/api", 0); err != nil {
		t.Fatalf("Predict: %v", err)
	}

	spans := exporter.GetSpans()

	counts := make(map[string]int)
	for _, s := range spans {
		counts[s.Name]++
	}
	if counts["engine.extract"] != 1 {
		t.Errorf("engine.extract spans = %d, want 1", counts["engine.extract"])
	}
	if counts["engine.classify"] != 1 {
		t.Errorf("engine.classify spans = %d, want 1", counts["engine.classify"])
	}

	for _, s := range spans {
		if s.Name != "engine.extract" {
			continue
		}
		attrs := make(map[string]any)
		for _, a := range s.Attributes {
			attrs[string(a.Key)] = a.Value.AsInterface()
		}
		if v, ok := attrs["repo"]; !ok || v != "acme/api" {
			t.Errorf("engine.extract span repo = %v, want acme/api", v)
		}
	}
}

func TestEngineHooksOnError(t *testing.T) {
	t.Parallel()

	var failedStage string
	e := newTestEngine(t,
		&stubModel{probs: []float64{0.5, 0.5}},
		[]string{"bug", "other"},
		EngineHooks{OnError: func(stage string) { failedStage = stage }},
	)

	if _, err := e.Predict(context.Background(), "t", "b", "nope/nope", 0); err == nil {
		t.Fatal("want error for unknown repo")
	}
	if failedStage != "repo_encoding" {
		t.Errorf("failed stage = %q, want repo_encoding", failedStage)
	}
}
