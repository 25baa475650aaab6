package triage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/sift/internal/classifier"
	"github.com/linnemanlabs/sift/internal/feature"
	"github.com/linnemanlabs/sift/internal/vocab"
)

var tracer = otel.Tracer("github.com/linnemanlabs/sift/internal/triage")

// EngineHooks carries optional instrumentation callbacks. Nil fields are
// skipped.
type EngineHooks struct {
	// OnStage fires after each pipeline stage with its wall time.
	OnStage func(stage string, seconds float64)
	// OnComplete fires after a successful prediction.
	OnComplete func(category string, confidence float64, seconds float64)
	// OnError fires when a stage fails, with the stage name.
	OnError func(stage string)
}

// Engine is the pure prediction pipeline: feature assembly, classifier
// scoring, ranking. It holds only the immutable loaded artifacts and is safe
// for concurrent use; every call builds its own feature row.
type Engine struct {
	assembler  *feature.Assembler
	model      classifier.Model
	categories *vocab.Vocabulary
	hooks      EngineHooks
	logger     log.Logger
}

// NewEngine creates a prediction engine over the loaded artifacts.
func NewEngine(assembler *feature.Assembler, model classifier.Model, categories *vocab.Vocabulary, hooks EngineHooks, logger log.Logger) *Engine {
	return &Engine{
		assembler:  assembler,
		model:      model,
		categories: categories,
		hooks:      hooks,
		logger:     logger,
	}
}

// Categories returns the frozen category vocabulary the engine predicts over.
func (e *Engine) Categories() *vocab.Vocabulary {
	return e.categories
}

// SuggestTags runs the pipeline in simple mode: the top three categories
// with raw confidences, no threshold applied.
func (e *Engine) SuggestTags(ctx context.Context, title, body, repo string) ([]Tag, error) {
	preds, err := e.rank(ctx, title, body, repo)
	if err != nil {
		return nil, err
	}
	return TopTags(preds), nil
}

// Predict runs the pipeline in rich mode. A non-positive threshold selects
// DefaultThreshold.
func (e *Engine) Predict(ctx context.Context, title, body, repo string, threshold float64) (*Result, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	preds, err := e.rank(ctx, title, body, repo)
	if err != nil {
		return nil, err
	}
	return Recommend(preds, threshold), nil
}

// rank assembles features, scores them, and returns the stable-sorted
// predictions. Failures carry the stage that produced them.
func (e *Engine) rank(ctx context.Context, title, body, repo string) ([]Prediction, error) {
	start := time.Now()
	text := title + "\n" + body

	ctx, span := tracer.Start(ctx, "engine.extract", trace.WithAttributes(
		attribute.String("repo", repo),
	))
	row, err := e.assembler.Extract(text, repo)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		e.fail(ctx, err, extractStage(err))
		return nil, err
	}
	span.End()
	e.stage("features", time.Since(start).Seconds())

	classifyStart := time.Now()
	ctx, span = tracer.Start(ctx, "engine.classify")
	probs, err := e.model.PredictProba(row)
	if err != nil {
		err = &feature.StageError{Stage: feature.StageClassifier, Err: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		e.fail(ctx, err, feature.StageClassifier)
		return nil, err
	}
	span.End()
	e.stage(feature.StageClassifier, time.Since(classifyStart).Seconds())

	if len(probs) != e.categories.Len() {
		err := &feature.StageError{
			Stage: feature.StageClassifier,
			Err:   fmt.Errorf("got %d probabilities, want %d classes", len(probs), e.categories.Len()),
		}
		e.fail(ctx, err, feature.StageClassifier)
		return nil, err
	}

	preds := Rank(probs, e.categories.Names())

	if e.hooks.OnComplete != nil {
		e.hooks.OnComplete(preds[0].Category, preds[0].Confidence, time.Since(start).Seconds())
	}
	e.logger.Info(ctx, "prediction ranked",
		"repo", repo,
		"primary", preds[0].Category,
		"confidence", preds[0].Confidence,
		"duration", time.Since(start).Seconds(),
	)
	return preds, nil
}

func (e *Engine) stage(name string, seconds float64) {
	if e.hooks.OnStage != nil {
		e.hooks.OnStage(name, seconds)
	}
}

func (e *Engine) fail(ctx context.Context, err error, stage string) {
	if e.hooks.OnError != nil {
		e.hooks.OnError(stage)
	}
	e.logger.Error(ctx, err, "prediction failed", "stage", stage)
}

// extractStage names the failed stage inside feature assembly for metrics.
func extractStage(err error) string {
	var stageErr *feature.StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	var unknownErr *feature.UnknownRepositoryError
	if errors.As(err, &unknownErr) {
		return "repo_encoding"
	}
	return "features"
}
