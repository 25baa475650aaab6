package triage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"
)

// PredictRequest is one issue to triage. A zero Threshold selects
// DefaultThreshold.
type PredictRequest struct {
	Title      string  `json:"title"`
	Body       string  `json:"body"`
	Repository string  `json:"repo"`
	Threshold  float64 `json:"threshold,omitempty"`
}

// Notifier posts out-of-band notifications about predictions that need a
// human.
type Notifier interface {
	NotifyLowConfidence(ctx context.Context, rec *Record) error
}

// BatchItem pairs one batch input with its outcome. Exactly one of Record
// and Error is set.
type BatchItem struct {
	Record *Record `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Service is the business boundary for triage operations: it runs the pure
// engine, persists the outcome, and dispatches notifications.
type Service struct {
	store    Store
	engine   *Engine
	notifier Notifier // optional
	metrics  *Metrics // optional
	logger   log.Logger
}

// NewService creates a new triage service. notifier and metrics may be nil.
func NewService(store Store, engine *Engine, notifier Notifier, metrics *Metrics, logger log.Logger) *Service {
	return &Service{
		store:    store,
		engine:   engine,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
	}
}

// SuggestTags runs a simple-mode prediction. Nothing is persisted; the
// result is a pure function of the request and the loaded artifacts.
func (s *Service) SuggestTags(ctx context.Context, title, body, repo string) ([]Tag, error) {
	return s.engine.SuggestTags(ctx, title, body, repo)
}

// Predict runs one rich-mode prediction and records it in history. A failed
// history write does not fail the prediction; the result is already computed
// and the caller should get it.
func (s *Service) Predict(ctx context.Context, req *PredictRequest) (*Record, error) {
	start := time.Now()

	result, err := s.engine.Predict(ctx, req.Title, req.Body, req.Repository, req.Threshold)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		ID:          ulid.Make().String(),
		Fingerprint: Fingerprint(req.Title, req.Body, req.Repository),
		Repository:  req.Repository,
		Title:       req.Title,
		Result:      result,
		CreatedAt:   time.Now(),
		Duration:    time.Since(start).Seconds(),
	}

	if err := s.store.Put(ctx, rec); err != nil {
		s.logger.Error(ctx, err, "failed to persist prediction", "id", rec.ID)
		if s.metrics != nil {
			s.metrics.StoreFailures.Inc()
		}
	}

	if result.Primary.Confidence < tierLow {
		if s.metrics != nil {
			s.metrics.LowConfidenceTotal.Inc()
		}
		s.notifyLowConfidence(ctx, rec)
	}

	return rec, nil
}

// BatchPredict applies Predict independently to each input: order-preserving,
// one item per input, and a failed item never aborts its siblings.
func (s *Service) BatchPredict(ctx context.Context, reqs []*PredictRequest) []BatchItem {
	if s.metrics != nil {
		s.metrics.BatchItems.Observe(float64(len(reqs)))
	}

	items := make([]BatchItem, len(reqs))
	for i, req := range reqs {
		rec, err := s.Predict(ctx, req)
		if err != nil {
			items[i] = BatchItem{Error: err.Error()}
			continue
		}
		items[i] = BatchItem{Record: rec}
	}
	return items
}

// Get retrieves a stored prediction by ID.
func (s *Service) Get(ctx context.Context, id string) (*Record, bool, error) {
	return s.store.Get(ctx, id)
}

// GetByFingerprint retrieves the most recent prediction for identical issue
// content.
func (s *Service) GetByFingerprint(ctx context.Context, fingerprint string) (*Record, bool, error) {
	return s.store.GetByFingerprint(ctx, fingerprint)
}

func (s *Service) notifyLowConfidence(ctx context.Context, rec *Record) {
	if s.notifier == nil {
		return
	}
	// Notification must not inherit the request deadline; the prediction is
	// already done.
	if err := s.notifier.NotifyLowConfidence(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Error(ctx, err, "low-confidence notification failed", "id", rec.ID)
		if s.metrics != nil {
			s.metrics.NotifyFailures.Inc()
		}
	}
}

// Fingerprint derives a stable content hash over title, body, and repo.
// Fields are length-prefixed so ("ab","c") and ("a","bc") never collide.
func Fingerprint(title, body, repo string) string {
	h := sha256.New()
	for _, s := range []string{title, body, repo} {
		fmt.Fprintf(h, "%d:", len(s))
		io.WriteString(h, s) //nolint:errcheck // hash writes cannot fail
	}
	return hex.EncodeToString(h.Sum(nil))
}
