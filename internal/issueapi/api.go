// Package issueapi exposes the issue-triage HTTP API: tag suggestion,
// rich-mode prediction, batch prediction, stored-prediction lookup, and the
// vocabulary endpoints the submission form needs.
package issueapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/sift/internal/tfidf"
	"github.com/linnemanlabs/sift/internal/triage"
	"github.com/linnemanlabs/sift/internal/vocab"
)

// maxBatchItems bounds one batch request.
const maxBatchItems = 100

// topTermCount is the size of the term-highlight preview.
const topTermCount = 5

// TriageService defines the business operations issueapi needs.
type TriageService interface {
	SuggestTags(ctx context.Context, title, body, repo string) ([]triage.Tag, error)
	Predict(ctx context.Context, req *triage.PredictRequest) (*triage.Record, error)
	BatchPredict(ctx context.Context, reqs []*triage.PredictRequest) []triage.BatchItem
	Get(ctx context.Context, id string) (*triage.Record, bool, error)
}

// TermHighlighter provides the TF-IDF term preview for free-text input.
type TermHighlighter interface {
	TopTerms(text string, k int) []tfidf.TermWeight
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger           log.Logger
	svc              TriageService
	terms            TermHighlighter
	repos            *vocab.Vocabulary
	defaultThreshold float64
}

// New creates a new API handler. defaultThreshold applies to requests that
// omit one; a non-positive value selects triage.DefaultThreshold.
func New(logger log.Logger, svc TriageService, terms TermHighlighter, repos *vocab.Vocabulary, defaultThreshold float64) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	if repos == nil {
		panic(xerrors.New("repository vocabulary is required"))
	}
	if defaultThreshold <= 0 {
		defaultThreshold = triage.DefaultThreshold
	}
	return &API{
		logger:           logger,
		svc:              svc,
		terms:            terms,
		repos:            repos,
		defaultThreshold: defaultThreshold,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/tags", a.handleSuggestTags)
		r.Post("/predict", a.handlePredict)
		r.Post("/predict/batch", a.handleBatchPredict)
		r.Get("/predictions/{id}", a.handleGetPrediction)
		r.Get("/repos", a.handleListRepos)
		r.Get("/terms", a.handleTopTerms)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
