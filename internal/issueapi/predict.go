package issueapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/sift/internal/feature"
	"github.com/linnemanlabs/sift/internal/triage"
)

// issueRequest is the common prediction request body.
type issueRequest struct {
	Title     string  `json:"title"`
	Body      string  `json:"body"`
	Repo      string  `json:"repo"`
	Threshold float64 `json:"threshold,omitempty"`
}

// validate rejects submissions the model has nothing to work with.
func (req *issueRequest) validate() string {
	if strings.TrimSpace(req.Title) == "" && strings.TrimSpace(req.Body) == "" {
		return "title or body is required"
	}
	if strings.TrimSpace(req.Repo) == "" {
		return "repo is required"
	}
	return ""
}

type repoContext struct {
	Repository string `json:"repository"`
}

// predictResponse flattens the stored record into the rich-mode result
// shape, with the record ID and repository context alongside.
type predictResponse struct {
	ID              string                  `json:"id"`
	Primary         triage.Suggestion       `json:"primary_category"`
	Secondary       []triage.Suggestion     `json:"secondary_suggestions"`
	Recommendations []triage.Recommendation `json:"triage_recommendations"`
	RepoContext     repoContext             `json:"repo_context"`
	Duration        float64                 `json:"duration_seconds"`
}

func toPredictResponse(rec *triage.Record) *predictResponse {
	return &predictResponse{
		ID:              rec.ID,
		Primary:         rec.Result.Primary,
		Secondary:       rec.Result.Secondary,
		Recommendations: rec.Result.Recommendations,
		RepoContext:     repoContext{Repository: rec.Repository},
		Duration:        rec.Duration,
	}
}

func (a *API) handleSuggestTags(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	tags, err := a.svc.SuggestTags(r.Context(), req.Title, req.Body, req.Repo)
	if err != nil {
		a.writePredictError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"suggested_tags": tags})
}

func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	threshold := req.Threshold
	if threshold <= 0 {
		threshold = a.defaultThreshold
	}

	rec, err := a.svc.Predict(r.Context(), &triage.PredictRequest{
		Title:      req.Title,
		Body:       req.Body,
		Repository: req.Repo,
		Threshold:  threshold,
	})
	if err != nil {
		a.writePredictError(w, r, err)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("sift.prediction.id", rec.ID),
		attribute.String("sift.prediction.primary", rec.Result.Primary.Category),
	)

	writeJSON(w, http.StatusOK, toPredictResponse(rec))
}

type batchRequest struct {
	Issues    []issueRequest `json:"issues"`
	Threshold float64        `json:"threshold,omitempty"`
}

// batchItemResponse pairs one batch input with its outcome, in input order.
type batchItemResponse struct {
	Result *predictResponse `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func (a *API) handleBatchPredict(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if len(req.Issues) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "issues is required"})
		return
	}
	if len(req.Issues) > maxBatchItems {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "too many issues in one batch"})
		return
	}

	reqs := make([]*triage.PredictRequest, len(req.Issues))
	for i, issue := range req.Issues {
		threshold := issue.Threshold
		if threshold <= 0 {
			threshold = req.Threshold
		}
		if threshold <= 0 {
			threshold = a.defaultThreshold
		}
		reqs[i] = &triage.PredictRequest{
			Title:      issue.Title,
			Body:       issue.Body,
			Repository: issue.Repo,
			Threshold:  threshold,
		}
	}

	items := a.svc.BatchPredict(r.Context(), reqs)

	out := make([]batchItemResponse, len(items))
	for i, item := range items {
		if item.Error != "" {
			out[i] = batchItemResponse{Error: item.Error}
			continue
		}
		out[i] = batchItemResponse{Result: toPredictResponse(item.Record)}
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

// writePredictError maps pipeline failures to HTTP statuses: an unknown
// repository is the caller's fault, everything else is ours.
func (a *API) writePredictError(w http.ResponseWriter, r *http.Request, err error) {
	var unknownErr *feature.UnknownRepositoryError
	if errors.As(err, &unknownErr) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": unknownErr.Error()})
		return
	}

	a.logger.Error(r.Context(), err, "prediction failed")
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
