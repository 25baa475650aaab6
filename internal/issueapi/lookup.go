package issueapi

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/sift/internal/tfidf"
)

func (a *API) handleGetPrediction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("sift.prediction.id", id))

	rec, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get prediction", "id", id)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// handleListRepos serves the frozen repository vocabulary, in id order. The
// submission form uses it to populate its repo selector; anything outside
// this list is rejected at predict time.
func (a *API) handleListRepos(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"repos": a.repos.Names()})
}

// handleTopTerms serves the term-highlight preview: the strongest TF-IDF
// vocabulary terms in the supplied free text. Pure presentation support; no
// prediction happens here.
func (a *API) handleTopTerms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	terms := []tfidf.TermWeight{}
	if a.terms != nil && q != "" {
		if tw := a.terms.TopTerms(q, topTermCount); tw != nil {
			terms = tw
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"terms": terms})
}
