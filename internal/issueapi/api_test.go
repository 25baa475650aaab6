package issueapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/sift/internal/feature"
	"github.com/linnemanlabs/sift/internal/tfidf"
	"github.com/linnemanlabs/sift/internal/triage"
	"github.com/linnemanlabs/sift/internal/vocab"
)

// fakeService implements TriageService with canned predictions over the
// acme/* repositories.
type fakeService struct {
	records map[string]*triage.Record
}

func newFakeService() *fakeService {
	return &fakeService{records: make(map[string]*triage.Record)}
}

func (f *fakeService) checkRepo(repo string) error {
	if repo != "acme/api" && repo != "acme/web" {
		return &feature.UnknownRepositoryError{Repo: repo}
	}
	return nil
}

func (f *fakeService) SuggestTags(_ context.Context, _, _, repo string) ([]triage.Tag, error) {
	if err := f.checkRepo(repo); err != nil {
		return nil, err
	}
	return []triage.Tag{
		{Tag: "is_bug_cat", Confidence: 0.9},
		{Tag: "is_feature_cat", Confidence: 0.05},
		{Tag: "is_doc_cat", Confidence: 0.03},
	}, nil
}

func (f *fakeService) Predict(_ context.Context, req *triage.PredictRequest) (*triage.Record, error) {
	if err := f.checkRepo(req.Repository); err != nil {
		return nil, err
	}
	rec := &triage.Record{
		ID:          fmt.Sprintf("rec-%d", len(f.records)+1),
		Fingerprint: triage.Fingerprint(req.Title, req.Body, req.Repository),
		Repository:  req.Repository,
		Title:       req.Title,
		Result: &triage.Result{
			Primary:         triage.Suggestion{Category: "is_bug_cat", Confidence: 0.9, ActionNeeded: true},
			Secondary:       []triage.Suggestion{},
			Recommendations: []triage.Recommendation{},
		},
	}
	f.records[rec.ID] = rec
	return rec, nil
}

func (f *fakeService) BatchPredict(ctx context.Context, reqs []*triage.PredictRequest) []triage.BatchItem {
	items := make([]triage.BatchItem, len(reqs))
	for i, req := range reqs {
		rec, err := f.Predict(ctx, req)
		if err != nil {
			items[i] = triage.BatchItem{Error: err.Error()}
			continue
		}
		items[i] = triage.BatchItem{Record: rec}
	}
	return items
}

func (f *fakeService) Get(_ context.Context, id string) (*triage.Record, bool, error) {
	rec, ok := f.records[id]
	return rec, ok, nil
}

func testVectorizer(t *testing.T) *tfidf.Vectorizer {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tfidf_vectorizer.json")
	artifact := `{"width":4,"vocabulary":{"crash":0,"login":1,"slow":2,"docs":3},"idf":[1.5,1.2,1.1,1.0]}`
	if err := os.WriteFile(path, []byte(artifact), 0o644); err != nil {
		t.Fatalf("write vectorizer: %v", err)
	}
	v, err := tfidf.Load(path)
	if err != nil {
		t.Fatalf("tfidf.Load: %v", err)
	}
	return v
}

func newTestRouter(t *testing.T) (chi.Router, *fakeService) {
	t.Helper()

	svc := newFakeService()
	repos, err := vocab.New([]string{"acme/api", "acme/web"})
	if err != nil {
		t.Fatalf("vocab.New: %v", err)
	}
	api := New(nil, svc, testVectorizer(t), repos, 0)
	r := chi.NewRouter()
	api.RegisterRoutes(r)
	return r, svc
}

func doJSON(t *testing.T, r chi.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestNew_NilService_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("New with nil service did not panic")
		}
	}()
	repos, _ := vocab.New([]string{"acme/api"})
	New(nil, nil, nil, repos, 0)
}

func TestSuggestTags(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	rec := doJSON(t, r, http.MethodPost, "/api/v1/tags",
		`{"title":"login crashes","body":"trace attached","repo":"acme/api"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		SuggestedTags []triage.Tag `json:"suggested_tags"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.SuggestedTags) != 3 || resp.SuggestedTags[0].Tag != "is_bug_cat" {
		t.Errorf("suggested_tags = %+v", resp.SuggestedTags)
	}
}

func TestPredict_EmptySubmission(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty title and body", `{"title":"","body":"","repo":"acme/api"}`},
		{"whitespace only", `{"title":"  ","body":"\n","repo":"acme/api"}`},
		{"missing repo", `{"title":"crash","body":"b"}`},
		{"invalid json", `{bad`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := doJSON(t, r, http.MethodPost, "/api/v1/predict", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestPredict_UnknownRepo(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	rec := doJSON(t, r, http.MethodPost, "/api/v1/predict",
		`{"title":"crash","body":"b","repo":"totally/unknown-repo"}`)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "totally/unknown-repo") {
		t.Errorf("body = %s, want repo named in error", rec.Body.String())
	}
}

func TestPredict_RichShape(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	rec := doJSON(t, r, http.MethodPost, "/api/v1/predict",
		`{"title":"login crashes","body":"trace","repo":"acme/api"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"id", "primary_category", "secondary_suggestions", "triage_recommendations", "repo_context"} {
		if _, ok := resp[key]; !ok {
			t.Errorf("response missing %q: %s", key, rec.Body.String())
		}
	}

	var primary triage.Suggestion
	if err := json.Unmarshal(resp["primary_category"], &primary); err != nil {
		t.Fatalf("decode primary: %v", err)
	}
	if primary.Category != "is_bug_cat" || !primary.ActionNeeded {
		t.Errorf("primary = %+v", primary)
	}
}

func TestBatchPredict_IsolatesFailures(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	rec := doJSON(t, r, http.MethodPost, "/api/v1/predict/batch", `{
		"issues": [
			{"title":"a","body":"b","repo":"acme/api"},
			{"title":"c","body":"d","repo":"nope/nope"},
			{"title":"e","body":"f","repo":"acme/web"}
		]
	}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Results []struct {
			Result *struct {
				ID          string `json:"id"`
				RepoContext struct {
					Repository string `json:"repository"`
				} `json:"repo_context"`
			} `json:"result"`
			Error string `json:"error"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(resp.Results))
	}
	if resp.Results[0].Result == nil || resp.Results[0].Result.RepoContext.Repository != "acme/api" {
		t.Errorf("item 0 = %+v", resp.Results[0])
	}
	if resp.Results[1].Error == "" || resp.Results[1].Result != nil {
		t.Errorf("item 1 = %+v, want failure", resp.Results[1])
	}
	if resp.Results[2].Result == nil || resp.Results[2].Result.RepoContext.Repository != "acme/web" {
		t.Errorf("item 2 = %+v, want success despite failed sibling", resp.Results[2])
	}
}

func TestBatchPredict_EmptyList(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	rec := doJSON(t, r, http.MethodPost, "/api/v1/predict/batch", `{"issues":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetPrediction(t *testing.T) {
	t.Parallel()

	r, svc := newTestRouter(t)

	// Seed one prediction through the API.
	doJSON(t, r, http.MethodPost, "/api/v1/predict",
		`{"title":"t","body":"b","repo":"acme/api"}`)
	if len(svc.records) != 1 {
		t.Fatalf("records = %d, want 1", len(svc.records))
	}

	rec := doJSON(t, r, http.MethodGet, "/api/v1/predictions/rec-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var got triage.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "rec-1" || got.Repository != "acme/api" {
		t.Errorf("record = %+v", got)
	}

	missing := doJSON(t, r, http.MethodGet, "/api/v1/predictions/rec-999", "")
	if missing.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", missing.Code)
	}
}

func TestListRepos(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	rec := doJSON(t, r, http.MethodGet, "/api/v1/repos", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Repos []string `json:"repos"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []string{"acme/api", "acme/web"}
	if len(resp.Repos) != 2 || resp.Repos[0] != want[0] || resp.Repos[1] != want[1] {
		t.Errorf("repos = %v, want %v", resp.Repos, want)
	}
}

func TestTopTerms(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	rec := doJSON(t, r, http.MethodGet, "/api/v1/terms?q=login+crash+crash", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Terms []tfidf.TermWeight `json:"terms"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Terms) != 2 {
		t.Fatalf("terms = %+v, want 2 entries", resp.Terms)
	}
	if resp.Terms[0].Term != "crash" {
		t.Errorf("top term = %q, want crash (repeated term outweighs)", resp.Terms[0].Term)
	}

	empty := doJSON(t, r, http.MethodGet, "/api/v1/terms", "")
	if empty.Code != http.StatusOK || !strings.Contains(empty.Body.String(), `"terms":[]`) {
		t.Errorf("empty query: status %d body %s", empty.Code, empty.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()

	r, _ := newTestRouter(t)
	rec := doJSON(t, r, http.MethodGet, "/api/v1/predict", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/v1/predict = %d, want 405", rec.Code)
	}
}
