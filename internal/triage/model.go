package triage

import "time"

// Prediction pairs a category with its raw classifier probability.
type Prediction struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Tag is the simple-mode suggestion shape consumed by tag pickers.
type Tag struct {
	Tag        string  `json:"tag"`
	Confidence float64 `json:"confidence"`
}

// Suggestion is a rich-mode category suggestion. ActionNeeded flags
// categories that warrant human follow-up regardless of rank.
type Suggestion struct {
	Category     string  `json:"category"`
	Confidence   float64 `json:"confidence"`
	ActionNeeded bool    `json:"action_needed"`
}

// Recommendation is a rule-derived triage action for the issue queue.
type Recommendation struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Priority string `json:"priority"`
}

// Result is the rich-mode outcome of one prediction: the top-ranked category
// promoted to primary, lower ranks retained as threshold-filtered secondary
// suggestions, plus rule-table recommendations.
type Result struct {
	Primary         Suggestion       `json:"primary_category"`
	Secondary       []Suggestion     `json:"secondary_suggestions"`
	Recommendations []Recommendation `json:"triage_recommendations"`
}

// Record is a persisted prediction together with its request context.
type Record struct {
	ID          string    `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	Repository  string    `json:"repository"`
	Title       string    `json:"title"`
	Result      *Result   `json:"result"`
	CreatedAt   time.Time `json:"created_at"`
	Duration    float64   `json:"duration_seconds"`
}
