package feature

import "fmt"

// structuralFields is the frozen order of the scalar feature block. The
// classifier indexes by position, not name: this list must match the
// training pipeline exactly and must never be reordered. The first four
// fields are training-time inputs (issue timestamps, resolution spans) that
// stay zero at inference.
var structuralFields = []string{
	"created_hour",
	"created_day_of_week",
	"created_month",
	"n_days_to_resolution",
	"title_length",
	"body_length",
	"title_word_count",
	"body_word_count",
	"code_block_count",
	"url_count",
	"title_question_word_count",
	"title_has_question_mark",
	"body_question_word_count",
	"body_has_question_mark",
	"total_question_word_count",
	"total_has_question_mark",
	"includes_questions",
	"title_n_urgent_words",
	"title_has_exclamation",
	"body_n_urgent_words",
	"body_has_exclamation",
	"total_n_urgent_words",
	"total_has_exclamation",
	"urgency_score",
}

// StructuralFieldCount is the width of the scalar block.
var StructuralFieldCount = len(structuralFields)

// Schema fixes the total feature-vector layout: structural block, one
// repo_encoded column, then the sparse and dense blocks.
type Schema struct {
	TFIDFWidth int
	EmbedDim   int
}

// Width returns the total feature-vector width. Every extracted row has
// exactly this many values regardless of input content.
func (s Schema) Width() int {
	return StructuralFieldCount + 1 + s.TFIDFWidth + s.EmbedDim
}

// FieldNames returns the full ordered column list. Positions, not names,
// are what the classifier consumes; the names exist for artifact validation
// and debugging.
func (s Schema) FieldNames() []string {
	names := make([]string, 0, s.Width())
	names = append(names, structuralFields...)
	names = append(names, "repo_encoded")
	for i := 0; i < s.TFIDFWidth; i++ {
		names = append(names, fmt.Sprintf("tfidf_%d", i))
	}
	for i := 0; i < s.EmbedDim; i++ {
		names = append(names, fmt.Sprintf("bert_%d", i))
	}
	return names
}
