package feature

import "strings"

// questionWords and urgentWords are frozen heuristic word lists from the
// training pipeline. Counts are case-insensitive substring counts, so
// "however" contributes to "how"; this matches training and must not be
// tightened to word-boundary matching.
var questionWords = []string{"how", "what", "why", "when", "where", "which", "who"}

var urgentWords = []string{
	"urgent", "critical", "asap", "immediate", "emergency",
	"broken", "error", "serious", "security",
}

// structuralFeatures computes the scalar block in structuralFields order.
// All values are non-negative counts except the has_* flags, which are 0/1.
// Fields not computed at inference (the leading date/resolution columns)
// keep their zero default.
func structuralFeatures(title, body string) []float32 {
	f := make(map[string]float32, StructuralFieldCount)

	titleLower := strings.ToLower(title)
	bodyLower := strings.ToLower(body)

	f["title_length"] = float32(len(title))
	f["title_word_count"] = float32(len(strings.Fields(title)))
	f["title_has_question_mark"] = boolFlag(strings.Contains(title, "?"))
	f["title_has_exclamation"] = boolFlag(strings.Contains(title, "!"))

	f["body_length"] = float32(len(body))
	f["body_word_count"] = float32(len(strings.Fields(body)))
	f["body_has_question_mark"] = boolFlag(strings.Contains(body, "?"))
	f["body_has_exclamation"] = boolFlag(strings.Contains(body, "!"))

	// A fenced block is a pair of ``` markers. An odd marker count leaves a
	// dangling fence that undercounts by one block; that truncation is part
	// of the frozen training contract, so it stays.
	f["code_block_count"] = float32(strings.Count(body, "```") / 2)

	f["url_count"] = float32(strings.Count(bodyLower, "http"))

	f["title_question_word_count"] = float32(countAll(titleLower, questionWords))
	f["body_question_word_count"] = float32(countAll(bodyLower, questionWords))
	f["total_question_word_count"] = f["title_question_word_count"] + f["body_question_word_count"]
	f["total_has_question_mark"] = f["title_has_question_mark"] + f["body_has_question_mark"]
	f["includes_questions"] = boolFlag(f["total_question_word_count"] > 0 || f["total_has_question_mark"] > 0)

	f["title_n_urgent_words"] = float32(countAll(titleLower, urgentWords))
	f["body_n_urgent_words"] = float32(countAll(bodyLower, urgentWords))
	f["total_n_urgent_words"] = f["title_n_urgent_words"] + f["body_n_urgent_words"]
	f["total_has_exclamation"] = f["title_has_exclamation"] + f["body_has_exclamation"]
	f["urgency_score"] = f["total_n_urgent_words"] + f["total_has_exclamation"]

	out := make([]float32, StructuralFieldCount)
	for i, name := range structuralFields {
		out[i] = f[name]
	}
	return out
}

// countAll sums non-overlapping substring occurrences of each word.
func countAll(text string, words []string) int {
	var n int
	for _, w := range words {
		n += strings.Count(text, w)
	}
	return n
}

func boolFlag(b bool) float32 {
	if b {
		return 1
	}
	return 0
}
