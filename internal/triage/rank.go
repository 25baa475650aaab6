package triage

import "sort"

// DefaultThreshold is the secondary-suggestion confidence cutoff when the
// caller does not supply one.
const DefaultThreshold = 0.2

// Confidence tier cut-points, calibrated against the frozen model's
// validation performance. Primary confidence below tierLow triggers the
// manual-review path.
const (
	tierHigh   = 0.8
	tierMedium = 0.6
	tierLow    = 0.4
)

// topTagCount is the fixed size of a simple-mode suggestion list.
const topTagCount = 3

// actionableCategories are the category names that carry action_needed
// regardless of confidence.
var actionableCategories = map[string]bool{
	"is_bug_cat":      true,
	"is_priority_cat": true,
}

// Rank pairs each class label with its probability and sorts by probability
// descending. The sort is stable: equal-confidence classes keep the
// classifier's native class order, so repeated calls are deterministic.
func Rank(probs []float64, classes []string) []Prediction {
	preds := make([]Prediction, len(probs))
	for i, p := range probs {
		preds[i] = Prediction{Category: classes[i], Confidence: p}
	}
	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].Confidence > preds[j].Confidence
	})
	return preds
}

// TopTags returns the top three ranked predictions as tag suggestions,
// unfiltered. Display-layer threshold filtering is the caller's concern;
// keeping it out of here lets a UI change its cutoff without rescoring.
// Confidences are raw probabilities and are not renormalized.
func TopTags(preds []Prediction) []Tag {
	n := topTagCount
	if len(preds) < n {
		n = len(preds)
	}
	tags := make([]Tag, n)
	for i := 0; i < n; i++ {
		tags[i] = Tag{Tag: preds[i].Category, Confidence: preds[i].Confidence}
	}
	return tags
}

// Recommend builds the rich-mode result from ranked predictions: rank 0
// becomes primary, ranks 1-2 above threshold become secondary suggestions,
// and a fixed rule table keyed on (primary category, confidence tier) emits
// recommendations. A primary below the low tier adds a manual-review
// recommendation and appends a widened secondary pass over ranks 1-3 at half
// the threshold; entries already present above the full threshold appear
// again, which is part of the frozen output contract.
func Recommend(preds []Prediction, threshold float64) *Result {
	r := &Result{
		Primary:         suggestion(preds[0]),
		Secondary:       []Suggestion{},
		Recommendations: []Recommendation{},
	}

	for _, p := range slice(preds, 1, 3) {
		if p.Confidence > threshold {
			r.Secondary = append(r.Secondary, suggestion(p))
		}
	}

	if rec, ok := categoryRecommendation(r.Primary); ok {
		r.Recommendations = append(r.Recommendations, rec)
	}

	if r.Primary.Confidence < tierLow {
		r.Recommendations = append(r.Recommendations, Recommendation{
			Type:     "low_confidence",
			Message:  "Low confidence prediction - Manual review recommended",
			Priority: "medium",
		})
		for _, p := range slice(preds, 1, 4) {
			if p.Confidence > threshold/2 {
				r.Secondary = append(r.Secondary, suggestion(p))
			}
		}
	}

	return r
}

// categoryRecommendation is the deterministic rule table keyed by primary
// category and confidence tier.
func categoryRecommendation(primary Suggestion) (Recommendation, bool) {
	switch primary.Category {
	case "is_bug_cat":
		if primary.Confidence > tierHigh {
			return Recommendation{
				Type:     "high_confidence_bug",
				Message:  "High confidence bug report - Immediate review recommended",
				Priority: "high",
			}, true
		}
		if primary.Confidence > tierMedium {
			return Recommendation{
				Type:     "medium_confidence_bug",
				Message:  "Medium confidence bug report - Review within 24 hours",
				Priority: "medium",
			}, true
		}
	case "is_feature_cat":
		if primary.Confidence > tierMedium {
			return Recommendation{
				Type:     "clear_feature_request",
				Message:  "Clear feature request - Add to product backlog",
				Priority: "medium",
			}, true
		}
	case "is_doc_cat":
		if primary.Confidence > tierMedium {
			return Recommendation{
				Type:     "documentation",
				Message:  "Documentation issue - Tag for docs team review",
				Priority: "medium",
			}, true
		}
	}
	return Recommendation{}, false
}

func suggestion(p Prediction) Suggestion {
	return Suggestion{
		Category:     p.Category,
		Confidence:   p.Confidence,
		ActionNeeded: actionableCategories[p.Category],
	}
}

// slice is a bounds-safe preds[lo:hi].
func slice(preds []Prediction, lo, hi int) []Prediction {
	if lo >= len(preds) {
		return nil
	}
	if hi > len(preds) {
		hi = len(preds)
	}
	return preds[lo:hi]
}
