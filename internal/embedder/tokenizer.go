package embedder

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxSeqLen caps the token window per encode call. Longer issue bodies are
// truncated, matching the encoder's training-time window.
const maxSeqLen = 256

// maxWordRunes guards the WordPiece loop against pathological tokens.
const maxWordRunes = 100

type tokenizer struct {
	vocab *wordVocab
}

// encode converts one text into padded-free id/mask slices bracketed by
// [CLS] and [SEP]. Single-sequence only; the service embeds one issue at a
// time so there is no batch padding to manage.
func (t *tokenizer) encode(text string) (ids, mask []int64) {
	pieces := t.wordpiece(basicTokenize(text))
	if len(pieces) > maxSeqLen-2 {
		pieces = pieces[:maxSeqLen-2]
	}

	ids = make([]int64, 0, len(pieces)+2)
	ids = append(ids, t.vocab.clsID)
	for _, p := range pieces {
		ids = append(ids, t.vocab.lookup(p))
	}
	ids = append(ids, t.vocab.sepID)

	mask = make([]int64, len(ids))
	for i := range mask {
		mask[i] = 1
	}
	return ids, mask
}

// wordpiece greedily decomposes basic tokens into vocabulary subwords, with
// the usual ## continuation prefix. A token with no valid decomposition
// becomes a single [UNK].
func (t *tokenizer) wordpiece(words []string) []string {
	var out []string
	for _, word := range words {
		runes := []rune(word)
		if len(runes) == 0 {
			continue
		}
		if len(runes) > maxWordRunes {
			out = append(out, "[UNK]")
			continue
		}

		var subs []string
		start := 0
		for start < len(runes) {
			end := len(runes)
			matched := ""
			for end > start {
				sub := string(runes[start:end])
				if start > 0 {
					sub = "##" + sub
				}
				if t.vocab.contains(sub) {
					matched = sub
					break
				}
				end--
			}
			if matched == "" {
				subs = []string{"[UNK]"}
				break
			}
			subs = append(subs, matched)
			start = end
		}
		out = append(out, subs...)
	}
	return out
}

// basicTokenize lowercases, strips accents and control characters, and
// splits on whitespace and punctuation, keeping punctuation as tokens.
func basicTokenize(text string) []string {
	var cleaned strings.Builder
	cleaned.Grow(len(text))
	for _, r := range norm.NFD.String(strings.ToLower(text)) {
		switch {
		case r == 0 || r == 0xFFFD:
		case unicode.In(r, unicode.Mn):
		case unicode.IsControl(r) && r != '\t' && r != '\n' && r != '\r':
		case unicode.IsSpace(r):
			cleaned.WriteRune(' ')
		default:
			cleaned.WriteRune(r)
		}
	}

	var toks []string
	for _, word := range strings.Fields(cleaned.String()) {
		var cur strings.Builder
		for _, r := range word {
			if isPunct(r) {
				if cur.Len() > 0 {
					toks = append(toks, cur.String())
					cur.Reset()
				}
				toks = append(toks, string(r))
				continue
			}
			cur.WriteRune(r)
		}
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
		}
	}
	return toks
}

func isPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}
