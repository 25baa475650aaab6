package embedder

import (
	"bufio"
	"fmt"
	"os"
)

// wordVocab is the WordPiece vocabulary shipped next to the encoder model.
// Token ids are assigned by line number.
type wordVocab struct {
	ids   map[string]int64
	unkID int64
	clsID int64
	sepID int64
	padID int64
}

func loadWordVocab(path string) (*wordVocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("embedder: open vocab: %w", err)
	}
	defer f.Close()

	ids := make(map[string]int64, 32768)
	scanner := bufio.NewScanner(f)
	var n int64
	for scanner.Scan() {
		ids[scanner.Text()] = n
		n++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("embedder: read vocab: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("embedder: vocab %s is empty", path)
	}

	v := &wordVocab{ids: ids}
	for _, s := range []struct {
		tok  string
		dest *int64
	}{
		{"[UNK]", &v.unkID},
		{"[CLS]", &v.clsID},
		{"[SEP]", &v.sepID},
		{"[PAD]", &v.padID},
	} {
		id, ok := ids[s.tok]
		if !ok {
			return nil, fmt.Errorf("embedder: vocab missing special token %s", s.tok)
		}
		*s.dest = id
	}
	return v, nil
}

func (v *wordVocab) lookup(tok string) int64 {
	if id, ok := v.ids[tok]; ok {
		return id
	}
	return v.unkID
}

func (v *wordVocab) contains(tok string) bool {
	_, ok := v.ids[tok]
	return ok
}
