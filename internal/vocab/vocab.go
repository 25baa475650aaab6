// Package vocab provides frozen label vocabularies: ordered, immutable
// bijections between names (issue categories, repositories) and dense integer
// ids. A vocabulary is built once at training time, exported as an artifact,
// and never mutated at inference time.
package vocab

import (
	"encoding/json"
	"fmt"
	"os"
)

// UnknownLabelError is returned when a name is encoded that was not part of
// the training vocabulary. The vocabulary never guesses a fallback id.
type UnknownLabelError struct {
	Label string
}

func (e *UnknownLabelError) Error() string {
	return fmt.Sprintf("vocab: unknown label %q", e.Label)
}

// Vocabulary is a frozen name <-> id mapping. Ids are dense and assigned by
// position in the exported class list, matching the encoder the classifier
// was trained with.
type Vocabulary struct {
	names []string
	ids   map[string]int
}

// artifactFile is the JSON layout of an exported label encoder.
type artifactFile struct {
	Classes []string `json:"classes"`
}

// Load reads a label-encoder artifact from disk.
func Load(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: read %s: %w", path, err)
	}

	var af artifactFile
	if err := json.Unmarshal(data, &af); err != nil {
		return nil, fmt.Errorf("vocab: parse %s: %w", path, err)
	}

	return New(af.Classes)
}

// New builds a Vocabulary from an ordered class list. The slice order is the
// id assignment and must not change across save/load boundaries.
func New(classes []string) (*Vocabulary, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("vocab: empty class list")
	}

	ids := make(map[string]int, len(classes))
	names := make([]string, len(classes))
	for i, name := range classes {
		if _, dup := ids[name]; dup {
			return nil, fmt.Errorf("vocab: duplicate class %q", name)
		}
		ids[name] = i
		names[i] = name
	}

	return &Vocabulary{names: names, ids: ids}, nil
}

// Encode returns the dense id for a name. Unknown names fail hard; callers
// must not substitute a default bucket.
func (v *Vocabulary) Encode(name string) (int, error) {
	id, ok := v.ids[name]
	if !ok {
		return 0, &UnknownLabelError{Label: name}
	}
	return id, nil
}

// Decode returns the name for a dense id.
func (v *Vocabulary) Decode(id int) (string, error) {
	if id < 0 || id >= len(v.names) {
		return "", fmt.Errorf("vocab: id %d out of range [0,%d)", id, len(v.names))
	}
	return v.names[id], nil
}

// Contains reports whether a name is part of the frozen vocabulary.
func (v *Vocabulary) Contains(name string) bool {
	_, ok := v.ids[name]
	return ok
}

// Names returns the class names in id order. The returned slice is a copy.
func (v *Vocabulary) Names() []string {
	out := make([]string, len(v.names))
	copy(out, v.names)
	return out
}

// Len returns the number of classes.
func (v *Vocabulary) Len() int {
	return len(v.names)
}
