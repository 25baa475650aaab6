package vocab

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNew_EncodeDecode(t *testing.T) {
	t.Parallel()

	v, err := New([]string{"is_bug_cat", "is_doc_cat", "is_feature_cat", "is_other_cat"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if v.Len() != 4 {
		t.Errorf("Len = %d, want 4", v.Len())
	}

	id, err := v.Encode("is_doc_cat")
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if id != 1 {
		t.Errorf("Encode(is_doc_cat) = %d, want 1", id)
	}

	name, err := v.Decode(2)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if name != "is_feature_cat" {
		t.Errorf("Decode(2) = %q, want is_feature_cat", name)
	}

	if !v.Contains("is_bug_cat") {
		t.Error("Contains(is_bug_cat) = false, want true")
	}
	if v.Contains("nope") {
		t.Error("Contains(nope) = true, want false")
	}
}

func TestEncode_UnknownFailsHard(t *testing.T) {
	t.Parallel()

	v, err := New([]string{"angular/angular", "microsoft/vscode"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = v.Encode("totally/unknown-repo")
	if err == nil {
		t.Fatal("Encode of unknown name succeeded, want error")
	}
	var ue *UnknownLabelError
	if !errors.As(err, &ue) {
		t.Fatalf("error type = %T, want *UnknownLabelError", err)
	}
	if ue.Label != "totally/unknown-repo" {
		t.Errorf("error label = %q, want totally/unknown-repo", ue.Label)
	}
}

func TestDecode_OutOfRange(t *testing.T) {
	t.Parallel()

	v, err := New([]string{"a"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := v.Decode(-1); err == nil {
		t.Error("Decode(-1) succeeded, want error")
	}
	if _, err := v.Decode(1); err == nil {
		t.Error("Decode(1) succeeded, want error")
	}
}

func TestNew_RejectsDuplicatesAndEmpty(t *testing.T) {
	t.Parallel()

	if _, err := New(nil); err == nil {
		t.Error("New(nil) succeeded, want error")
	}
	if _, err := New([]string{"x", "x"}); err == nil {
		t.Error("New with duplicate succeeded, want error")
	}
}

func TestNames_ReturnsCopyInIDOrder(t *testing.T) {
	t.Parallel()

	v, err := New([]string{"b", "a", "c"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	names := v.Names()
	want := []string{"b", "a", "c"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	// Mutating the copy must not affect the vocabulary.
	names[0] = "mutated"
	if got, _ := v.Decode(0); got != "b" {
		t.Errorf("Decode(0) after mutation = %q, want b", got)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "label_encoder.json")
	if err := os.WriteFile(path, []byte(`{"classes":["is_bug_cat","is_feature_cat"]}`), 0o600); err != nil {
		t.Fatal(err)
	}

	v, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v.Len() != 2 {
		t.Errorf("Len = %d, want 2", v.Len())
	}

	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Load of missing file succeeded, want error")
	}
}
