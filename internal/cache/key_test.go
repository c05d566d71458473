package cache

import "testing"

func TestHash_Deterministic(t *testing.T) {
	if Hash("test string") != Hash("test string") {
		t.Error("expected identical digests")
	}
	if Hash("a") == Hash("b") {
		t.Error("expected different digests")
	}
	// sha256("") is well known.
	if got := Hash(""); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("unexpected empty digest %s", got)
	}
}

func TestKey_ContentAddressed(t *testing.T) {
	a := NewKey("match", "R1", "J1", "professional", "standard")
	b := NewKey("match", "R1", "J1", "professional", "standard")
	if a.String() != b.String() {
		t.Error("expected identical inputs to share a key")
	}

	tests := []struct {
		name string
		key  Key
	}{
		{"resume differs by one char", NewKey("match", "R2", "J1", "professional", "standard")},
		{"job differs by one char", NewKey("match", "R1", "J2", "professional", "standard")},
		{"operation differs", NewKey("overview", "R1", "J1", "professional", "standard")},
		{"discriminator differs", NewKey("match", "R1", "J1", "friendly", "standard")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.key.String() == a.String() {
				t.Errorf("expected %s to miss", tt.name)
			}
		})
	}
}

func TestKey_UsesHashForLookupFields(t *testing.T) {
	k := NewKey("match", "resume", "job")
	if k.InputHash1 != Hash("resume") || k.InputHash2 != Hash("job") {
		t.Error("expected key hashes to match the persistent-tier hash")
	}
}
