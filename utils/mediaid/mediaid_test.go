package mediaid_test

import (
	"strings"
	"testing"

	"mediavault/utils/mediaid"
)

func TestNew(t *testing.T) {
	id := mediaid.New()
	if !strings.HasPrefix(id, "med_") {
		t.Fatalf("expected med_ prefix, got %q", id)
	}
	if !mediaid.IsValid(id) {
		t.Fatalf("generated id %q should be valid", id)
	}
}

func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := mediaid.New()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id generated: %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"valid", mediaid.New(), true},
		{"missing prefix", "01hq3ka3v9z8x5y2w1v0u9t8s7", false},
		{"wrong prefix", "jan_01hq3ka3v9z8x5y2w1v0u9t8s7", false},
		{"garbage", "med_not-a-ulid", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mediaid.IsValid(tt.value); got != tt.want {
				t.Fatalf("IsValid(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
