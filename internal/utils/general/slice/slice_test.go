package slice_test

import (
	"testing"

	"github.com/open-edge-platform/lume-model/internal/utils/general/slice"
)

func TestContains(t *testing.T) {
	schemes := []string{"http", "https"}
	if !slice.Contains(schemes, "https") {
		t.Errorf("expected https to be a supported scheme")
	}
	if slice.Contains(schemes, "ftp") {
		t.Errorf("ftp must not match")
	}
	if slice.Contains(nil, "http") {
		t.Errorf("nil slice contains nothing")
	}
}

func TestDuplicates(t *testing.T) {
	dups := slice.Duplicates([]string{"input1", "output1", "input1", "output1", "input1"})
	if len(dups) != 2 || dups[0] != "input1" || dups[1] != "output1" {
		t.Errorf("unexpected duplicates: %v", dups)
	}
	if dups := slice.Duplicates([]string{"a", "b"}); len(dups) != 0 {
		t.Errorf("expected no duplicates, got %v", dups)
	}
}
