package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	origCommit := Commit
	defer func() { Commit = origCommit }()

	Commit = "unknown"
	if got := Info(); got != Version {
		t.Errorf("Info() = %q, want %q", got, Version)
	}

	Commit = "abcdef1234567890"
	got := Info()
	if !strings.Contains(got, "abcdef1") {
		t.Errorf("Info() = %q, want short commit", got)
	}
	if strings.Contains(got, "abcdef12") {
		t.Errorf("Info() = %q, commit not truncated to 7 chars", got)
	}
}

func TestFull(t *testing.T) {
	full := Full()
	for _, want := range []string{"factorylens version", Version, "Commit:", "Built:"} {
		if !strings.Contains(full, want) {
			t.Errorf("Full() missing %q:\n%s", want, full)
		}
	}
}
