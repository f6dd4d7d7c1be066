package version

import "testing"

func TestVersionStringNonEmpty(t *testing.T) {
	if s := String(); s == "" {
		t.Fatalf("version string is empty")
	}
}

func TestVersionStringIncludesCommit(t *testing.T) {
	old := Commit
	defer func() { Commit = old }()
	Commit = "deadbeef"
	if s := String(); s != Version+" (deadbeef)" {
		t.Fatalf("unexpected version string %q", s)
	}
}
