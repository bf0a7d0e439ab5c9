package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	oldCommit, oldDate := Commit, Date
	t.Cleanup(func() { Commit, Date = oldCommit, oldDate })

	if s := String(); !strings.HasPrefix(s, "moodify dev (") {
		t.Errorf("String() = %q", s)
	}

	Commit, Date = "0123456789abcdef", "2025-01-02T03:04:05Z"
	if s := String(); !strings.Contains(s, "commit 01234567,") || !strings.Contains(s, "built 2025-01-02T03:04:05Z") {
		t.Errorf("String() with build info = %q", s)
	}

	Commit = "abc"
	if s := String(); !strings.Contains(s, "commit abc,") {
		t.Errorf("String() with short commit = %q", s)
	}
}
