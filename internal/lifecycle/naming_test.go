package lifecycle_test

import (
	"strings"
	"testing"

	"wakutest/internal/lifecycle"
)

func TestContainerNameFormat(t *testing.T) {
	got := lifecycle.ContainerName("ab12", "node-a")
	want := "wakutest-ab12-node-a"
	if got != want {
		t.Fatalf("ContainerName = %q, want %q", got, want)
	}
}

func TestContainerNameBounded(t *testing.T) {
	long := strings.Repeat("n", 500)
	got := lifecycle.ContainerName("ab12", long)

	if len(got) > 255 {
		t.Fatalf("name length = %d, want <= 255", len(got))
	}
	if !strings.HasPrefix(got, "wakutest-ab12-") {
		t.Fatalf("truncation broke the prefix: %q", got)
	}
}

func TestNewRunID(t *testing.T) {
	a := lifecycle.NewRunID()
	if len(a) != 4 {
		t.Fatalf("run id %q, want 4 hex chars", a)
	}
	for _, c := range a {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Fatalf("run id %q contains non-hex char %q", a, c)
		}
	}

	// Collisions across a handful of draws would mean the id is not
	// random at all.
	seen := map[string]bool{a: true}
	distinct := 1
	for i := 0; i < 20; i++ {
		if id := lifecycle.NewRunID(); !seen[id] {
			seen[id] = true
			distinct++
		}
	}
	if distinct == 1 {
		t.Fatal("NewRunID returned the same id 21 times")
	}
}
