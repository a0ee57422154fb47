package ident

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Slugify
// ---------------------------------------------------------------------------

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Acme Corp", "acme-corp"},
		{"  spaced  out  ", "spaced-out"},
		{"UPPER", "upper"},
		{"with_underscores.and.dots", "with-underscores-and-dots"},
		{"42 services", "42-services"},
		{"---", "x"},
		{"", "x"},
		{"日本語のみ", "x"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSlugify_CapsLength(t *testing.T) {
	long := strings.Repeat("a", 100)
	if got := Slugify(long); len(got) > 30 {
		t.Errorf("len(slug) = %d, want <= 30", len(got))
	}
}

// ---------------------------------------------------------------------------
// New
// ---------------------------------------------------------------------------

func TestNew_Format(t *testing.T) {
	id, err := New("Acme Corp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(id, "acme-corp-") {
		t.Errorf("id = %q, want acme-corp- prefix", id)
	}
	suffix := strings.TrimPrefix(id, "acme-corp-")
	if len(suffix) != 6 {
		t.Errorf("suffix length = %d, want 6", len(suffix))
	}
	for _, r := range suffix {
		if !strings.ContainsRune(alphabet, r) {
			t.Errorf("suffix contains %q, not in base32 alphabet", r)
		}
	}
}

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := New("svc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate identifier generated: %s", id)
		}
		seen[id] = true
	}
}
