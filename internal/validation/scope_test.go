package validation_test

import (
	"strings"
	"testing"

	"github.com/dropDatabas3/simpleidp/internal/validation"
)

func mkLen(ch string, n int) string { return strings.Repeat(ch, n) }

func TestValidScopeName_Valid(t *testing.T) {
	valids := []string{
		"a",
		"ab",
		"openid",
		"profile:read",
		"email:read:e2e123",
		"a_b-c.d:scope2",
		// 64 chars (start/end alnum)
		mkLen("a", 62) + "b",
	}
	for _, v := range valids {
		if !validation.ValidScopeName(v) {
			t.Fatalf("expected valid: %q", v)
		}
	}
}

func TestValidScopeName_Invalid(t *testing.T) {
	invalids := []string{
		"",
		":lead",
		"trail:",
		"bad space",
		"UPPER",
		"semicolon;hack",
		mkLen("a", 65),
		mkLen("a", 100),
	}
	for _, v := range invalids {
		if validation.ValidScopeName(v) {
			t.Fatalf("expected invalid: %q", v)
		}
	}
}

func TestSplitScopes(t *testing.T) {
	got := validation.SplitScopes("  openid   profile\temail ")
	if len(got) != 3 || got[0] != "openid" || got[1] != "profile" || got[2] != "email" {
		t.Fatalf("got %v", got)
	}
	if got := validation.SplitScopes(""); len(got) != 0 {
		t.Fatalf("empty scope: %v", got)
	}
}

func TestDuplicates(t *testing.T) {
	if dup := validation.Duplicates([]string{"a", "b", "a"}); len(dup) != 1 || dup[0] != "a" {
		t.Fatalf("got %v", dup)
	}
	if dup := validation.Duplicates([]string{"a", "b"}); len(dup) != 0 {
		t.Fatalf("got %v", dup)
	}
}
