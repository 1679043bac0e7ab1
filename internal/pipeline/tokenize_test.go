package pipeline

import (
	"reflect"
	"testing"
)

func TestTokenizeSplitsIdentifiersNumbersAndStrings(t *testing.T) {
	got := tokenize(`x = "hi" + 42`)
	want := []string{"x", "=", `"hi"`, "+", "42"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tokenize() = %#v, want %#v", got, want)
	}
}

func TestTokenizeHandlesEscapedQuotes(t *testing.T) {
	got := tokenize(`s = "a\"b"`)
	want := []string{"s", "=", `"a\"b"`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tokenize() = %#v, want %#v", got, want)
	}
}

func TestStripCommentLinesRemovesFullLineComments(t *testing.T) {
	src := "x = 1\n# a comment\ny = 2\n"
	got := stripCommentLines(src, "#")
	want := "x = 1\ny = 2"
	if got != want {
		t.Errorf("stripCommentLines() = %q, want %q", got, want)
	}
}

func TestStripCommentLinesNoopWithoutPrefix(t *testing.T) {
	src := "x = 1\n"
	if got := stripCommentLines(src, ""); got != src {
		t.Errorf("expected no-op, got %q", got)
	}
}
