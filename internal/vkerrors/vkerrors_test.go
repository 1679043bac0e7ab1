package vkerrors

import (
	"errors"
	"testing"
)

func TestParseErrorWraps(t *testing.T) {
	underlying := errors.New("unexpected token")
	err := Parse("/src/app.py", underlying)

	if err.Kind != KindParse {
		t.Errorf("expected KindParse, got %v", err.Kind)
	}
	if !errors.Is(err, underlying) {
		t.Errorf("expected Parse error to unwrap to underlying cause")
	}
	if err.Path != "/src/app.py" {
		t.Errorf("expected path to be recorded, got %q", err.Path)
	}
}

func TestCancelledIsDetected(t *testing.T) {
	err := Cancelled("clone_detection")
	if !IsCancelled(err) {
		t.Errorf("expected IsCancelled(err) to be true")
	}
	if IsCancelled(Internal("partition", errors.New("empty result"))) {
		t.Errorf("expected IsCancelled(err) to be false for an internal error")
	}
}

func TestMultiFiltersNils(t *testing.T) {
	m := NewMulti([]error{nil, errors.New("a"), nil, errors.New("b")})
	if len(m.Errors) != 2 {
		t.Fatalf("expected 2 errors after filtering nils, got %d", len(m.Errors))
	}
	if !m.HasErrors() {
		t.Errorf("expected HasErrors() to be true")
	}
}

func TestMultiEmpty(t *testing.T) {
	m := NewMulti(nil)
	if m.HasErrors() {
		t.Errorf("expected HasErrors() to be false for an empty multi-error")
	}
	if m.Error() != "no errors" {
		t.Errorf("expected default message, got %q", m.Error())
	}
}
