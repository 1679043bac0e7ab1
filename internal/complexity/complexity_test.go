package complexity

import (
	"testing"

	"github.com/valknut-io/valknut-core/internal/entity"
)

// TestCyclomaticPython checks that a function with 6 `if`, 2 `for`, 1
// `while`, 1 `try`/`except` reports cyclomatic == 11 and nesting
// depth >= 2.
func TestCyclomaticPython(t *testing.T) {
	source := `
def handle(items, flag_a, flag_b, flag_c, flag_d, flag_e, flag_f):
    try:
        for item in items:
            if flag_a:
                if flag_b:
                    pass
            if flag_c:
                pass
        for other in items:
            while flag_d:
                if flag_e:
                    pass
                if flag_f:
                    pass
                if flag_a:
                    pass
    except ValueError:
        pass
`
	a := New(Defaults())
	m := a.Compute(entity.LangPython, source)

	if m.Cyclomatic != 11 {
		t.Errorf("expected cyclomatic 11, got %d", m.Cyclomatic)
	}
	if m.MaxNestingDepth < 2 {
		t.Errorf("expected max nesting depth >= 2, got %d", m.MaxNestingDepth)
	}
}

func TestInvariantsHold(t *testing.T) {
	sources := []string{
		"",
		"def f(): pass",
		"def f(a, b, c):\n    if a:\n        return b\n    return c\n",
	}
	a := New(Defaults())
	for _, s := range sources {
		m := a.Compute(entity.LangPython, s)
		if m.Cyclomatic < 1 {
			t.Errorf("cyclomatic must be >= 1, got %d for %q", m.Cyclomatic, s)
		}
		if m.Cognitive < 0 {
			t.Errorf("cognitive must be >= 0, got %d", m.Cognitive)
		}
		if m.MaintainabilityIndex < 0 || m.MaintainabilityIndex > 100 {
			t.Errorf("maintainability index out of range: %f", m.MaintainabilityIndex)
		}
		if m.TechnicalDebt < 0 || m.TechnicalDebt > 100 {
			t.Errorf("technical debt out of range: %f", m.TechnicalDebt)
		}
	}
}

func TestIssuesTruncatedToFiveAndSortedByPriority(t *testing.T) {
	t2 := Defaults()
	t2.HighCyclomatic = 1
	t2.HighCognitive = 1
	t2.HighNesting = 0
	t2.HighParameters = 0
	t2.HighLOC = 1

	a := New(t2)
	m := a.Compute(entity.LangPython, "def f(a, b):\n    if a:\n        if b:\n            return 1\n    return 0\n")

	if len(m.Issues) > 5 {
		t.Fatalf("expected at most 5 issues, got %d", len(m.Issues))
	}
	for i := 1; i < len(m.Issues); i++ {
		if m.Issues[i].Priority > m.Issues[i-1].Priority {
			t.Errorf("issues not sorted by descending priority at index %d", i)
		}
	}
}

func TestParameterCount(t *testing.T) {
	a := New(Defaults())
	m := a.Compute(entity.LangPython, "def f(a, b, c):\n    return a + b + c\n")
	if m.ParameterCount != 3 {
		t.Errorf("expected 3 parameters, got %d", m.ParameterCount)
	}
}
