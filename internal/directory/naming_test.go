package directory

import "testing"

func TestGeneratePartitionNameWithFallbacksCollapsesStemmedVariants(t *testing.T) {
	files := []string{"a/search.py", "b/searching.py", "c/searches.py"}
	name := generatePartitionNameWithFallbacks(files, 0, nil)
	if name != "search" {
		t.Errorf("expected stemming to unite search/searching/searches into one vote for %q, got %q", "search", name)
	}
}

func TestGeneratePartitionNameWithFallbacksBreaksTieTowardFallback(t *testing.T) {
	files := []string{
		"orders_list.py", "orders_view.py",
		"widgets_list.py", "widgets_view.py",
	}
	name := generatePartitionNameWithFallbacks(files, 0, []string{"widgets_core"})
	if name != "widgets" {
		t.Errorf("expected the tie between orders/widgets to break toward the fallback-similar token, got %q", name)
	}
}

func TestGeneratePartitionNameWithFallbacksUsesPositionalFallbackWhenNoTokenWins(t *testing.T) {
	files := []string{"a/x.py", "b/y.py"}
	name := generatePartitionNameWithFallbacks(files, 1, []string{"core", "support"})
	if name != "support" {
		t.Errorf("expected the positional fallback when no token clears the vote, got %q", name)
	}
}

func TestGeneratePartitionNameWithFallbacksUsesPositionalDefaultWithNoFallbacks(t *testing.T) {
	files := []string{"a/x.py"}
	name := generatePartitionNameWithFallbacks(files, 3, nil)
	if name != "partition_3" {
		t.Errorf("expected partition_3 with no fallback list and no winning token, got %q", name)
	}
}

func TestBreakNamingTiePrefersFuzzyMatchToFallback(t *testing.T) {
	display := map[string]string{"order": "orders", "widget": "widgets"}
	got := breakNamingTie([]string{"order", "widget"}, display, "widgets_core")
	if got != "widget" {
		t.Errorf("expected widget to win on similarity to widgets_core, got %q", got)
	}
}

func TestBreakNamingTieFallsBackToFirstKeyWithoutFallback(t *testing.T) {
	got := breakNamingTie([]string{"alpha", "beta"}, map[string]string{"alpha": "alpha", "beta": "beta"}, "")
	if got != "alpha" {
		t.Errorf("expected the first sorted key when no fallback is configured, got %q", got)
	}
}
