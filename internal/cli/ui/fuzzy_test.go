package ui

import (
	"reflect"
	"testing"
)

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		s1       string
		s2       string
		expected int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"kitten", "sitting", 3},
		{"Helper", "Hepler", 2},
		{"Print", "Prnt", 1},
		{"RunAsync", "RunAsnc", 1},
	}

	for _, tt := range tests {
		t.Run(tt.s1+"_"+tt.s2, func(t *testing.T) {
			result := LevenshteinDistance(tt.s1, tt.s2)
			if result != tt.expected {
				t.Errorf("LevenshteinDistance(%q, %q) = %d; want %d", tt.s1, tt.s2, result, tt.expected)
			}
		})
	}
}

func TestFindSimilar(t *testing.T) {
	candidates := []string{"Print", "Helper", "RunAsync", "Container", "Program"}

	tests := []struct {
		name     string
		target   string
		opts     *FuzzyMatchOptions
		expected []string
	}{
		{"transposition", "Hepler", nil, []string{"Helper"}},
		{"missing letter", "Prnt", nil, []string{"Print"}},
		{"case insensitive", "runasync", nil, []string{"RunAsync"}},
		{"case sensitive", "runasync", &FuzzyMatchOptions{CaseSensitive: true, MaxDistance: 1}, []string{}},
		{"no match", "Completely", nil, []string{}},
		{"limited suggestions", "Pr", &FuzzyMatchOptions{MaxDistance: 5, MaxSuggestions: 1}, []string{"Print"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FindSimilar(tt.target, candidates, tt.opts)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("FindSimilar(%q) = %v; want %v", tt.target, result, tt.expected)
			}
		})
	}
}

func TestFindBestMatch(t *testing.T) {
	candidates := []string{"Print", "Helper"}

	if got := FindBestMatch("Helpr", candidates, nil); got != "Helper" {
		t.Errorf("FindBestMatch() = %q; want Helper", got)
	}
	if got := FindBestMatch("Unrelated", candidates, nil); got != "" {
		t.Errorf("FindBestMatch() = %q; want empty", got)
	}
}

func TestSuggestPaths(t *testing.T) {
	paths := []string{
		"App.Program",
		"App.Program.Print",
		"App.Program.Helper",
		"App.Program.RunAsync",
		"App.Container",
		"App.Container.Items",
	}

	tests := []struct {
		name     string
		target   string
		expected []string
	}{
		{"close full path", "App.Program.Hepler", []string{"App.Program.Helper"}},
		{"wrong container", "Program.Hepler", []string{"App.Program.Helper"}},
		{"nothing close", "Other.Namespace.Type.Unrelated", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SuggestPaths(tt.target, paths)
			if len(result) == 0 && len(tt.expected) == 0 {
				return
			}
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("SuggestPaths(%q) = %v; want %v", tt.target, result, tt.expected)
			}
		})
	}
}

func TestMin3(t *testing.T) {
	tests := []struct {
		a, b, c  int
		expected int
	}{
		{1, 2, 3, 1},
		{3, 2, 1, 1},
		{2, 1, 3, 1},
		{5, 5, 5, 5},
	}

	for _, tt := range tests {
		if result := min3(tt.a, tt.b, tt.c); result != tt.expected {
			t.Errorf("min3(%d, %d, %d) = %d; want %d", tt.a, tt.b, tt.c, result, tt.expected)
		}
	}
}

func TestFindSimilarEmptyCandidates(t *testing.T) {
	result := FindSimilar("test", []string{}, nil)
	if len(result) != 0 {
		t.Errorf("Expected empty result for empty candidates, got %v", result)
	}
}
