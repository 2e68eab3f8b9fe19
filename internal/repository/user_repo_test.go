package repository

import "testing"

func TestContainsPatternEscapesWildcards(t *testing.T) {
	cases := map[string]string{
		"alice":      "%alice%",
		"  bob ":     "%bob%",
		"a_b":        `%a\_b%`,
		"100%":       `%100\%%`,
		`back\slash`: `%back\\slash%`,
		"":           "%%",
	}
	for in, want := range cases {
		if got := containsPattern(in); got != want {
			t.Errorf("containsPattern(%q) = %q, want %q", in, got, want)
		}
	}
}
