package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/seekrai/jobsearch/internal/search"
)

func TestTextReplacements(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"newlines become spaces", "line1\nline2\r\nline3", "line1 line2 line3"},
		{"tabs become spaces", "a\tb", "a b"},
		{"double quotes become single", `say "hello"`, "say 'hello'"},
		{"backslash becomes slash", `C:\jobs\data`, "C:/jobs/data"},
		{"null bytes dropped", "abc\x00def", "abcdef"},
		{"whitespace collapsed", "a   b \t\n c", "a b c"},
		{"trimmed", "  padded  ", "padded"},
		{"accents transliterated", "Zürich café résumé", "Zurich cafe resume"},
		{"untranslatable dropped", "pay★rate", "payrate"},
		{"empty stays empty", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Text(tc.in))
		})
	}
}

func TestTextInvariants(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"plain text",
		"control\x01\x02\x1fchars",
		strings.Repeat("x", 5000),
		"quotes \" and \\ everywhere \"\\\"",
		"mixed\u00e9\u4e16\u754c\n\ttext",
	}

	for _, in := range inputs {
		out := Text(in)
		require.LessOrEqual(t, len(out), maxTextLen+3)
		require.NotContains(t, out, `"`)
		require.NotContains(t, out, `\`)
		require.NotContains(t, out, "  ")
		for _, r := range out {
			require.GreaterOrEqual(t, int(r), 32, "control character survived in %q", out)
		}
	}
}

func TestTextIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"already clean",
		"messy\n\t\"input\"\\with\x00junk",
		strings.Repeat("long ", 500),
		"caf\u00e9 in Z\u00fcrich",
	}
	for _, in := range inputs {
		once := Text(in)
		require.Equal(t, once, Text(once))
	}
}

func TestTextTruncation(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 1500)
	out := Text(long)
	require.Len(t, out, maxTextLen+3)
	require.True(t, strings.HasSuffix(out, "..."))

	exact := strings.Repeat("b", maxTextLen)
	require.Equal(t, exact, Text(exact))
}

func TestJobSanitizesAllTextFields(t *testing.T) {
	t.Parallel()

	min := 90000.0
	in := search.Job{
		Title:                 "Engineer\t\"Senior\"",
		Company:               "Acme\nCorp",
		Location:              "Z\u00fcrich",
		Site:                  "indeed",
		JobURL:                "https://example.com/job/1",
		Description:           "Great \\ role",
		SalaryMin:             &min,
		DatePosted:            "2026-08-01",
		Analyzed:              true,
		SimilarityScore:       0.82,
		SimilarityExplanation: "strong \"match\"",
		KeyMatches:            []string{"go\n", "redis\t"},
		MissingRequirements:   []string{"k8s\\helm"},
	}

	out := Job(in)
	require.Equal(t, "Engineer 'Senior'", out.Title)
	require.Equal(t, "Acme Corp", out.Company)
	require.Equal(t, "Zurich", out.Location)
	require.Equal(t, "Great / role", out.Description)
	require.Equal(t, "strong 'match'", out.SimilarityExplanation)
	require.Equal(t, []string{"go", "redis"}, out.KeyMatches)
	require.Equal(t, []string{"k8s/helm"}, out.MissingRequirements)

	// Non-text fields pass through untouched.
	require.Equal(t, &min, out.SalaryMin)
	require.Equal(t, 0.82, out.SimilarityScore)
	require.True(t, out.Analyzed)
}
