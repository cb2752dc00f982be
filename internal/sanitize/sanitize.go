// Package sanitize scrubs scraped text so it can be embedded in JSON
// payloads without breaking naive consumers.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/seekrai/jobsearch/internal/search"
)

// maxTextLen caps sanitized values; longer values get an ellipsis marker.
const maxTextLen = 1000

var (
	// asciiFold decomposes accented characters and drops the combining
	// marks, so "é" becomes "e" rather than being discarded outright.
	asciiFold = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

	whitespaceRun = regexp.MustCompile(`\s+`)

	replacer = strings.NewReplacer(
		"\r\n", " ",
		"\n", " ",
		"\r", " ",
		"\t", " ",
		`"`, "'",
		`\`, "/",
		"\x00", "",
	)
)

// Text returns value scrubbed for safe JSON embedding: transliterated to
// ASCII where possible, control characters stripped, quotes and backslashes
// substituted, whitespace collapsed, trimmed, and truncated to maxTextLen
// with a trailing ellipsis. Applying Text twice yields the same result.
func Text(value string) string {
	folded, _, err := transform.String(asciiFold, value)
	if err != nil {
		folded = value
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if r < 128 {
			b.WriteRune(r)
		}
	}

	out := replacer.Replace(b.String())
	out = strings.Map(func(r rune) rune {
		if r < 32 {
			return -1
		}
		return r
	}, out)
	out = whitespaceRun.ReplaceAllString(out, " ")
	out = strings.TrimSpace(out)

	if len(out) > maxTextLen {
		out = out[:maxTextLen] + "..."
	}
	return out
}

// Job applies Text to every string field of j and to every element of its
// string-slice fields. Numeric fields and pointers pass through unchanged.
func Job(j search.Job) search.Job {
	j.Title = Text(j.Title)
	j.Company = Text(j.Company)
	j.Location = Text(j.Location)
	j.Site = Text(j.Site)
	j.JobURL = Text(j.JobURL)
	j.Description = Text(j.Description)
	j.DatePosted = Text(j.DatePosted)
	j.SimilarityExplanation = Text(j.SimilarityExplanation)
	j.KeyMatches = textSlice(j.KeyMatches)
	j.MissingRequirements = textSlice(j.MissingRequirements)
	return j
}

// Jobs sanitizes a slice of jobs, preserving order.
func Jobs(in []search.Job) []search.Job {
	out := make([]search.Job, len(in))
	for i, j := range in {
		out[i] = Job(j)
	}
	return out
}

func textSlice(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = Text(s)
	}
	return out
}
