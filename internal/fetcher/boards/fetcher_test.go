package boards

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seekrai/jobsearch/internal/search"
)

const listingPage = `
<html><body>
  <div class="job-listing">
    <span class="job-title">Senior Go Engineer</span>
    <span class="company">Acme</span>
    <span class="location">Remote</span>
    <a class="job-link" href="/jobs/1">apply</a>
    <div class="description">Build services in Go.</div>
    <span class="salary" data-min="120000" data-max="160000"></span>
    <time datetime="2026-08-28"></time>
  </div>
  <div class="job-listing">
    <span class="job-title">Platform Engineer</span>
    <span class="company">Globex</span>
    <a class="job-link" href="/jobs/2">apply</a>
  </div>
  <div class="job-listing">
    <span class="job-title"></span>
  </div>
  %s
</body></html>`

const listingPageTwo = `
<html><body>
  <div class="job-listing">
    <span class="job-title">Backend Developer</span>
    <span class="company">Initech</span>
    <a class="job-link" href="/jobs/3">apply</a>
  </div>
  <div class="job-listing">
    <span class="job-title">SRE</span>
    <span class="company">Hooli</span>
    <a class="job-link" href="/jobs/4">apply</a>
  </div>
</body></html>`

func TestFetchParsesListings(t *testing.T) {
	t.Parallel()

	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprintf(w, listingPage, "")
	}))
	defer srv.Close()

	f := New(Config{BaseURL: srv.URL + "/search", Site: "testboard"}, zap.NewNop())
	jobs, err := f.Fetch(context.Background(), search.Query{
		SearchTerm:    "go engineer",
		Location:      "Remote",
		ResultsWanted: 10,
	})
	require.NoError(t, err)
	require.Len(t, jobs, 2) // titleless listing skipped

	require.Equal(t, "Senior Go Engineer", jobs[0].Title)
	require.Equal(t, "Acme", jobs[0].Company)
	require.Equal(t, "testboard", jobs[0].Site)
	require.Equal(t, srv.URL+"/jobs/1", jobs[0].JobURL)
	require.Equal(t, "2026-08-28", jobs[0].DatePosted)
	require.NotNil(t, jobs[0].SalaryMin)
	require.Equal(t, 120000.0, *jobs[0].SalaryMin)
	require.Nil(t, jobs[1].SalaryMin)

	require.Contains(t, gotQuery, "q=go+engineer")
	require.Contains(t, gotQuery, "l=Remote")
}

func TestFetchFollowsPagination(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, listingPage, `<a class="next-page" href="/search/page2">next</a>`)
	})
	mux.HandleFunc("/search/page2", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, listingPageTwo)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := New(Config{BaseURL: srv.URL + "/search", MaxPages: 3}, zap.NewNop())
	jobs, err := f.Fetch(context.Background(), search.Query{SearchTerm: "go", ResultsWanted: 10})
	require.NoError(t, err)
	require.Len(t, jobs, 4)
}

func TestFetchDropsDuplicateListings(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, listingPage, `<a class="next-page" href="/search/page2">next</a>`)
	})
	// Second page repeats the first page's listings.
	mux.HandleFunc("/search/page2", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, listingPage, "")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := New(Config{BaseURL: srv.URL + "/search", MaxPages: 3}, zap.NewNop())
	jobs, err := f.Fetch(context.Background(), search.Query{SearchTerm: "go", ResultsWanted: 10})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
}

func TestFetchStopsPaginationWhenSatisfied(t *testing.T) {
	t.Parallel()

	var secondPageHit bool
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, listingPage, `<a class="next-page" href="/search/page2">next</a>`)
	})
	mux.HandleFunc("/search/page2", func(w http.ResponseWriter, _ *http.Request) {
		secondPageHit = true
		fmt.Fprintf(w, listingPage, "")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := New(Config{BaseURL: srv.URL + "/search"}, zap.NewNop())
	jobs, err := f.Fetch(context.Background(), search.Query{SearchTerm: "go", ResultsWanted: 2})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	require.False(t, secondPageHit)
}

func TestFetchServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := New(Config{BaseURL: srv.URL + "/search", Timeout: 2 * time.Second}, zap.NewNop())
	_, err := f.Fetch(context.Background(), search.Query{SearchTerm: "go", ResultsWanted: 5})
	require.Error(t, err)
}
