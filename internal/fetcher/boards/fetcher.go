// Package boards implements the data-gathering collaborator using gocolly.
// It scrapes HTML job-board listing pages into raw job records.
package boards

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/seekrai/jobsearch/internal/fetcher/ratelimit"
	hashsha "github.com/seekrai/jobsearch/internal/hash/sha256"
	"github.com/seekrai/jobsearch/internal/search"
)

// Config controls collector behavior.
type Config struct {
	// BaseURL is the listing endpoint of the board, e.g. https://board.example/search.
	BaseURL string
	// Site labels records with their origin board.
	Site      string
	UserAgent string
	Timeout   time.Duration
	// MaxPages bounds pagination per query.
	MaxPages int
	// RequestsPerSecond paces page requests per board host. Zero means
	// unlimited.
	RequestsPerSecond float64
}

// Fetcher scrapes one job board. It may over-deliver relative to the
// requested count; callers truncate.
type Fetcher struct {
	cfg           Config
	logger        *zap.Logger
	baseCollector *colly.Collector
	limiter       *ratelimit.Limiter
	hasher        *hashsha.Hasher
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Site == "" {
		cfg.Site = "board"
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 5
	}

	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = false
	c.WithTransport(newHTTPTransport())

	return &Fetcher{
		cfg:           cfg,
		logger:        logger,
		baseCollector: c,
		limiter:       ratelimit.New(ratelimit.Config{RequestsPerSecond: cfg.RequestsPerSecond}),
		hasher:        hashsha.New(),
	}
}

// Fetch runs the listing scrape for one query.
func (f *Fetcher) Fetch(ctx context.Context, q search.Query) ([]search.Job, error) {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	timeout := f.cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	collector.SetRequestTimeout(timeout)

	var (
		jobs     []search.Job
		fetchErr error
		pages    int
		seen     = make(map[string]struct{})
	)

	collector.OnRequest(func(r *colly.Request) {
		if err := f.limiter.Wait(ctx, r.URL.String()); err != nil {
			fetchErr = err
			r.Abort()
		}
	})

	collector.OnHTML("div.job-listing", func(e *colly.HTMLElement) {
		job := search.Job{
			Title:       strings.TrimSpace(e.ChildText(".job-title")),
			Company:     strings.TrimSpace(e.ChildText(".company")),
			Location:    strings.TrimSpace(e.ChildText(".location")),
			Site:        f.cfg.Site,
			JobURL:      e.Request.AbsoluteURL(e.ChildAttr("a.job-link", "href")),
			Description: strings.TrimSpace(e.ChildText(".description")),
			DatePosted:  e.ChildAttr("time", "datetime"),
		}
		if minAttr := e.ChildAttr(".salary", "data-min"); minAttr != "" {
			if v, err := strconv.ParseFloat(minAttr, 64); err == nil {
				job.SalaryMin = &v
			}
		}
		if maxAttr := e.ChildAttr(".salary", "data-max"); maxAttr != "" {
			if v, err := strconv.ParseFloat(maxAttr, 64); err == nil {
				job.SalaryMax = &v
			}
		}
		if job.Title == "" {
			return
		}
		// Boards repeat listings across pages; fingerprint to drop duplicates.
		fp, err := f.hasher.Hash([]byte(job.Title + "\x00" + job.Company + "\x00" + job.Location + "\x00" + job.JobURL))
		if err == nil {
			if _, dup := seen[fp]; dup {
				return
			}
			seen[fp] = struct{}{}
		}
		jobs = append(jobs, job)
	})

	collector.OnHTML("a.next-page", func(e *colly.HTMLElement) {
		if len(jobs) >= q.ResultsWanted || pages >= f.cfg.MaxPages {
			return
		}
		pages++
		next := e.Request.AbsoluteURL(e.Attr("href"))
		if err := e.Request.Visit(next); err != nil {
			f.logger.Debug("pagination stopped", zap.String("next", next), zap.Error(err))
		}
	})

	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := f.runCollector(ctx, collector, f.searchURL(q), &fetchErr); err != nil {
		return nil, err
	}

	f.logger.Info("board fetch complete",
		zap.String("site", f.cfg.Site),
		zap.String("term", q.SearchTerm),
		zap.Int("jobs", len(jobs)),
	)
	return jobs, nil
}

func (f *Fetcher) searchURL(q search.Query) string {
	u, err := url.Parse(f.cfg.BaseURL)
	if err != nil {
		return f.cfg.BaseURL
	}
	v := u.Query()
	v.Set("q", q.SearchTerm)
	if q.Location != "" {
		v.Set("l", q.Location)
	}
	if q.HoursOld > 0 {
		v.Set("hours", strconv.Itoa(q.HoursOld))
	}
	if q.Country != "" {
		v.Set("country", q.Country)
	}
	u.RawQuery = v.Encode()
	return u.String()
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, target string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("board fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("board visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("board response failed: %w", *fetchErr)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}

var _ search.Fetcher = (*Fetcher)(nil)
