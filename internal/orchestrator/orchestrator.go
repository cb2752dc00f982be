// Package orchestrator drives the lifecycle of one search job: the sync vs
// background mode decision, the phase state machine with its progress writes,
// batched analysis, export, and deferred cleanup.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seekrai/jobsearch/internal/history"
	"github.com/seekrai/jobsearch/internal/metrics"
	"github.com/seekrai/jobsearch/internal/notify"
	"github.com/seekrai/jobsearch/internal/sanitize"
	"github.com/seekrai/jobsearch/internal/search"
)

// Config tunes orchestration behavior.
type Config struct {
	// AnalysisEnabled switches on the analysis phase for every job and, as a
	// side effect, forces background mode.
	AnalysisEnabled bool

	// BackgroundThreshold is the result count above which a job runs in
	// background mode even with analysis disabled.
	BackgroundThreshold int

	DefaultResultsWanted int
	DefaultLocation      string

	// Fetch parameters passed through to the fetch collaborator.
	Sites    []string
	HoursOld int
	Country  string

	// BatchSize is the number of jobs per analysis batch; BatchPause is the
	// courtesy delay between batches.
	BatchSize  int
	BatchPause time.Duration

	// CleanupDelay is how long a terminal record stays pollable before the
	// deferred delete fires.
	CleanupDelay time.Duration

	// DescriptionMaxLen truncates descriptions in API responses. The export
	// keeps full descriptions.
	DescriptionMaxLen int
}

func (c Config) withDefaults() Config {
	if c.BackgroundThreshold <= 0 {
		c.BackgroundThreshold = 10
	}
	if c.DefaultResultsWanted <= 0 {
		c.DefaultResultsWanted = 20
	}
	if c.DefaultLocation == "" {
		c.DefaultLocation = "Remote"
	}
	if len(c.Sites) == 0 {
		c.Sites = []string{"indeed", "linkedin"}
	}
	if c.HoursOld <= 0 {
		c.HoursOld = 72
	}
	if c.Country == "" {
		c.Country = "USA"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.BatchPause <= 0 {
		c.BatchPause = 100 * time.Millisecond
	}
	if c.CleanupDelay <= 0 {
		c.CleanupDelay = 5 * time.Minute
	}
	if c.DescriptionMaxLen <= 0 {
		c.DescriptionMaxLen = 500
	}
	return c
}

// Orchestrator coordinates the collaborators for every search job.
type Orchestrator struct {
	cfg      Config
	fetcher  search.Fetcher
	analyzer search.Analyzer
	exporter search.Exporter
	store    search.ProgressStore
	ids      search.IDGenerator
	clock    search.Clock
	notifier notify.Provider
	history  history.Provider
	logger   *zap.Logger
}

// New wires an Orchestrator. notifier and hist may be nil; no-op providers
// are substituted.
func New(
	cfg Config,
	fetcher search.Fetcher,
	analyzer search.Analyzer,
	exporter search.Exporter,
	store search.ProgressStore,
	ids search.IDGenerator,
	clock search.Clock,
	notifier notify.Provider,
	hist history.Provider,
	logger *zap.Logger,
) *Orchestrator {
	if notifier == nil {
		notifier = notify.NoOpProvider{}
	}
	if hist == nil {
		hist = history.NoOpProvider{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:      cfg.withDefaults(),
		fetcher:  fetcher,
		analyzer: analyzer,
		exporter: exporter,
		store:    store,
		ids:      ids,
		clock:    clock,
		notifier: notifier,
		history:  hist,
		logger:   logger,
	}
}

// Outcome is the immediate result of StartSearch. Background jobs carry a
// JobID for polling; synchronous jobs carry the full Results.
type Outcome struct {
	Background bool
	JobID      string
	Message    string
	Results    *search.Results
}

// StartSearch makes the mode decision and either runs the job inline or
// launches it fire-and-forget. The decision is made once, before any
// background work starts.
func (o *Orchestrator) StartSearch(ctx context.Context, req search.Request) (Outcome, error) {
	if req.ResultsWanted <= 0 {
		req.ResultsWanted = o.cfg.DefaultResultsWanted
	}
	if req.Filename == "" {
		req.Filename = "resume"
	}

	o.logger.Info("search requested",
		zap.String("position", req.DesiredPosition),
		zap.String("location", req.TargetLocation),
		zap.Int("results_wanted", req.ResultsWanted),
	)

	if o.cfg.AnalysisEnabled || req.ResultsWanted > o.cfg.BackgroundThreshold {
		jobID, err := o.ids.NewID()
		if err != nil {
			return Outcome{}, fmt.Errorf("mint job id: %w", err)
		}
		o.writeProgress(ctx, jobID, search.PhaseInitializing, 0, "Job search queued...", nil)

		metrics.RecordSearch(metrics.ModeBackground)
		metrics.BackgroundJobStarted()
		go o.runBackground(jobID, req)

		return Outcome{
			Background: true,
			JobID:      jobID,
			Message:    "Job search started. Use the job_id to track progress.",
		}, nil
	}

	metrics.RecordSearch(metrics.ModeSync)
	start := time.Now()
	results, err := o.runSync(ctx, req)
	if err != nil {
		return Outcome{}, err
	}
	metrics.ObserveSearchDuration(metrics.ModeSync, time.Since(start))
	o.saveHistory(ctx, "", req, results)
	return Outcome{Results: results}, nil
}

// runBackground is the fire-and-forget unit of execution. Every exit path
// leaves a terminal record so no poller waits forever.
func (o *Orchestrator) runBackground(jobID string, req search.Request) {
	ctx := context.Background()
	start := time.Now()
	defer metrics.BackgroundJobFinished()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("background search panicked",
				zap.String("job_id", jobID),
				zap.Any("panic", r),
			)
			o.writeProgress(ctx, jobID, search.PhaseError, 0, fmt.Sprintf("Error: %v", r), nil)
		}
	}()

	results, err := o.execute(ctx, jobID, req)
	if err != nil {
		o.logger.Error("background search failed",
			zap.String("job_id", jobID),
			zap.Error(err),
		)
		o.writeProgress(ctx, jobID, search.PhaseError, 0, "Error: "+err.Error(), nil)
		return
	}

	// The terminal write carries the full payload and no timestamp; pollers
	// treat the presence of results as the completion signal.
	o.store.Put(ctx, jobID, search.ProgressRecord{
		Phase:   search.PhaseComplete,
		Percent: 100,
		Details: "Job search completed!",
		Results: results,
	})
	metrics.ObserveSearchDuration(metrics.ModeBackground, time.Since(start))
	o.logger.Info("background search completed",
		zap.String("job_id", jobID),
		zap.Int("count", results.Count),
	)

	o.publishCompletion(ctx, jobID, results)
	o.saveHistory(ctx, jobID, req, results)
	o.scheduleCleanup(jobID)
}

// execute runs the shared fetch/analyze/export sequence with progress writes.
func (o *Orchestrator) execute(ctx context.Context, jobID string, req search.Request) (*search.Results, error) {
	o.writeProgress(ctx, jobID, search.PhaseFetching, 5, "Preparing job search...", nil)

	term, location, googleSearch := o.deriveQuery(req)
	o.logger.Info("derived search parameters",
		zap.String("job_id", jobID),
		zap.String("term", term),
		zap.String("location", location),
	)

	o.writeProgress(ctx, jobID, search.PhaseFetching, 15, fmt.Sprintf("Searching for '%s' jobs...", term), nil)

	jobs, err := o.fetcher.Fetch(ctx, search.Query{
		Sites:         o.cfg.Sites,
		SearchTerm:    term,
		GoogleSearch:  googleSearch,
		Location:      location,
		ResultsWanted: req.ResultsWanted,
		HoursOld:      o.cfg.HoursOld,
		Country:       o.cfg.Country,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch jobs: %w", err)
	}

	initialCount := len(jobs)
	metrics.AddJobsFetched(initialCount)
	o.writeProgress(ctx, jobID, search.PhaseFetching, 40, fmt.Sprintf("Found %d jobs, processing...", initialCount), nil)

	if len(jobs) > req.ResultsWanted {
		jobs = jobs[:req.ResultsWanted]
	}
	o.writeProgress(ctx, jobID, search.PhaseFetching, 50, fmt.Sprintf("Using %d jobs for analysis...", len(jobs)), nil)

	jobsAnalyzed := false
	var summary *search.AnalysisSummary
	if o.cfg.AnalysisEnabled && len(jobs) > 0 {
		o.writeProgress(ctx, jobID, search.PhaseAnalyzing, 50, "Starting job analysis...", nil)

		totalBatches := (len(jobs) + o.cfg.BatchSize - 1) / o.cfg.BatchSize
		o.writeProgress(ctx, jobID, search.PhaseAnalyzing, 55,
			fmt.Sprintf("Analyzing %d jobs in %d batches...", len(jobs), totalBatches),
			&search.AnalysisProgress{
				CompletedBatches: 0,
				TotalBatches:     totalBatches,
				CurrentBatch:     &search.BatchInfo{JobsInBatch: 0},
			})

		analyzed, batchErr := o.runBatches(ctx, jobID, jobs, req.Keywords, o.cfg.BatchSize, totalBatches)
		if batchErr != nil {
			// Degraded continue: the job proceeds with unanalyzed records.
			o.logger.Error("analysis run failed",
				zap.String("job_id", jobID),
				zap.Error(batchErr),
			)
			o.writeProgress(ctx, jobID, search.PhaseAnalyzing, 80, "Analysis failed, continuing with basic results...", nil)
		} else {
			jobs = analyzed
			jobsAnalyzed = true
			summary = summarize(jobs)
			o.writeProgress(ctx, jobID, search.PhaseAnalyzing, 95,
				fmt.Sprintf("Analysis completed - %d jobs analyzed", summary.AnalyzedCount), nil)
		}
	}

	outputFile, err := o.exporter.Export(ctx, jobID, req, jobs)
	if err != nil {
		return nil, fmt.Errorf("export results: %w", err)
	}

	responseJobs := o.toResponseJobs(jobs)

	return &search.Results{
		Success: true,
		Jobs:    responseJobs,
		Count:   len(responseJobs),
		SearchParams: search.Params{
			SearchTerm:          term,
			Location:            location,
			ResultsWanted:       req.ResultsWanted,
			InitialScrapedCount: initialCount,
			FinalReturnedCount:  len(responseJobs),
		},
		OutputFile:      outputFile,
		AnalysisEnabled: o.cfg.AnalysisEnabled,
		JobsAnalyzed:    jobsAnalyzed,
		AnalysisSummary: summary,
	}, nil
}

// runSync handles small, analysis-free searches inline. No progress record
// is created.
func (o *Orchestrator) runSync(ctx context.Context, req search.Request) (*search.Results, error) {
	term, location, googleSearch := o.deriveQuery(req)

	jobs, err := o.fetcher.Fetch(ctx, search.Query{
		Sites:         o.cfg.Sites,
		SearchTerm:    term,
		GoogleSearch:  googleSearch,
		Location:      location,
		ResultsWanted: req.ResultsWanted,
		HoursOld:      o.cfg.HoursOld,
		Country:       o.cfg.Country,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch jobs: %w", err)
	}
	metrics.AddJobsFetched(len(jobs))

	if len(jobs) > req.ResultsWanted {
		jobs = jobs[:req.ResultsWanted]
	}

	outputFile, err := o.exporter.Export(ctx, "", req, jobs)
	if err != nil {
		return nil, fmt.Errorf("export results: %w", err)
	}

	responseJobs := o.toResponseJobs(jobs)

	return &search.Results{
		Success: true,
		Jobs:    responseJobs,
		Count:   len(responseJobs),
		SearchParams: search.Params{
			SearchTerm:    term,
			Location:      location,
			ResultsWanted: req.ResultsWanted,
		},
		OutputFile:      outputFile,
		AnalysisEnabled: false,
		JobsAnalyzed:    false,
	}, nil
}

// deriveQuery turns the raw request into effective search parameters.
func (o *Orchestrator) deriveQuery(req search.Request) (term, location, googleSearch string) {
	term = "software engineer"
	if len(req.SearchTerms.PrimaryTerms) > 0 && req.SearchTerms.PrimaryTerms[0] != "" {
		term = req.SearchTerms.PrimaryTerms[0]
	}
	if req.DesiredPosition != "" && !strings.Contains(strings.ToLower(term), strings.ToLower(req.DesiredPosition)) {
		term = strings.TrimSpace(req.DesiredPosition + " " + term)
	}

	location = req.SearchTerms.Location
	if location == "" {
		location = req.TargetLocation
	}
	if location == "" {
		location = o.cfg.DefaultLocation
	}

	googleSearch = req.SearchTerms.GoogleSearch
	if googleSearch == "" {
		googleSearch = fmt.Sprintf("%s jobs near %s", term, location)
	}
	return term, location, googleSearch
}

// toResponseJobs applies response-shape defaults, description truncation,
// and sanitization. The exported CSV keeps the raw records.
func (o *Orchestrator) toResponseJobs(jobs []search.Job) []search.Job {
	out := make([]search.Job, len(jobs))
	for i, j := range jobs {
		if j.Title == "" {
			j.Title = "N/A"
		}
		if j.Company == "" {
			j.Company = "N/A"
		}
		if j.Location == "" {
			j.Location = "N/A"
		}
		if j.Site == "" {
			j.Site = "N/A"
		}
		if len(j.Description) > o.cfg.DescriptionMaxLen {
			j.Description = j.Description[:o.cfg.DescriptionMaxLen] + "..."
		}
		out[i] = sanitize.Job(j)
	}
	return out
}

func summarize(jobs []search.Job) *search.AnalysisSummary {
	s := &search.AnalysisSummary{TotalCount: len(jobs)}
	for _, j := range jobs {
		if j.Analyzed {
			s.AnalyzedCount++
		}
		if j.SalaryMinExtracted != nil || j.SalaryMaxExtracted != nil {
			s.SalaryExtractedCount++
		}
	}
	return s
}

func (o *Orchestrator) writeProgress(ctx context.Context, jobID string, phase search.Phase, percent float64, details string, ap *search.AnalysisProgress) {
	now := o.clock.Now()
	o.store.Put(ctx, jobID, search.ProgressRecord{
		Phase:            phase,
		Percent:          percent,
		Details:          details,
		AnalysisProgress: ap,
		Timestamp:        &now,
	})
}

func (o *Orchestrator) publishCompletion(ctx context.Context, jobID string, results *search.Results) {
	evt := notify.Event{
		JobID:      jobID,
		Phase:      search.PhaseComplete,
		Count:      results.Count,
		OutputFile: results.OutputFile,
		At:         o.clock.Now(),
	}
	if err := o.notifier.Publish(ctx, evt); err != nil {
		o.logger.Warn("publish completion event", zap.String("job_id", jobID), zap.Error(err))
	}
}

func (o *Orchestrator) saveHistory(ctx context.Context, jobID string, req search.Request, results *search.Results) {
	rec := history.Record{
		JobID:         jobID,
		SearchTerm:    results.SearchParams.SearchTerm,
		Location:      results.SearchParams.Location,
		ResultsWanted: req.ResultsWanted,
		ReturnedCount: results.Count,
		Analyzed:      results.JobsAnalyzed,
		OutputFile:    results.OutputFile,
		CreatedAt:     o.clock.Now(),
	}
	if _, err := o.history.SaveSearch(ctx, rec); err != nil {
		o.logger.Warn("save search history", zap.String("job_id", jobID), zap.Error(err))
	}
}

// scheduleCleanup removes the progress record after the retention window.
// The shared cache self-expires via TTL; this targets the fallback table.
func (o *Orchestrator) scheduleCleanup(jobID string) {
	time.AfterFunc(o.cfg.CleanupDelay, func() {
		o.store.Delete(context.Background(), jobID)
		o.logger.Debug("cleaned up progress record", zap.String("job_id", jobID))
	})
}
