// Package search defines core types shared across subsystems.
package search

import "time"

// Phase represents the coarse lifecycle stage of a search job.
type Phase string

// Phases written to the progress store.
const (
	PhaseInitializing Phase = "initializing"
	PhaseFetching     Phase = "fetching"
	PhaseAnalyzing    Phase = "analyzing"
	PhaseComplete     Phase = "complete"
	PhaseError        Phase = "error"
)

// Terminal reports whether no further progress writes are expected.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseError
}

// BatchInfo describes the batch currently being analyzed.
type BatchInfo struct {
	JobsInBatch int `json:"jobs_in_batch"`
}

// AnalysisProgress is the sub-record attached to progress writes while the
// analyzing phase is active. CurrentBatch is nil once all batches finished.
type AnalysisProgress struct {
	CompletedBatches int        `json:"completed_batches"`
	TotalBatches     int        `json:"total_batches"`
	CurrentBatch     *BatchInfo `json:"current_batch"`
}

// ProgressRecord is the latest known status snapshot for a job. Exactly one
// record is live per job id; the store keeps the latest write only.
//
// Timestamp is omitted on the terminal complete write, where Results carries
// the full payload and acts as the completion signal for pollers.
type ProgressRecord struct {
	Phase            Phase             `json:"phase"`
	Percent          float64           `json:"percent"`
	Details          string            `json:"details,omitempty"`
	AnalysisProgress *AnalysisProgress `json:"analysis_progress,omitempty"`
	Results          *Results          `json:"results,omitempty"`
	Timestamp        *time.Time        `json:"timestamp,omitempty"`
}

// Job is one scraped job posting, optionally enriched by the analyzer.
type Job struct {
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Location    string   `json:"location"`
	Site        string   `json:"site"`
	JobURL      string   `json:"job_url"`
	Description string   `json:"description"`
	SalaryMin   *float64 `json:"salary_min,omitempty"`
	SalaryMax   *float64 `json:"salary_max,omitempty"`
	DatePosted  string   `json:"date_posted,omitempty"`

	// Fields below are populated by the analysis collaborator.
	Analyzed              bool     `json:"analyzed,omitempty"`
	SimilarityScore       float64  `json:"similarity_score,omitempty"`
	SimilarityExplanation string   `json:"similarity_explanation,omitempty"`
	SalaryMinExtracted    *float64 `json:"salary_min_extracted,omitempty"`
	SalaryMaxExtracted    *float64 `json:"salary_max_extracted,omitempty"`
	SalaryConfidence      float64  `json:"salary_confidence,omitempty"`
	KeyMatches            []string `json:"key_matches,omitempty"`
	MissingRequirements   []string `json:"missing_requirements,omitempty"`
}

// TermSet is the nested search-term object supplied by the client.
type TermSet struct {
	PrimaryTerms []string `json:"primary_search_terms"`
	Location     string   `json:"location,omitempty"`
	GoogleSearch string   `json:"google_search_string,omitempty"`
}

// Request captures one client-initiated search.
type Request struct {
	SearchTerms     TermSet             `json:"search_terms"`
	DesiredPosition string              `json:"desired_position"`
	TargetLocation  string              `json:"target_location"`
	ResultsWanted   int                 `json:"results_wanted"`
	Filename        string              `json:"filename"`
	Keywords        map[string][]string `json:"keywords"`
}

// Params echoes the effective search parameters back to the client.
type Params struct {
	SearchTerm          string `json:"search_term"`
	Location            string `json:"location"`
	ResultsWanted       int    `json:"results_wanted"`
	InitialScrapedCount int    `json:"initial_scraped_count,omitempty"`
	FinalReturnedCount  int    `json:"final_returned_count,omitempty"`
}

// AnalysisSummary aggregates analyzer output across a whole job.
type AnalysisSummary struct {
	AnalyzedCount        int `json:"analyzed_count"`
	TotalCount           int `json:"total_count"`
	SalaryExtractedCount int `json:"salary_extracted_count"`
}

// Results is the final response payload, returned directly in synchronous
// mode and embedded in the terminal progress record in background mode.
type Results struct {
	Success         bool             `json:"success"`
	Jobs            []Job            `json:"jobs"`
	Count           int              `json:"count"`
	SearchParams    Params           `json:"search_params"`
	OutputFile      string           `json:"output_file"`
	AnalysisEnabled bool             `json:"analysis_enabled"`
	JobsAnalyzed    bool             `json:"jobs_analyzed"`
	AnalysisSummary *AnalysisSummary `json:"analysis_summary,omitempty"`
}

// Query is what the fetch collaborator receives after parameter derivation.
type Query struct {
	Sites         []string
	SearchTerm    string
	GoogleSearch  string
	Location      string
	ResultsWanted int
	HoursOld      int
	Country       string
}
