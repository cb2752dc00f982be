// Package openai implements the analysis collaborator on the OpenAI
// Chat Completions API. Jobs are scored in batches against the caller's
// keyword set; a failed batch never fails the search, callers fall back to
// DefaultAnnotations.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/seekrai/jobsearch/internal/search"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o-mini"

	// DefaultTimeout bounds one batch call.
	DefaultTimeout = 60 * time.Second

	maxRetries  = 3
	baseBackoff = 2 * time.Second
	maxBackoff  = 32 * time.Second

	// descriptionLimit keeps prompts bounded; listings can be very long.
	descriptionLimit = 2000
)

// ErrAPIKeyNotSet indicates a missing API key.
var ErrAPIKeyNotSet = errors.New("OpenAI API key not set")

// Analyzer implements search.Analyzer.
type Analyzer struct {
	client  openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewAnalyzer constructs an Analyzer. model may be empty to use DefaultModel.
func NewAnalyzer(apiKey, model string, logger *zap.Logger) (*Analyzer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrAPIKeyNotSet
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		timeout: DefaultTimeout,
		logger:  logger,
	}, nil
}

// SetTimeout overrides the per-batch call timeout.
func (a *Analyzer) SetTimeout(d time.Duration) { a.timeout = d }

// annotation is the per-job object the model must return.
type annotation struct {
	SimilarityScore       float64  `json:"similarity_score"`
	SimilarityExplanation string   `json:"similarity_explanation"`
	SalaryMinExtracted    *float64 `json:"salary_min_extracted"`
	SalaryMaxExtracted    *float64 `json:"salary_max_extracted"`
	SalaryConfidence      float64  `json:"salary_confidence"`
	KeyMatches            []string `json:"key_matches"`
	MissingRequirements   []string `json:"missing_requirements"`
}

type annotationResponse struct {
	Jobs []annotation `json:"jobs"`
}

// AnalyzeBatch scores one batch against the keyword set. The returned slice
// preserves input order and length.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, batch []search.Job, keywords map[string][]string) ([]search.Job, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	prompt, err := buildPrompt(batch, keywords)
	if err != nil {
		return nil, fmt.Errorf("build analysis prompt: %w", err)
	}

	content, err := a.completeWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var parsed annotationResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("parse analysis response: %w", err)
	}
	if len(parsed.Jobs) != len(batch) {
		return nil, fmt.Errorf("analysis returned %d annotations for %d jobs", len(parsed.Jobs), len(batch))
	}

	out := make([]search.Job, len(batch))
	for i, job := range batch {
		ann := parsed.Jobs[i]
		job.Analyzed = true
		job.SimilarityScore = ann.SimilarityScore
		job.SimilarityExplanation = ann.SimilarityExplanation
		job.SalaryMinExtracted = ann.SalaryMinExtracted
		job.SalaryMaxExtracted = ann.SalaryMaxExtracted
		job.SalaryConfidence = ann.SalaryConfidence
		job.KeyMatches = ann.KeyMatches
		job.MissingRequirements = ann.MissingRequirements
		out[i] = job
	}
	return out, nil
}

// DefaultAnnotations marks every job with a neutral annotation. Used when a
// batch fails so its records still appear in the final output.
func (a *Analyzer) DefaultAnnotations(batch []search.Job) []search.Job {
	out := make([]search.Job, len(batch))
	for i, job := range batch {
		job.Analyzed = false
		job.SimilarityScore = 0
		job.SimilarityExplanation = "Analysis unavailable for this job"
		job.SalaryMinExtracted = nil
		job.SalaryMaxExtracted = nil
		job.SalaryConfidence = 0
		job.KeyMatches = nil
		job.MissingRequirements = nil
		out[i] = job
	}
	return out
}

func (a *Analyzer) completeWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * baseBackoff
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			a.logger.Warn("rate limited, retrying analysis batch",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		params := openai.ChatCompletionNewParams{
			Model: shared.ChatModel(a.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(systemPrompt),
				openai.UserMessage(prompt),
			},
			Temperature: openai.Float(0),
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{
					Type: "json_object",
				},
			},
		}

		completion, err := a.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				continue
			}
			return "", fmt.Errorf("analysis API call failed: %w", err)
		}
		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("analysis response missing choices")
		}
		return completion.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("analysis retries exhausted: %w", lastErr)
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

const systemPrompt = `You score job postings against a candidate's keyword profile.
Respond with a JSON object {"jobs": [...]} containing exactly one entry per
input job, in input order. Each entry has: similarity_score (0.0-1.0),
similarity_explanation (one sentence), salary_min_extracted and
salary_max_extracted (numbers or null, parsed from the description),
salary_confidence (0.0-1.0), key_matches (array of matched keywords),
missing_requirements (array of requirements the profile lacks).`

type promptJob struct {
	Index       int    `json:"index"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

func buildPrompt(batch []search.Job, keywords map[string][]string) (string, error) {
	jobs := make([]promptJob, len(batch))
	for i, j := range batch {
		desc := j.Description
		if len(desc) > descriptionLimit {
			desc = desc[:descriptionLimit]
		}
		jobs[i] = promptJob{
			Index:       i,
			Title:       j.Title,
			Company:     j.Company,
			Location:    j.Location,
			Description: desc,
		}
	}

	payload, err := json.Marshal(struct {
		Keywords map[string][]string `json:"keywords"`
		Jobs     []promptJob         `json:"jobs"`
	}{Keywords: keywords, Jobs: jobs})
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

var _ search.Analyzer = (*Analyzer)(nil)
