// Package export writes finished result sets to a blob store as CSV.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/seekrai/jobsearch/internal/search"
	"github.com/seekrai/jobsearch/internal/storage"
)

var csvHeader = []string{
	"title",
	"company",
	"location",
	"site",
	"job_url",
	"description",
	"salary_min",
	"salary_max",
	"date_posted",
	"analyzed",
	"similarity_score",
	"similarity_explanation",
	"salary_min_extracted",
	"salary_max_extracted",
	"salary_confidence",
	"key_matches",
	"missing_requirements",
}

// CSVExporter renders jobs as CSV and saves them through a BlobStore.
type CSVExporter struct {
	store  storage.BlobStore
	clock  search.Clock
	logger *zap.Logger
}

// NewCSVExporter constructs a CSVExporter.
func NewCSVExporter(store storage.BlobStore, clock search.Clock, logger *zap.Logger) *CSVExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVExporter{store: store, clock: clock, logger: logger}
}

// Export writes one CSV file and returns its name. The name, not the backend
// URI, is what clients see in the output_file field.
func (e *CSVExporter) Export(ctx context.Context, jobID string, req search.Request, jobs []search.Job) (string, error) {
	filename := OutputFilename(req.Filename, req.DesiredPosition, e.clock.Now())

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for _, job := range jobs {
		if err := w.Write(csvRow(job)); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}

	uri, err := e.store.PutObject(ctx, filename, "text/csv", &buf)
	if err != nil {
		return "", fmt.Errorf("save export %s: %w", filename, err)
	}
	e.logger.Info("exported results",
		zap.String("job_id", jobID),
		zap.String("file", filename),
		zap.String("uri", uri),
		zap.Int("rows", len(jobs)),
	)
	return filename, nil
}

func csvRow(j search.Job) []string {
	return []string{
		j.Title,
		j.Company,
		j.Location,
		j.Site,
		j.JobURL,
		j.Description,
		formatFloat(j.SalaryMin),
		formatFloat(j.SalaryMax),
		j.DatePosted,
		strconv.FormatBool(j.Analyzed),
		strconv.FormatFloat(j.SimilarityScore, 'f', -1, 64),
		j.SimilarityExplanation,
		formatFloat(j.SalaryMinExtracted),
		formatFloat(j.SalaryMaxExtracted),
		strconv.FormatFloat(j.SalaryConfidence, 'f', -1, 64),
		strings.Join(j.KeyMatches, "; "),
		strings.Join(j.MissingRequirements, "; "),
	}
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

var _ search.Exporter = (*CSVExporter)(nil)
