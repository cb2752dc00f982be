package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seekrai/jobsearch/internal/metrics"
	"github.com/seekrai/jobsearch/internal/search"
)

// runBatches partitions jobs into contiguous batchSize slices, analyzes each
// through the collaborator, and interpolates percent linearly across the
// analyzing range. A failed batch gets default annotations; the failure never
// aborts the run. Output preserves input order and length.
func (o *Orchestrator) runBatches(ctx context.Context, jobID string, jobs []search.Job, keywords map[string][]string, batchSize, totalBatches int) ([]search.Job, error) {
	analyzed := make([]search.Job, 0, len(jobs))

	for i := 0; i < totalBatches; i++ {
		start := i * batchSize
		end := min(start+batchSize, len(jobs))
		batch := jobs[start:end]

		percent := 55 + float64(i)/float64(totalBatches)*40
		percent = min(max(percent, 55), 95)

		o.writeProgress(ctx, jobID, search.PhaseAnalyzing, percent,
			fmt.Sprintf("Analyzing batch %d/%d...", i+1, totalBatches),
			&search.AnalysisProgress{
				CompletedBatches: i,
				TotalBatches:     totalBatches,
				CurrentBatch:     &search.BatchInfo{JobsInBatch: len(batch)},
			})

		out, err := o.analyzer.AnalyzeBatch(ctx, batch, keywords)
		if err != nil {
			o.logger.Error("batch analysis failed, substituting default annotations",
				zap.String("job_id", jobID),
				zap.Int("batch", i+1),
				zap.Error(err),
			)
			metrics.RecordBatch(metrics.BatchFailed)
			out = o.analyzer.DefaultAnnotations(batch)
		} else {
			metrics.RecordBatch(metrics.BatchOK)
		}
		analyzed = append(analyzed, out...)

		// Courtesy pause toward the analysis API; also keeps progress
		// observable rather than instantaneous.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(o.cfg.BatchPause):
		}
	}

	o.writeProgress(ctx, jobID, search.PhaseAnalyzing, 95, "Analysis completed!",
		&search.AnalysisProgress{
			CompletedBatches: totalBatches,
			TotalBatches:     totalBatches,
			CurrentBatch:     nil,
		})

	return analyzed, nil
}
