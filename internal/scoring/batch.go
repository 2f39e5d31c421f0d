package scoring

import (
	"context"
	"log"
	"time"

	"github.com/scriptvoid/scriptvoid/internal/metrics"
	"github.com/scriptvoid/scriptvoid/internal/model"
)

// ScoreUpdate is one changed document destined for the bulk write. Only
// scripts whose multiplier or verified flag actually changed are included,
// which bounds write amplification and makes re-runs on unchanged data
// produce zero writes.
type ScoreUpdate struct {
	ScriptID      string
	Multiplier    float64
	OwnerVerified bool
}

// BatchResult reports one invocation of the batch job to its scheduler.
// When the wall-clock budget ran out before the page was finished, HasMore
// is true and NextBatch names the batch to resume from.
type BatchResult struct {
	Processed     int           `json:"processed"`
	Updated       int           `json:"updated"`
	Skipped       int           `json:"skipped"`
	HasMore       bool          `json:"hasMore"`
	NextBatch     int           `json:"nextBatch"`
	ExecutionTime time.Duration `json:"executionTimeMs"`
}

// ScriptSource is the script-side storage the batch job reads and writes.
type ScriptSource interface {
	ListPage(ctx context.Context, offset, limit int) ([]model.Script, error)
	BulkUpdateScores(ctx context.Context, updates []ScoreUpdate) (int, error)
	ExpirePromotions(ctx context.Context, now time.Time) (int64, error)
	ExpireBumps(ctx context.Context, now time.Time) (int64, error)
}

// UserSource resolves owner verification for the batch job.
type UserSource interface {
	IsVerified(ctx context.Context, userID uint64) (bool, error)
}

// DefaultBatchSize is the page size used when the caller passes a
// non-positive one.
const DefaultBatchSize = 1000

// DefaultBudget bounds one invocation's wall-clock time.
const DefaultBudget = 8 * time.Second

// Runner drives the periodic multiplier recomputation. It is invoked by an
// external scheduler through the admin route, one batch per call, and is
// idempotent: recompute-and-diff, not increment-in-place, so overlapping
// runs and manual edits self-heal on the next pass.
type Runner struct {
	Scripts ScriptSource
	Users   UserSource
	Budget  time.Duration
	now     func() time.Time
}

// NewRunner builds a Runner with the default time budget.
func NewRunner(scripts ScriptSource, users UserSource) *Runner {
	return &Runner{Scripts: scripts, Users: users, Budget: DefaultBudget, now: time.Now}
}

// RunBatch recomputes multipliers for one page of scripts. Before the first
// page it also retires promotions and bumps whose windows have passed, so a
// single cron entry point keeps the whole decay model moving.
func (r *Runner) RunBatch(ctx context.Context, batch, batchSize int) (BatchResult, error) {
	start := r.now()
	if batch < 0 {
		batch = 0
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	budget := r.Budget
	if budget <= 0 {
		budget = DefaultBudget
	}

	res := BatchResult{NextBatch: batch}

	if batch == 0 {
		if n, err := r.Scripts.ExpirePromotions(ctx, start); err != nil {
			log.Printf("[BATCH] expire promotions failed: %v", err)
		} else if n > 0 {
			log.Printf("[BATCH] retired %d expired promotions", n)
		}
		if n, err := r.Scripts.ExpireBumps(ctx, start); err != nil {
			log.Printf("[BATCH] expire bumps failed: %v", err)
		} else if n > 0 {
			log.Printf("[BATCH] decayed %d expired bumps", n)
		}
	}

	scripts, err := r.Scripts.ListPage(ctx, batch*batchSize, batchSize)
	if err != nil {
		res.ExecutionTime = r.now().Sub(start)
		return res, err
	}

	// Owner verification is memoized per invocation so a prolific owner is
	// looked up once, not once per script.
	verified := make(map[uint64]bool)
	var updates []ScoreUpdate
	ranOut := false

	for _, s := range scripts {
		if r.now().Sub(start) > budget {
			ranOut = true
			break
		}

		ownerVerified, ok := verified[s.OwnerID]
		if !ok {
			v, err := r.Users.IsVerified(ctx, s.OwnerID)
			if err != nil {
				// Best effort: skip this script, keep the batch moving.
				log.Printf("[BATCH] owner lookup failed for script %s: %v", s.ID, err)
				res.Skipped++
				continue
			}
			ownerVerified = v
			verified[s.OwnerID] = v
		}

		m := computeMultiplierAt(s, ownerVerified, r.now())
		res.Processed++
		if m != s.Multiplier || ownerVerified != s.OwnerVerified {
			updates = append(updates, ScoreUpdate{
				ScriptID:      s.ID,
				Multiplier:    m,
				OwnerVerified: ownerVerified,
			})
		}
	}

	if len(updates) > 0 {
		n, err := r.Scripts.BulkUpdateScores(ctx, updates)
		if err != nil {
			res.ExecutionTime = r.now().Sub(start)
			return res, err
		}
		res.Updated = n
	}

	if ranOut {
		// Resume the same batch; the diff check makes reprocessing free.
		res.HasMore = true
		res.NextBatch = batch
	} else if len(scripts) == batchSize {
		res.HasMore = true
		res.NextBatch = batch + 1
	}

	res.ExecutionTime = r.now().Sub(start)
	metrics.BatchProcessed(res.Processed)
	metrics.BatchUpdated(res.Updated)
	return res, nil
}
