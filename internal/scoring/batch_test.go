package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptvoid/scriptvoid/internal/model"
)

// fakeScriptSource holds scripts in memory and applies bulk updates back
// onto them, so consecutive batch runs see their own writes.
type fakeScriptSource struct {
	scripts      []model.Script
	listErr      error
	bulkCalls    int
	expiredPromo int
	expiredBumps int
}

func (f *fakeScriptSource) ListPage(ctx context.Context, offset, limit int) ([]model.Script, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if offset >= len(f.scripts) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.scripts) {
		end = len(f.scripts)
	}
	page := make([]model.Script, end-offset)
	copy(page, f.scripts[offset:end])
	return page, nil
}

func (f *fakeScriptSource) BulkUpdateScores(ctx context.Context, updates []ScoreUpdate) (int, error) {
	f.bulkCalls++
	n := 0
	for _, u := range updates {
		for i := range f.scripts {
			if f.scripts[i].ID == u.ScriptID {
				f.scripts[i].Multiplier = u.Multiplier
				f.scripts[i].OwnerVerified = u.OwnerVerified
				n++
			}
		}
	}
	return n, nil
}

func (f *fakeScriptSource) ExpirePromotions(ctx context.Context, now time.Time) (int64, error) {
	f.expiredPromo++
	return 0, nil
}

func (f *fakeScriptSource) ExpireBumps(ctx context.Context, now time.Time) (int64, error) {
	f.expiredBumps++
	return 0, nil
}

type fakeUserSource struct {
	verified map[uint64]bool
	errFor   map[uint64]error
	calls    int
}

func (f *fakeUserSource) IsVerified(ctx context.Context, userID uint64) (bool, error) {
	f.calls++
	if err := f.errFor[userID]; err != nil {
		return false, err
	}
	return f.verified[userID], nil
}

func newTestRunner(scripts *fakeScriptSource, users *fakeUserSource) *Runner {
	r := NewRunner(scripts, users)
	r.now = func() time.Time { return anchor }
	return r
}

func freshScript(id string, owner uint64) model.Script {
	return model.Script{
		ID:        id,
		OwnerID:   owner,
		CreatedAt: anchor.Add(-30 * time.Minute),
	}
}

func TestRunBatchComputesAndWrites(t *testing.T) {
	scripts := &fakeScriptSource{scripts: []model.Script{
		freshScript("s1", 1),
		freshScript("s2", 2),
	}}
	users := &fakeUserSource{verified: map[uint64]bool{2: true}}
	r := newTestRunner(scripts, users)

	res, err := r.RunBatch(context.Background(), 0, 100)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 2, res.Updated)
	assert.False(t, res.HasMore)
	assert.Equal(t, 2.0, scripts.scripts[0].Multiplier)
	assert.Equal(t, 2.8, scripts.scripts[1].Multiplier, "verified owner gets the 1.4x")
	assert.Equal(t, 1, scripts.expiredPromo, "batch 0 retires expired promotions")
	assert.Equal(t, 1, scripts.expiredBumps)
}

func TestRunBatchIdempotent(t *testing.T) {
	scripts := &fakeScriptSource{scripts: []model.Script{
		freshScript("s1", 1),
		freshScript("s2", 1),
		freshScript("s3", 2),
	}}
	users := &fakeUserSource{verified: map[uint64]bool{2: true}}
	r := newTestRunner(scripts, users)

	first, err := r.RunBatch(context.Background(), 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Updated)

	second, err := r.RunBatch(context.Background(), 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 3, second.Processed)
	assert.Equal(t, 0, second.Updated, "re-running with no mutations must write nothing")
	assert.Equal(t, 1, scripts.bulkCalls, "empty diffs never reach the bulk writer")
}

func TestRunBatchMemoizesOwnerLookups(t *testing.T) {
	scripts := &fakeScriptSource{scripts: []model.Script{
		freshScript("s1", 7),
		freshScript("s2", 7),
		freshScript("s3", 7),
	}}
	users := &fakeUserSource{verified: map[uint64]bool{}}
	r := newTestRunner(scripts, users)

	_, err := r.RunBatch(context.Background(), 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, users.calls, "one owner, one lookup")
}

func TestRunBatchSkipsOnOwnerLookupError(t *testing.T) {
	scripts := &fakeScriptSource{scripts: []model.Script{
		freshScript("s1", 1),
		freshScript("s2", 2),
	}}
	users := &fakeUserSource{
		verified: map[uint64]bool{},
		errFor:   map[uint64]error{1: errors.New("user store down")},
	}
	r := newTestRunner(scripts, users)

	res, err := r.RunBatch(context.Background(), 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Processed, "the healthy script still goes through")
}

func TestRunBatchPaging(t *testing.T) {
	var all []model.Script
	for i := 0; i < 5; i++ {
		all = append(all, freshScript(string(rune('a'+i)), 1))
	}
	scripts := &fakeScriptSource{scripts: all}
	users := &fakeUserSource{verified: map[uint64]bool{}}
	r := newTestRunner(scripts, users)

	res, err := r.RunBatch(context.Background(), 0, 2)
	require.NoError(t, err)
	assert.True(t, res.HasMore)
	assert.Equal(t, 1, res.NextBatch)

	res, err = r.RunBatch(context.Background(), 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed, "last partial page")
	assert.False(t, res.HasMore)
}

func TestRunBatchBudgetExhaustion(t *testing.T) {
	scripts := &fakeScriptSource{scripts: []model.Script{
		freshScript("s1", 1),
		freshScript("s2", 1),
	}}
	users := &fakeUserSource{verified: map[uint64]bool{}}

	r := NewRunner(scripts, users)
	r.Budget = 10 * time.Millisecond
	// Each clock read advances time well past the budget.
	tick := anchor
	r.now = func() time.Time {
		tick = tick.Add(20 * time.Millisecond)
		return tick
	}

	res, err := r.RunBatch(context.Background(), 0, 100)
	require.NoError(t, err)
	assert.True(t, res.HasMore)
	assert.Equal(t, 0, res.NextBatch, "an interrupted batch resumes itself, not the next one")
	assert.Equal(t, 0, res.Processed)
}

func TestRunBatchListError(t *testing.T) {
	scripts := &fakeScriptSource{listErr: errors.New("db down")}
	users := &fakeUserSource{}
	r := newTestRunner(scripts, users)

	_, err := r.RunBatch(context.Background(), 0, 100)
	assert.Error(t, err)
}
