package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/scriptvoid/scriptvoid/internal/model"
	"github.com/scriptvoid/scriptvoid/internal/scoring"
)

// scriptColumns is the canonical select list scanned by scanScript.
const scriptColumns = `id, owner_id, owner_username, title, description, created_at, age_reset,
	promotion_tier, promotion_active, promotion_expires_at, is_bumped, bump_expire,
	owner_verified, multiplier, points, views, likes, last_activity, updated_at`

// ScriptRepo persists scripts and their scoring columns.
type ScriptRepo struct{ DB *sql.DB }

func NewScriptRepo(db *sql.DB) *ScriptRepo { return &ScriptRepo{DB: db} }

func scanScript(row interface{ Scan(...any) error }) (model.Script, error) {
	var (
		s          model.Script
		ageReset   sql.NullTime
		promoTier  sql.NullString
		promoExp   sql.NullTime
		bumpExpire sql.NullTime
	)
	err := row.Scan(&s.ID, &s.OwnerID, &s.OwnerUsername, &s.Title, &s.Description,
		&s.CreatedAt, &ageReset, &promoTier, &s.PromotionActive, &promoExp,
		&s.IsBumped, &bumpExpire, &s.OwnerVerified, &s.Multiplier, &s.Points,
		&s.Views, &s.Likes, &s.LastActivity, &s.UpdatedAt)
	if err != nil {
		return model.Script{}, err
	}
	if ageReset.Valid {
		s.AgeReset = &ageReset.Time
	}
	if promoTier.Valid {
		s.PromotionTier = promoTier.String
	}
	if promoExp.Valid {
		s.PromotionExpiresAt = &promoExp.Time
	}
	if bumpExpire.Valid {
		s.BumpExpire = &bumpExpire.Time
	}
	return s, nil
}

// Create inserts a new script. The initial multiplier is computed by the
// caller; points start at the flat submit award.
func (r *ScriptRepo) Create(ctx context.Context, s model.Script) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO scripts
			(id, owner_id, owner_username, title, description, created_at,
			 owner_verified, multiplier, points, last_activity)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.OwnerID, s.OwnerUsername, s.Title, s.Description, s.CreatedAt,
		s.OwnerVerified, s.Multiplier, s.Points, s.LastActivity)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrConflict
	}
	return err
}

// GetByID fetches one script.
func (r *ScriptRepo) GetByID(ctx context.Context, id string) (model.Script, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+scriptColumns+" FROM scripts WHERE id=? LIMIT 1", id)
	s, err := scanScript(row)
	if err == sql.ErrNoRows {
		return model.Script{}, ErrScriptNotFound
	}
	return s, err
}

// UpdateOwned edits title/description if ownerID owns the script.
func (r *ScriptRepo) UpdateOwned(ctx context.Context, id string, ownerID uint64, title, description string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE scripts SET title=?, description=?, updated_at=NOW() WHERE id=? AND owner_id=?",
		title, description, id, ownerID)
	if err != nil {
		return err
	}
	return r.ownedResult(ctx, res, id)
}

// DeleteOwned removes a script if ownerID owns it. Comments and likes go
// with it; the deletes are independent statements, so a crash in between
// can leave orphaned engagement rows — accepted, the next full cleanup
// sweep removes them.
func (r *ScriptRepo) DeleteOwned(ctx context.Context, id string, ownerID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM scripts WHERE id=? AND owner_id=?", id, ownerID)
	if err != nil {
		return err
	}
	if err := r.ownedResult(ctx, res, id); err != nil {
		return err
	}
	_, _ = r.DB.ExecContext(ctx, "DELETE FROM comments WHERE script_id=?", id)
	_, _ = r.DB.ExecContext(ctx, "DELETE FROM likes WHERE script_id=?", id)
	return nil
}

// ownedResult maps a zero-row conditional update to not-found vs forbidden.
func (r *ScriptRepo) ownedResult(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM scripts WHERE id=? LIMIT 1", id).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return ErrScriptNotFound
		}
		return err
	}
	return ErrForbidden
}

// ScriptSearchQuery defines filters & pagination for the browse endpoint.
type ScriptSearchQuery struct {
	Title    string
	Owner    string
	Sort     string // "popular" (default) or "newest"
	Page     int
	PageSize int
}

// Search lists scripts with a total count for pagination. Popular sorting
// ranks by effective score (points weighted by the persisted multiplier).
func (r *ScriptRepo) Search(ctx context.Context, q ScriptSearchQuery) ([]model.Script, int64, error) {
	where := []string{}
	args := []any{}

	if q.Title != "" {
		where = append(where, "LOWER(title) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Title)+"%")
	}
	if q.Owner != "" {
		where = append(where, "owner_username = ?")
		args = append(args, strings.ToLower(q.Owner))
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM scripts WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "points * multiplier DESC, created_at DESC"
	if strings.EqualFold(q.Sort, "newest") {
		order = "created_at DESC"
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	size := q.PageSize
	if size < 1 {
		size = 20
	}

	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+scriptColumns+" FROM scripts WHERE "+cond+
			" ORDER BY "+order+" LIMIT ? OFFSET ?",
		append(args, size, (page-1)*size)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.Script
	for rows.Next() {
		s, err := scanScript(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// ListPopular returns the top scripts by effective score. Used by the
// cache warmer.
func (r *ScriptRepo) ListPopular(ctx context.Context, limit int) ([]model.Script, error) {
	return r.list(ctx, "points * multiplier DESC, created_at DESC", limit)
}

// ListNewest returns the most recently published scripts.
func (r *ScriptRepo) ListNewest(ctx context.Context, limit int) ([]model.Script, error) {
	return r.list(ctx, "created_at DESC", limit)
}

func (r *ScriptRepo) list(ctx context.Context, order string, limit int) ([]model.Script, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+scriptColumns+" FROM scripts ORDER BY "+order+" LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Script
	for rows.Next() {
		s, err := scanScript(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListPage returns one stable page for the batch job, ordered by id so
// resumed invocations see a consistent pagination.
func (r *ScriptRepo) ListPage(ctx context.Context, offset, limit int) ([]model.Script, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+scriptColumns+" FROM scripts ORDER BY id LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Script
	for rows.Next() {
		s, err := scanScript(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// BulkUpdateScores writes the changed multiplier/verified values in one
// transaction and reports how many rows changed.
func (r *ScriptRepo) BulkUpdateScores(ctx context.Context, updates []scoring.ScoreUpdate) (int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		"UPDATE scripts SET multiplier=?, owner_verified=? WHERE id=?")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	updated := 0
	for _, u := range updates {
		res, err := stmt.ExecContext(ctx, u.Multiplier, u.OwnerVerified, u.ScriptID)
		if err != nil {
			return updated, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			updated++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return updated, nil
}

// ExpirePromotions retires promotions whose window has passed, touching
// last_activity the way the auto-return job did.
func (r *ScriptRepo) ExpirePromotions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE scripts
		 SET promotion_tier=NULL, promotion_active=0, promotion_expires_at=NULL, last_activity=?
		 WHERE promotion_active=1 AND promotion_expires_at IS NOT NULL AND promotion_expires_at < ?`,
		now, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExpireBumps clears bump state once bump_expire passes.
func (r *ScriptRepo) ExpireBumps(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE scripts SET is_bumped=0, bump_expire=NULL WHERE is_bumped=1 AND bump_expire IS NOT NULL AND bump_expire < ?",
		now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// AddPoints applies an engagement award as a commutative atomic increment;
// never read-modify-write.
func (r *ScriptRepo) AddPoints(ctx context.Context, id string, delta float64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE scripts SET points = points + ? WHERE id=?", delta, id)
	return err
}

// RecordView bumps the view counter and applies the view award in one
// statement.
func (r *ScriptRepo) RecordView(ctx context.Context, id string, award float64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE scripts SET views = views + 1, points = points + ? WHERE id=?", award, id)
	return err
}

// AdjustLikes moves the like counter by delta (1 on like, -1 on unlike)
// and applies the award, which is zero for unlikes and self-likes.
func (r *ScriptRepo) AdjustLikes(ctx context.Context, id string, delta int, award float64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE scripts SET likes = GREATEST(0, CAST(likes AS SIGNED) + ?), points = points + ? WHERE id=?",
		delta, award, id)
	return err
}

// Bump marks the script bumped until expire, refreshes last_activity and
// applies the bump award.
func (r *ScriptRepo) Bump(ctx context.Context, id string, expire time.Time, award float64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE scripts SET is_bumped=1, bump_expire=?, last_activity=NOW(), points = points + ? WHERE id=?",
		expire, award, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrScriptNotFound
	}
	return nil
}

// ApplyPromotion activates a tier on the script and rolls its effective
// age back to ageReset.
func (r *ScriptRepo) ApplyPromotion(ctx context.Context, id, tier string, ageReset time.Time, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE scripts
		 SET promotion_tier=?, promotion_active=1, promotion_expires_at=?, age_reset=?, last_activity=NOW()
		 WHERE id=?`,
		tier, expiresAt, ageReset, id)
	return err
}

// ResetAge rewrites the publish time to now and drops any reversal
// override. Promotion fields are deliberately left alone: an age reset
// stacks with a running promotion.
func (r *ScriptRepo) ResetAge(ctx context.Context, id string, now time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE scripts SET created_at=?, age_reset=NULL, last_activity=NOW() WHERE id=?",
		now, id)
	return err
}
