package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/scriptvoid/scriptvoid/internal/model"
)

// PromoRepo persists promotion codes.
type PromoRepo struct{ DB *sql.DB }

func NewPromoRepo(db *sql.DB) *PromoRepo { return &PromoRepo{DB: db} }

const promoColumns = "id, code, code_type, tier, active, expired, script_id, age_reversal_days, redeemed_at, expires_at, created_at"

// Create inserts an unused code (staff operation).
func (r *PromoRepo) Create(ctx context.Context, code, codeType, tier string, reversalDays int) (uint64, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO promo_codes (code, code_type, tier, age_reversal_days) VALUES (?,?,?,?)",
		code, codeType, nullIfEmpty(tier), reversalDays)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByCode fetches a code by its normalized value.
func (r *PromoRepo) GetByCode(ctx context.Context, code string) (model.PromoCode, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	var (
		pc         model.PromoCode
		tier       sql.NullString
		scriptID   sql.NullString
		redeemedAt sql.NullTime
		expiresAt  sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+promoColumns+" FROM promo_codes WHERE code=? LIMIT 1", code).
		Scan(&pc.ID, &pc.Code, &pc.CodeType, &tier, &pc.Active, &pc.Expired,
			&scriptID, &pc.AgeReversalDays, &redeemedAt, &expiresAt, &pc.CreatedAt)
	if err == sql.ErrNoRows {
		return model.PromoCode{}, ErrCodeNotFound
	}
	if err != nil {
		return model.PromoCode{}, err
	}
	if tier.Valid {
		pc.Tier = tier.String
	}
	if scriptID.Valid {
		pc.ScriptID = &scriptID.String
	}
	if redeemedAt.Valid {
		pc.RedeemedAt = &redeemedAt.Time
	}
	if expiresAt.Valid {
		pc.ExpiresAt = &expiresAt.Time
	}
	return pc, nil
}

// Bind claims the code for one script. The WHERE clause only matches an
// unclaimed, unexpired row, so exactly one racing redemption can win; the
// boolean return reports whether this call was the winner.
func (r *PromoRepo) Bind(ctx context.Context, code, scriptID string, redeemedAt time.Time, expiresAt *time.Time) (bool, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	res, err := r.DB.ExecContext(ctx,
		`UPDATE promo_codes
		 SET script_id=?, active=1, redeemed_at=?, expires_at=?
		 WHERE code=? AND script_id IS NULL AND expired=0`,
		scriptID, redeemedAt, nullableTime(expiresAt), code)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkExpired retires a code immediately (ageReset codes are single-shot).
func (r *PromoRepo) MarkExpired(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	_, err := r.DB.ExecContext(ctx,
		"UPDATE promo_codes SET expired=1 WHERE code=?", code)
	return err
}

// ExpireRedeemed retires redeemed tiered codes whose reversal window has
// passed. Run from the same cron entry point as the multiplier batch.
func (r *PromoRepo) ExpireRedeemed(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE promo_codes SET expired=1 WHERE expired=0 AND expires_at IS NOT NULL AND expires_at < ?",
		now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
