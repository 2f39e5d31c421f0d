package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/scriptvoid/scriptvoid/internal/model"
)

// CommentRepo persists script comments.
type CommentRepo struct{ DB *sql.DB }

func NewCommentRepo(db *sql.DB) *CommentRepo { return &CommentRepo{DB: db} }

// Create inserts a comment and returns its ID.
func (r *CommentRepo) Create(ctx context.Context, scriptID string, userID uint64, username, body string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO comments (script_id, user_id, username, body) VALUES (?,?,?,?)",
		scriptID, userID, username, body)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ListByScript returns a script's comments, newest first.
func (r *CommentRepo) ListByScript(ctx context.Context, scriptID string, limit int) ([]model.Comment, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, script_id, user_id, username, body, created_at FROM comments WHERE script_id=? ORDER BY created_at DESC LIMIT ?",
		scriptID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.ScriptID, &c.UserID, &c.Username, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// LikeRepo persists likes; (script_id, user_id) is unique.
type LikeRepo struct{ DB *sql.DB }

func NewLikeRepo(db *sql.DB) *LikeRepo { return &LikeRepo{DB: db} }

// Toggle likes the script for the user, or removes the like when one
// already exists. It returns liked=true when the call added a like.
func (r *LikeRepo) Toggle(ctx context.Context, scriptID string, userID uint64) (bool, error) {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO likes (script_id, user_id) VALUES (?,?)", scriptID, userID)
	if err == nil {
		return true, nil
	}
	if !strings.Contains(strings.ToLower(err.Error()), "1062") {
		return false, err
	}
	_, err = r.DB.ExecContext(ctx,
		"DELETE FROM likes WHERE script_id=? AND user_id=?", scriptID, userID)
	return false, err
}
