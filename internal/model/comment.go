package model

import "time"

// Comment mirrors the `comments` table.
type Comment struct {
	ID        uint64    // comments.id
	ScriptID  string    // comments.script_id
	UserID    uint64    // comments.user_id
	Username  string    // comments.username (denormalized for listings)
	Body      string    // comments.body
	CreatedAt time.Time // comments.created_at
}

// Like mirrors the `likes` table; (ScriptID, UserID) is unique so a user
// can like a script at most once.
type Like struct {
	ID        uint64    // likes.id
	ScriptID  string    // likes.script_id
	UserID    uint64    // likes.user_id
	CreatedAt time.Time // likes.created_at
}
