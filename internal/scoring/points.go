package scoring

import (
	"time"

	"github.com/scriptvoid/scriptvoid/internal/model"
)

// Engagement award weights. Awards use the multiplier value at the time of
// the event; multiplier changes affect future events only.
const (
	submitAward   = 100.0
	viewWeight    = 0.1
	likeWeight    = 2.0
	commentWeight = 4.0
	maxBumpAward  = 125.0
)

// Base bump awards per promotion tier.
var bumpBase = map[string]float64{
	model.TierNone: 25,
	model.TierI:    50,
	model.TierII:   75,
	model.TierIII:  100,
	model.TierIV:   125,
}

// SubmitAward is the flat award for publishing a script; it ignores the
// multiplier so a fresh upload cannot double-dip its own freshness bonus.
func SubmitAward() float64 { return submitAward }

// ViewAward returns the points granted for one view at the given
// multiplier.
func ViewAward(multiplier float64) float64 { return round3(viewWeight * multiplier) }

// LikeAward returns the points granted for one like.
func LikeAward(multiplier float64) float64 { return round3(likeWeight * multiplier) }

// CommentAward returns the points granted for one comment.
func CommentAward(multiplier float64) float64 { return round3(commentWeight * multiplier) }

// LikeAwardFor returns the like award earned by actorID engaging with s.
// Owners liking their own script earn nothing; the like itself still
// counts.
func LikeAwardFor(s model.Script, actorID uint64) float64 {
	if actorID == s.OwnerID {
		return 0
	}
	return LikeAward(s.Multiplier)
}

// CommentAwardFor returns the comment award earned by actorID, zero for
// the owner commenting on their own script.
func CommentAwardFor(s model.Script, actorID uint64) float64 {
	if actorID == s.OwnerID {
		return 0
	}
	return CommentAward(s.Multiplier)
}

// BumpAward returns the flat award for bumping at the given tier, capped
// at the tier IV value.
func BumpAward(tier string) float64 {
	base, ok := bumpBase[tier]
	if !ok {
		base = bumpBase[model.TierNone]
	}
	if base > maxBumpAward {
		base = maxBumpAward
	}
	return base
}

// BumpAwardFor returns the bump award for s, counting its promotion tier
// only while the promotion is live. The same gate drives the bump bonus
// in the multiplier.
func BumpAwardFor(s model.Script, now time.Time) float64 {
	return BumpAward(liveTier(s, now))
}
