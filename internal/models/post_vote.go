package models

// PostVote records a single member's current vote on a post. The composite unique
// index keeps the ledger at one row per (post, user); a retracted vote deletes the
// row rather than storing a zero.
type PostVote struct {
	BaseModel

	PostID string `gorm:"type:uuid;not null;uniqueIndex:idx_post_votes_post_user" json:"post_id"`
	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_post_votes_post_user" json:"user_id"`
	Value  int    `gorm:"not null" json:"value"`
}

// PostMilestone marks a celebratory score a post has already reached. The unique
// index is what makes milestone notifications one-shot per (post, score) even when
// a vote toggles the score back and forth across the boundary.
type PostMilestone struct {
	BaseModel

	PostID string `gorm:"type:uuid;not null;uniqueIndex:idx_post_milestones_post_score" json:"post_id"`
	Score  int    `gorm:"not null;uniqueIndex:idx_post_milestones_post_score" json:"score"`
}
