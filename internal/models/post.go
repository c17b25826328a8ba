package models

// Post is a piece of content submitted to a channel.
//
// Score is a denormalised cache of SUM(post_votes.value) maintained by the vote
// service; it is always recomputed in full rather than patched incrementally.
type Post struct {
	BaseModel

	AuthorID string `gorm:"type:uuid;index;not null" json:"author_id"`
	Title    string `gorm:"type:varchar(255);not null" json:"title"`
	Body     string `gorm:"type:text" json:"body"`

	Score int `gorm:"default:0" json:"score"`
}
