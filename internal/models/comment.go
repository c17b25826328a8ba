package models

// Comment belongs to a post. A nil ParentCommentID marks a top-level comment;
// otherwise the comment is a reply to another comment on the same post.
type Comment struct {
	BaseModel

	PostID          string  `gorm:"type:uuid;index;not null" json:"post_id"`
	AuthorID        string  `gorm:"type:uuid;index;not null" json:"author_id"`
	Body            string  `gorm:"type:text;not null" json:"body"`
	ParentCommentID *string `gorm:"type:uuid;index" json:"parent_comment_id,omitempty"`
}
