package model

type Comment struct {
	CommentID string `gorm:"column:comment_id;type:text;primaryKey"`
	ClaimID   string `gorm:"column:claim_id;type:text;not null;index"`
	UserID    string `gorm:"column:user_id;type:text;not null"`
	Text      string `gorm:"column:text;type:text;not null"`
	CreatedAt string `gorm:"column:created_at;type:text;not null"`
}

func (Comment) TableName() string {
	return "comments"
}
