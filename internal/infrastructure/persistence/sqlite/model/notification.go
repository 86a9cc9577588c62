package model

// Notification stores the message template, never rendered markup.
// Seq follows insertion order and orders records of one batch, which share created_at.
type Notification struct {
	Seq            int64  `gorm:"column:seq;primaryKey;autoIncrement"`
	NotificationID string `gorm:"column:notification_id;type:text;not null;uniqueIndex"`
	ClaimID        string `gorm:"column:claim_id;type:text;not null;index"`
	UserID         string `gorm:"column:user_id;type:text;not null"`
	Kind           string `gorm:"column:kind;type:text;not null"`
	ActorName      string `gorm:"column:actor_name;type:text;not null"`
	FieldLabel     string `gorm:"column:field_label;type:text;not null;default:''"`
	OldValue       string `gorm:"column:old_value;type:text;not null;default:''"`
	NewValue       string `gorm:"column:new_value;type:text;not null;default:''"`
	TargetName     string `gorm:"column:target_name;type:text;not null;default:''"`
	IsRead         bool   `gorm:"column:is_read;not null;default:false;index"`
	CreatedAt      string `gorm:"column:created_at;type:text;not null;index"`
}

func (Notification) TableName() string {
	return "notifications"
}
