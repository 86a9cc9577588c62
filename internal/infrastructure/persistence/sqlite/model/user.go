package model

type User struct {
	UserID     string `gorm:"column:user_id;type:text;primaryKey"`
	Name       string `gorm:"column:name;type:text;not null"`
	Email      string `gorm:"column:email;type:text;not null;default:''"`
	AvatarURL  string `gorm:"column:avatar_url;type:text;not null;default:''"`
	Role       string `gorm:"column:role;type:text;not null"`
	Department string `gorm:"column:department;type:text;not null;default:''"`
	CreatedAt  string `gorm:"column:created_at;type:text;not null"`
	UpdatedAt  string `gorm:"column:updated_at;type:text;not null"`
}

func (User) TableName() string {
	return "users"
}
