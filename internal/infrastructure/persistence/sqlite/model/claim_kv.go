package model

// ClaimKV backs the SQLite cache. ExpiresAt is empty for entries that never expire.
type ClaimKV struct {
	Key       string `gorm:"column:key;type:text;primaryKey"`
	Value     string `gorm:"column:value;type:text;not null"`
	ExpiresAt string `gorm:"column:expires_at;type:text;not null;default:''"`
	UpdatedAt string `gorm:"column:updated_at;type:text;not null"`
}

func (ClaimKV) TableName() string {
	return "claim_kv"
}
