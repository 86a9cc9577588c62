package model

type Sequence struct {
	Name  string `gorm:"column:name;type:text;primaryKey"`
	Value int64  `gorm:"column:value;not null;default:0"`
}

func (Sequence) TableName() string {
	return "sequences"
}
