package db

import "time"

const (
	PublishStatusOpened = "opened"
	PublishStatusFailed = "failed"
)

// PublishRecord 记录每一次内容提交生成的分支与 PR，便于追溯。
type PublishRecord struct {
	ID        uint   `gorm:"primaryKey"`
	RequestID string `gorm:"size:36;uniqueIndex;not null"`
	Editor    string `gorm:"size:255;index"`
	ClientIP  string `gorm:"size:64"`
	Branch    string `gorm:"size:255"`
	PRURL     string
	FileCount int
	Files     string `gorm:"type:text"`
	Status    string `gorm:"size:16;index"`
	Error     string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定自定义表名。
func (PublishRecord) TableName() string {
	return "publish_records"
}
