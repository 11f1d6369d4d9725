package service

import (
	"strings"

	"github.com/clubsite/internal/db"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PublishLogEntry 描述一次提交尝试。
type PublishLogEntry struct {
	Editor   string
	ClientIP string
	Changes  []ContentChange
	Result   PublishResult
	Err      error
}

// PublishLogService 持久化提交记录。
type PublishLogService struct {
	db *gorm.DB
}

// NewPublishLogService 构造 PublishLogService。
func NewPublishLogService(gdb *gorm.DB) *PublishLogService {
	return &PublishLogService{db: gdb}
}

// Record 写入一条记录并返回生成的请求 ID。
func (s *PublishLogService) Record(entry PublishLogEntry) (*db.PublishRecord, error) {
	paths := make([]string, 0, len(entry.Changes))
	for _, change := range entry.Changes {
		paths = append(paths, change.FilePath)
	}

	record := db.PublishRecord{
		RequestID: uuid.NewString(),
		Editor:    strings.TrimSpace(entry.Editor),
		ClientIP:  entry.ClientIP,
		Branch:    entry.Result.Branch,
		PRURL:     entry.Result.PRURL,
		FileCount: len(entry.Changes),
		Files:     strings.Join(paths, "\n"),
		Status:    db.PublishStatusOpened,
	}
	if entry.Err != nil {
		record.Status = db.PublishStatusFailed
		record.Error = entry.Err.Error()
	}

	if err := s.db.Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// Recent 返回最近的记录，最新的在前。
func (s *PublishLogService) Recent(limit int) ([]db.PublishRecord, error) {
	limit = clampLimit(limit)
	var records []db.PublishRecord
	if err := s.db.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// clampLimit 为非正数返回默认值，超过上限时截断到上限。
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	}
	return limit
}
