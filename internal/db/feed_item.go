package db

import "time"

const (
	// FeedKindNews 表示俱乐部新闻。
	FeedKindNews = "news"
	// FeedKindMatch 表示比赛赛程或赛果。
	FeedKindMatch = "match"
)

// FeedItem 存储从第三方页面抓取的新闻或比赛条目。
type FeedItem struct {
	ID          uint   `gorm:"primaryKey"`
	ExternalID  string `gorm:"size:64;uniqueIndex;not null"`
	Kind        string `gorm:"size:16;index;not null"`
	Title       string `gorm:"not null"`
	Summary     string `gorm:"type:text"`
	Link        string
	HomeTeam    string
	AwayTeam    string
	Result      string
	DateText    string
	PublishedAt *time.Time `gorm:"index"`
	SourceURL   string
	FetchedAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName 指定自定义表名。
func (FeedItem) TableName() string {
	return "feed_items"
}
