package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// StringList 以 JSON 存储的字符串列表
type StringList []string

// Scan 实现 sql.Scanner 接口
func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*s = nil
		return nil
	}
	if len(bytes) == 0 || string(bytes) == "null" {
		*s = nil
		return nil
	}
	return json.Unmarshal(bytes, s)
}

// Value 实现 driver.Valuer 接口
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// 下载结果
const (
	DownloadOutcomeDelivered = "delivered"
	DownloadOutcomeLocalOnly = "local_only"
	DownloadOutcomeFailed    = "failed"
	DownloadOutcomeCancelled = "cancelled"
)

// DownloadRecord 下载历史
type DownloadRecord struct {
	ID         uint64     `json:"id" gorm:"primaryKey;autoIncrement"`
	SessionID  string     `json:"sessionId" gorm:"size:36;index"`
	UserID     int64      `json:"userId" gorm:"index;not null"`
	ContentID  string     `json:"contentId" gorm:"size:64;not null"`
	Title      string     `json:"title" gorm:"size:255"`
	Quality    int        `json:"quality"`
	AudioIDs   StringList `json:"audioIds" gorm:"type:json"`
	Languages  StringList `json:"languages" gorm:"type:json"`
	Outcome    string     `json:"outcome" gorm:"size:20;index"`
	SizeBytes  int64      `json:"sizeBytes"`
	FilePath   string     `json:"filePath" gorm:"size:512"`
	ArchiveURL string     `json:"archiveUrl" gorm:"type:text"`
	Reason     string     `json:"reason" gorm:"size:64"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// TableName 指定表名
func (DownloadRecord) TableName() string {
	return "download_history"
}
