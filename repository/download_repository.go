package repository

import (
	"context"

	"CineBot/model"

	"gorm.io/gorm"
)

// DownloadRepository 下载历史数据访问接口
type DownloadRepository interface {
	Create(ctx context.Context, record *model.DownloadRecord) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]*model.DownloadRecord, error)
	CountByOutcome(ctx context.Context) (map[string]int64, error)
}

// gormDownloadRepository GORM 实现
type gormDownloadRepository struct {
	db *gorm.DB
}

// NewGormDownloadRepository 创建 GORM 下载历史仓库
func NewGormDownloadRepository(db *gorm.DB) DownloadRepository {
	return &gormDownloadRepository{db: db}
}

// Create 写入一条下载记录
func (r *gormDownloadRepository) Create(ctx context.Context, record *model.DownloadRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// ListByUser 按时间倒序获取用户最近的下载
func (r *gormDownloadRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*model.DownloadRecord, error) {
	var records []*model.DownloadRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// CountByOutcome 按结果统计下载数量
func (r *gormDownloadRepository) CountByOutcome(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Outcome string
		Total   int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.DownloadRecord{}).
		Select("outcome, COUNT(*) AS total").
		Group("outcome").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Outcome] = row.Total
	}
	return counts, nil
}
