// Package repository defines the persistence interfaces of the licensing domain.
package repository

import (
	"context"

	"github.com/turtacn/cle/internal/domain/models"
)

// LicenseRepository persists verified license tokens so a restarted instance
// can reload them without re-reading the original token files.
// LicenseRepository 持久化已验证的许可令牌，使重启后的实例无需重新读取
// 原始令牌文件即可重新加载它们。
type LicenseRepository interface {
	// Save upserts a license record keyed by its jti. Re-ingesting the same
	// token refreshes the record instead of failing.
	// Save 以 jti 为键对许可证记录进行插入或更新。重复摄取同一令牌会刷新记录而非失败。
	Save(ctx context.Context, lic *models.License) error

	// FindByID returns the license with the given jti, or a not-found error.
	// FindByID 返回具有给定 jti 的许可证，否则返回未找到错误。
	FindByID(ctx context.Context, id string) (*models.License, error)

	// ListAll returns every non-deleted license record, used to rebuild the
	// in-memory collection at boot.
	// ListAll 返回所有未删除的许可证记录，用于在启动时重建内存集合。
	ListAll(ctx context.Context) ([]*models.License, error)

	// Delete soft-deletes a license record by jti.
	// Delete 按 jti 对许可证记录进行软删除。
	Delete(ctx context.Context, id string) error

	// Count returns the number of non-deleted license records.
	// Count 返回未删除许可证记录的数量。
	Count(ctx context.Context) (int64, error)
}
