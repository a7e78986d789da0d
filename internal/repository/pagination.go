package repository

import "gorm.io/gorm"

// applyPagination 按页码与页大小应用 LIMIT/OFFSET。
// 页大小非正数时不分页，页码非法时回退到第一页。
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}
