package shared

import (
	"github.com/courtline/internal/http/response"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type pageQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// NormalizePagination 页码最小为 1，每页默认 20 条，最多 100 条
func NormalizePagination(page, pageSize int) (int, int) {
	page = max(page, 1)
	switch {
	case pageSize <= 0:
		pageSize = defaultPageSize
	case pageSize > maxPageSize:
		pageSize = maxPageSize
	}
	return page, pageSize
}

// ParsePagination 读取 page 与 page_size 查询参数，非数字按默认值处理
func ParsePagination(c *gin.Context) (int, int) {
	var q pageQuery
	_ = c.ShouldBindQuery(&q)
	return NormalizePagination(q.Page, q.PageSize)
}

// BuildPagination 根据总数计算总页数
func BuildPagination(page, pageSize int, total int64) response.Pagination {
	p := response.Pagination{Page: page, PageSize: pageSize, Total: total}
	if pageSize > 0 {
		p.TotalPage = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	return p
}
