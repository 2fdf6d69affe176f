package repository

import (
	"database/sql"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// paginate 分页 scope，pageSize <= 0 表示不分页
func paginate(page, pageSize int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if pageSize <= 0 {
			return db
		}
		return db.Offset((max(page, 1) - 1) * pageSize).Limit(pageSize)
	}
}

// matchKeyword 任一列模糊匹配关键字；postgres 下不区分大小写
func matchKeyword(keyword string, columns ...string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			return db
		}
		condition := keywordCondition(dialectName(db), columns)
		if condition == "" {
			return db
		}
		return db.Where(condition, sql.Named("keyword", "%"+likeEscaper.Replace(keyword)+"%"))
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func keywordCondition(dialect string, columns []string) string {
	operator := "LIKE"
	if dialect == "postgres" {
		operator = "ILIKE"
	}
	parts := make([]string, 0, len(columns))
	for _, column := range columns {
		if column = strings.TrimSpace(column); column != "" {
			parts = append(parts, column+" "+operator+` @keyword ESCAPE '\'`)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func dialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	return db.Dialector.Name()
}

// firstOrNil 取第一条记录，不存在时返回 nil, nil
func firstOrNil[T any](query *gorm.DB, conds ...interface{}) (*T, error) {
	var row T
	err := query.First(&row, conds...).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
