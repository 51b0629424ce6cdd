package repository

import (
	"fmt"
	"strings"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type listWindow struct {
	column string
	order  string
	limit  int
	offset int
}

// newListWindow resolves sorting and pagination, whitelisting sort columns.
func newListWindow(sortBy, sortOrder string, page, size int, allowed map[string]string, fallback, fallbackOrder string) listWindow {
	column, ok := allowed[sortBy]
	if !ok {
		column = fallback
	}
	order := strings.ToUpper(sortOrder)
	if order != "ASC" && order != "DESC" {
		order = fallbackOrder
	}
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return listWindow{column: column, order: order, limit: size, offset: (page - 1) * size}
}

func (w listWindow) clause() string {
	return fmt.Sprintf("ORDER BY %s %s LIMIT %d OFFSET %d", w.column, w.order, w.limit, w.offset)
}

func likePattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}
