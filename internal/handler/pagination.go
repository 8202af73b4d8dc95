package handler

import (
	"strconv"

	"bkpconnect/backend/internal/store"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	maxPage         = 100000
)

// PaginationMeta defines the structure for pagination metadata.
// HasMore is true when the page was full before filtering, so a further page may exist.
type PaginationMeta struct {
	CurrentPage int  `json:"current_page"`
	PageSize    int  `json:"page_size"`
	Returned    int  `json:"returned"`
	HasMore     bool `json:"has_more"`
}

// PaginatedResponse defines the structure for a paginated list of any type.
type PaginatedResponse[T any] struct {
	Data []T            `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

// NewPaginatedResponse creates a new PaginatedResponse. scanned is the number of entries
// read from storage for this page.
func NewPaginatedResponse[T any](data []T, scanned, page, limit int) PaginatedResponse[T] {
	if data == nil {
		data = []T{}
	}
	return PaginatedResponse[T]{
		Data: data,
		Meta: PaginationMeta{
			CurrentPage: page,
			PageSize:    limit,
			Returned:    len(data),
			HasMore:     limit > 0 && scanned >= limit,
		},
	}
}

// Paginate reads the page and limit query parameters.
func Paginate(c *gin.Context) (page, limit int, p store.Page) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}

	limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize // Max limit
	}

	return page, limit, store.NewPage(page, limit)
}
