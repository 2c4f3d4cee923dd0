// internal/utils/pagination.go
package utils

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	defaultSortKey  = "created_at"
)

// ListParams carries the paging, sorting and filter query parameters shared
// by the catalog and order listings. Sorting is applied only through Scope,
// which whitelists the column.
type ListParams struct {
	Page     int
	Limit    int
	Sort     string
	Order    string
	Search   string
	Category string
}

// ListParamsFromQuery reads ?page/limit/sort/order/search/category with
// storefront defaults: newest first, 20 per page, capped at 100.
func ListParamsFromQuery(c *gin.Context) ListParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))

	params := ListParams{
		Page:     page,
		Limit:    limit,
		Sort:     c.DefaultQuery("sort", defaultSortKey),
		Order:    strings.ToLower(c.DefaultQuery("order", "desc")),
		Search:   c.Query("search"),
		Category: c.Query("category"),
	}
	params.normalize()
	return params
}

func (p *ListParams) normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 || p.Limit > maxPageSize {
		p.Limit = defaultPageSize
	}
	if p.Order != "asc" && p.Order != "desc" {
		p.Order = "desc"
	}
}

func (p ListParams) offset() int {
	return (p.Page - 1) * p.Limit
}

// orderClause rejects sort columns outside the whitelist; anything unknown
// falls back to creation time.
func (p ListParams) orderClause(allowed []string) string {
	sort := defaultSortKey
	for _, col := range allowed {
		if col == p.Sort {
			sort = p.Sort
			break
		}
	}

	order := p.Order
	if order != "asc" && order != "desc" {
		order = "desc"
	}
	return sort + " " + order
}

// Scope applies whitelisted sorting and paging in one step, for gorm's
// Scopes chaining.
func (p ListParams) Scope(allowedSort ...string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(p.orderClause(allowedSort)).Offset(p.offset()).Limit(p.Limit)
	}
}

// PageScope pages without sorting, for listings with a fixed order.
func (p ListParams) PageScope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(p.offset()).Limit(p.Limit)
	}
}

// Page is the paginated listing envelope.
type Page struct {
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"total_pages"`
	Data       interface{} `json:"data"`
}

func NewPage(data interface{}, total int64, params ListParams) Page {
	totalPages := 0
	if params.Limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(params.Limit)))
	}

	return Page{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: totalPages,
		Data:       data,
	}
}

func SetPageHeaders(c *gin.Context, page Page) {
	c.Header("X-Total-Count", strconv.FormatInt(page.Total, 10))
	c.Header("X-Page", strconv.Itoa(page.Page))
	c.Header("X-Per-Page", strconv.Itoa(page.Limit))
	c.Header("X-Total-Pages", strconv.Itoa(page.TotalPages))
}
