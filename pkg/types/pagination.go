package types

// Pagination - метаданные постраничного ответа.
type Pagination struct {
	TotalCount uint64 `json:"total_count"`
	Page       uint64 `json:"page"`
	Limit      uint64 `json:"limit"`
	TotalPages uint64 `json:"total_pages"`
}

func NewPagination(total, page, limit uint64) Pagination {
	p := Pagination{TotalCount: total, Page: page, Limit: limit}
	if limit > 0 {
		p.TotalPages = (total + limit - 1) / limit
	}
	return p
}
