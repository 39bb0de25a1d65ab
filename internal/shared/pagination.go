package shared

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"perPage"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	Start      int  `json:"start"`
	End        int  `json:"end"`
	IsFirst    bool `json:"isFirst"`
	IsLast     bool `json:"isLast"`
	Show       bool `json:"show"`
}

// NewPagination computes pagination metadata. TotalPages is never below one.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	totalPages := (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	end := page * perPage
	if end > total {
		end = total
	}
	return Pagination{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
		Start:      (page-1)*perPage + 1,
		End:        end,
		IsFirst:    page <= 1,
		IsLast:     page >= totalPages,
		Show:       total > perPage,
	}
}
