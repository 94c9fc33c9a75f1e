package resource

const DefaultPageSize = 10

// PageSlice is one user-facing page of a filtered collection.
type PageSlice struct {
	Items      []Record `json:"items"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	TotalCount int      `json:"totalCount"`
	TotalPages int      `json:"totalPages"`
}

// Paginate returns the records in [(page-1)*size, page*size), clamped to the
// collection. Pages are one-indexed; anything below 1 is the first page.
func Paginate(items []Record, page, size int) PageSlice {
	if size < 1 {
		size = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}

	total := len(items)
	start := total
	if page-1 <= total/size {
		start = min((page-1)*size, total)
	}
	end := start + size
	if end > total {
		end = total
	}

	slice := make([]Record, end-start)
	copy(slice, items[start:end])

	return PageSlice{
		Items:      slice,
		Page:       page,
		PageSize:   size,
		TotalCount: total,
		TotalPages: (total + size - 1) / size,
	}
}
