package blog

// DefaultPageSize is used when a caller asks for a non-positive page size.
const DefaultPageSize = 10

// Page describes one page of a listing: which slice of ItemCount rows to
// fetch and whether neighbours exist. A page index past the end, or an empty
// listing, yields page 1 with a zero limit.
type Page struct {
	ItemCount   int  `json:"item_count"`
	PageIndex   int  `json:"page_index"`
	PageSize    int  `json:"page_size"`
	PageCount   int  `json:"page_count"`
	Offset      int  `json:"offset"`
	Limit       int  `json:"limit"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// NewPage computes the page at pageIndex (1-based).
func NewPage(itemCount, pageIndex, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageIndex < 1 {
		pageIndex = 1
	}
	p := Page{ItemCount: itemCount, PageSize: pageSize}
	p.PageCount = (itemCount + pageSize - 1) / pageSize
	if itemCount <= 0 || pageIndex > p.PageCount {
		p.PageIndex = 1
	} else {
		p.PageIndex = pageIndex
		p.Offset = pageSize * (pageIndex - 1)
		p.Limit = pageSize
	}
	p.HasNext = p.PageIndex < p.PageCount
	p.HasPrevious = p.PageIndex > 1
	return p
}

// Empty reports whether the page selects no rows.
func (p Page) Empty() bool { return p.Limit == 0 }

// LimitArg is the page as an xmodel.Query limit pair.
func (p Page) LimitArg() [2]int { return [2]int{p.Offset, p.Limit} }
