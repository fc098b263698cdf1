package blog

import "testing"

func TestNewPage(t *testing.T) {
	tests := []struct {
		name               string
		count, index, size int
		want               Page
	}{
		{"empty", 0, 1, 10, Page{PageIndex: 1, PageSize: 10}},
		{"first of three", 91, 1, 40, Page{ItemCount: 91, PageIndex: 1, PageSize: 40, PageCount: 3, Limit: 40, HasNext: true}},
		{"last", 91, 3, 40, Page{ItemCount: 91, PageIndex: 3, PageSize: 40, PageCount: 3, Offset: 80, Limit: 40, HasPrevious: true}},
		{"past the end", 91, 4, 40, Page{ItemCount: 91, PageIndex: 1, PageSize: 40, PageCount: 3, HasNext: true}},
		{"exact fit", 20, 2, 10, Page{ItemCount: 20, PageIndex: 2, PageSize: 10, PageCount: 2, Offset: 10, Limit: 10, HasPrevious: true}},
		{"defaults", 5, 0, 0, Page{ItemCount: 5, PageIndex: 1, PageSize: DefaultPageSize, PageCount: 1, Limit: DefaultPageSize}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewPage(tt.count, tt.index, tt.size)
			if got != tt.want {
				t.Fatalf("NewPage(%d, %d, %d)\n got=%+v\nwant=%+v", tt.count, tt.index, tt.size, got, tt.want)
			}
		})
	}
}

func TestPage_LimitArg(t *testing.T) {
	p := NewPage(25, 2, 10)
	if got := p.LimitArg(); got != [2]int{10, 10} {
		t.Fatalf("LimitArg = %v", got)
	}
	if !NewPage(0, 1, 10).Empty() {
		t.Fatal("empty listing should select nothing")
	}
}
