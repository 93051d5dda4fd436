package listview

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotalPages(t *testing.T) {
	tests := []struct {
		n, pageSize, want int
	}{
		{0, 20, 1},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{5, 1, 5},
		{5, 0, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TotalPages(tt.n, tt.pageSize), "n=%d size=%d", tt.n, tt.pageSize)
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	testCases := []struct {
		name      string
		page      int
		pageSize  int
		wantItems []int
		wantPage  int
		wantTotal int
	}{
		{name: "first page", page: 1, pageSize: 2, wantItems: []int{1, 2}, wantPage: 1, wantTotal: 3},
		{name: "last partial page", page: 3, pageSize: 2, wantItems: []int{5}, wantPage: 3, wantTotal: 3},
		{name: "page past the end is clamped", page: 9, pageSize: 2, wantItems: []int{5}, wantPage: 3, wantTotal: 3},
		{name: "page below one is clamped", page: -4, pageSize: 2, wantItems: []int{1, 2}, wantPage: 1, wantTotal: 3},
		{name: "one big page", page: 1, pageSize: 100, wantItems: []int{1, 2, 3, 4, 5}, wantPage: 1, wantTotal: 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			got, page, total := Paginate(items, tc.page, tc.pageSize)

			// then
			assert.Equal(t, tc.wantItems, got)
			assert.Equal(t, tc.wantPage, page)
			assert.Equal(t, tc.wantTotal, total)
		})
	}
}

func TestPaginate_Empty(t *testing.T) {
	got, page, total := Paginate([]string{}, 3, 10)
	assert.Empty(t, got)
	assert.NotNil(t, got)
	assert.Equal(t, 1, page)
	assert.Equal(t, 1, total)
}
