package helpers

import (
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestCalculateOffsetLimit(t *testing.T) {
	tests := []struct {
		page, size int
		offset     uint64
		limit      int
	}{
		{1, 10, 0, 10},
		{3, 20, 40, 20},
		{0, 5, 0, 5},
		{2, 0, 10, DefaultPageSize},
		{2, MaxPageSize + 1, 10, DefaultPageSize},
	}
	for _, tt := range tests {
		offset, limit := CalculateOffsetLimit(tt.page, tt.size)
		if offset != tt.offset || limit != tt.limit {
			t.Errorf("CalculateOffsetLimit(%d, %d) = %d, %d", tt.page, tt.size, offset, limit)
		}
	}
}

func TestNewPaginationInfo(t *testing.T) {
	tests := []struct {
		name              string
		total             int64
		page, size        int
		wantPage, wantAll int
	}{
		{"empty first page", 0, 1, 10, 1, 1},
		{"partial last page", 21, 2, 10, 2, 3},
		{"page past the end is clamped", 5, 9, 10, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := NewPaginationInfo(tt.total, tt.page, tt.size)
			if info.CurrentPage != tt.wantPage || info.TotalPages != tt.wantAll || info.TotalItems != tt.total {
				t.Fatalf("got %+v", info)
			}
		})
	}
}

func TestParsePaginationParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/courses?page=abc&size=500", nil)

	page, size := ParsePaginationParams(c)
	if page != DefaultPage || size != DefaultPageSize {
		t.Fatalf("got page=%d size=%d", page, size)
	}
}

func TestPaginateSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	tests := []struct {
		offset uint64
		limit  int
		want   []int
	}{
		{0, 2, []int{1, 2}},
		{4, 10, []int{5}},
		{5, 1, []int{}},
		{1, 0, []int{2, 3, 4, 5}},
	}
	for _, tt := range tests {
		if got := PaginateSlice(items, tt.offset, tt.limit); !slices.Equal(got, tt.want) {
			t.Errorf("PaginateSlice(%d, %d) = %v", tt.offset, tt.limit, got)
		}
	}
}

func TestBackoff(t *testing.T) {
	base := 50 * time.Millisecond
	tests := []struct {
		attempt int
		max     time.Duration
		want    time.Duration
	}{
		{0, 0, 0},
		{1, 0, base},
		{3, 0, 4 * base},
		{5, 300 * time.Millisecond, 300 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := Backoff(base, tt.max, tt.attempt); got != tt.want {
			t.Errorf("Backoff(attempt=%d, max=%v) = %v, want %v", tt.attempt, tt.max, got, tt.want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	if got := ParseDuration("2m", time.Second); got != 2*time.Minute {
		t.Errorf("got %v", got)
	}
	if got := ParseDuration("two minutes", time.Second); got != time.Second {
		t.Errorf("expected default, got %v", got)
	}
}
