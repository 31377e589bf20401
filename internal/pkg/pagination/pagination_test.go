package pagination

import (
	"reflect"
	"strconv"
	"testing"
)

func TestNewParams(t *testing.T) {
	tests := []struct {
		page, limit                     int
		wantPage, wantLimit, wantOffset int
	}{
		{1, 10, 1, 10, 0},
		{3, 10, 3, 10, 20},
		{0, 0, 1, DefaultLimit, 0},
		{-2, 1000, 1, MaxLimit, 0},
	}

	for _, tt := range tests {
		p := NewParams(tt.page, tt.limit)
		if p.Page != tt.wantPage || p.Limit != tt.wantLimit || p.Offset != tt.wantOffset {
			t.Errorf("NewParams(%d, %d) = %+v", tt.page, tt.limit, p)
		}
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		page, limit int
		want        []int
	}{
		{1, 2, []int{1, 2}},
		{3, 2, []int{5}},
		{4, 2, []int{}},
		{1, 10, []int{1, 2, 3, 4, 5}},
	}

	for _, tt := range tests {
		got := Paginate(items, NewParams(tt.page, tt.limit))
		if !reflect.DeepEqual(got.Data, tt.want) {
			t.Errorf("Paginate(page=%d, limit=%d) = %v, want %v", tt.page, tt.limit, got.Data, tt.want)
		}
		if got.Meta.Total != 5 {
			t.Errorf("Meta.Total = %d, want 5", got.Meta.Total)
		}
	}
}

func TestMapKeepsMeta(t *testing.T) {
	p := Paginate([]int{1, 2, 3}, NewParams(2, 2))
	got := Map(p, strconv.Itoa)
	if !reflect.DeepEqual(got.Data, []string{"3"}) {
		t.Errorf("Map() data = %v", got.Data)
	}
	if got.Meta != p.Meta {
		t.Errorf("Map() meta = %+v, want %+v", got.Meta, p.Meta)
	}
}

func TestGetMeta(t *testing.T) {
	m := GetMeta(NewParams(2, 2), 5)
	if m.TotalPages != 3 || !m.HasNext || !m.HasPrev {
		t.Errorf("GetMeta() = %+v", m)
	}

	m = GetMeta(NewParams(1, 20), 0)
	if m.TotalPages != 0 || m.HasNext || m.HasPrev {
		t.Errorf("GetMeta(empty) = %+v", m)
	}
}
