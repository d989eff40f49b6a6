package catalog

import "testing"

func TestPaginationClamp(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		in         Pagination
		wantLimit  int
		wantOffset int
	}{
		{"unset limit falls back to default", Pagination{Limit: -1}, 50, 0},
		{"explicit zero clamps to one, not default", Pagination{Limit: 0}, 1, 0},
		{"within range passes through", Pagination{Limit: 10}, 10, 0},
		{"over max page size clamps down", Pagination{Limit: 1000}, 100, 0},
		{"negative offset clamps to zero", Pagination{Limit: 10, Offset: -5}, 10, 0},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := tc.in.Clamp(50, 100)
			if got.Limit != tc.wantLimit {
				t.Errorf("Limit = %d, want %d", got.Limit, tc.wantLimit)
			}
			if got.Offset != tc.wantOffset {
				t.Errorf("Offset = %d, want %d", got.Offset, tc.wantOffset)
			}
		})
	}
}
