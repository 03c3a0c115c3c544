package osu

import "testing"

func TestColumnXRoundTrip(t *testing.T) {
	for n := 1; n <= 18; n++ {
		for c := 0; c < n; c++ {
			x := XFromColumn(c, n)
			if x < 0 || x >= 512 {
				t.Fatalf("n=%d c=%d: x=%d outside playfield", n, c, x)
			}
			if got := ColumnFromX(x, n); got != c {
				t.Fatalf("n=%d c=%d: ColumnFromX(%d) = %d", n, c, x, got)
			}
		}
	}
}

func TestColumnFromXClamps(t *testing.T) {
	cases := []struct {
		x, n, want int
	}{
		{-10, 4, 0},
		{0, 4, 0},
		{511, 4, 3},
		{512, 4, 3},
		{900, 7, 6},
		{64, 4, 0},
		{192, 4, 1},
		{320, 4, 2},
		{448, 4, 3},
	}
	for _, tc := range cases {
		if got := ColumnFromX(tc.x, tc.n); got != tc.want {
			t.Fatalf("ColumnFromX(%d, %d) = %d, want %d", tc.x, tc.n, got, tc.want)
		}
	}
}

func TestXFromColumnFourKeys(t *testing.T) {
	want := []int{64, 192, 320, 448}
	for c, x := range want {
		if got := XFromColumn(c, 4); got != x {
			t.Fatalf("XFromColumn(%d, 4) = %d, want %d", c, got, x)
		}
	}
}
