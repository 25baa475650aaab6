package classifier

import "testing"

func TestLastDim(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		dims []int64
		want int64
	}{
		{"batch and width", []int64{1, 659}, 659},
		{"dynamic batch", []int64{-1, 659}, 659},
		{"scalar-ish single dim", []int64{659}, 659},
		{"fully dynamic", []int64{-1, -1}, -1},
		{"no dims", nil, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := lastDim(tt.dims); got != tt.want {
				t.Errorf("lastDim(%v) = %d, want %d", tt.dims, got, tt.want)
			}
		})
	}
}
