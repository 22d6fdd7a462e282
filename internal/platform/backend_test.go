package platform

import "testing"

func TestOnDesktop(t *testing.T) {
	cases := []struct {
		name       string
		winDesktop int
		current    int
		want       bool
	}{
		{"same desktop", 1, 1, true},
		{"other desktop", 0, 1, false},
		{"sticky belongs to no space", -1, 1, false},
		{"sticky on first desktop", -1, 0, false},
	}
	for _, tc := range cases {
		if got := OnDesktop(tc.winDesktop, tc.current); got != tc.want {
			t.Fatalf("%s: OnDesktop(%d, %d) = %v, want %v",
				tc.name, tc.winDesktop, tc.current, got, tc.want)
		}
	}
}
