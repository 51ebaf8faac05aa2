package core

import "testing"

func TestTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "female", want: "Female"},
		{in: "MALE", want: "Male"},
		{in: "accepted", want: "Accepted"},
		{in: "grade one sampaguita", want: "Grade One Sampaguita"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Title(tt.in); got != tt.want {
				t.Errorf("Title(%q) = %q; want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanString(t *testing.T) {
	if got := CleanString("  Sampaguita \t"); got != "Sampaguita" {
		t.Errorf("CleanString() = %q", got)
	}
	if got := CleanString(" MReyes ", true); got != "mreyes" {
		t.Errorf("CleanString(lower) = %q", got)
	}
}
