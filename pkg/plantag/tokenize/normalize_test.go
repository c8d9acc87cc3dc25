package tokenize

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"AGL01_PU02_PS03", "AGL01_PU02_PS03"},
		{"agl01-pu02.ps03", "AGL01_PU02_PS03"},
		{"  agl01 / pu02\\ps03 : eq04;me  ", "AGL01_PU02_PS03_EQ04_ME"},
		{"__AGL01--__PU02__", "AGL01_PU02"},
		{"a\tb\nc", "A_B_C"},
		{"-._/", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSplit(t *testing.T) {
	segs := Split("agl01-pu02")
	if len(segs) != 2 || segs[0] != "AGL01" || segs[1] != "PU02" {
		t.Errorf("unexpected segments %v", segs)
	}
	if segs := Split(" - "); segs != nil {
		t.Errorf("expected no segments, got %v", segs)
	}
}
