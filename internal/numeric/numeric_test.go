package numeric

import "testing"

func TestIsNumeric(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"1", true},
		{"-1", true},
		{"1.5", true},
		{".5", true},
		{"1e3", true},
		{"-2.5E-3", true},
		{"0", true},
		{"", false},
		{"abc", false},
		{"1a", false},
		{"1.2.3", false},
		{" 1", false},
		{"Inf", false},
		{"-Inf", false},
		{"NaN", false},
		{"1e400", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsNumeric(tt.input); got != tt.want {
				t.Errorf("IsNumeric(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	v, ok := Parse("2.25")
	if !ok || v != 2.25 {
		t.Errorf("Parse(\"2.25\") = %v, %v; want 2.25, true", v, ok)
	}

	if _, ok := Parse("x"); ok {
		t.Error("Parse(\"x\") should fail")
	}
}
