package natsadapter

import "testing"

func TestSubjectToken(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"000", "000"},
		{"", "_"},
		{"a.b", "a_b"},
		{"x>y*z", "x_y_z"},
		{"user 7", "user_7"},
	}
	for _, tt := range tests {
		if got := subjectToken(tt.in); got != tt.want {
			t.Errorf("subjectToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
