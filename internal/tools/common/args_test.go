package common

import "testing"

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"jane_doe", "jane_doe"},
		{"@jane_doe", "jane_doe"},
		{"  @jane_doe  ", "jane_doe"},
		{"@", ""},
		{"", ""},
		{"@@double", "double"},
		{"@@@stacked", "stacked"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeUsername(tt.input); got != tt.expected {
				t.Errorf("NormalizeUsername(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestThreadFromArgs(t *testing.T) {
	if got := ThreadFromArgs(map[string]interface{}{"thread_id": "123"}); got != "123" {
		t.Errorf("ThreadFromArgs = %q, want %q", got, "123")
	}
	if got := ThreadFromArgs(map[string]interface{}{}); got != "" {
		t.Errorf("ThreadFromArgs on empty args = %q, want empty", got)
	}
	if got := ThreadFromArgs(map[string]interface{}{"thread_id": 42}); got != "" {
		t.Errorf("ThreadFromArgs on non-string = %q, want empty", got)
	}
}

func TestUsernameFromArgs(t *testing.T) {
	if got := UsernameFromArgs(map[string]interface{}{"username": "@jane"}); got != "jane" {
		t.Errorf("UsernameFromArgs = %q, want %q", got, "jane")
	}
	if got := UsernameFromArgs(map[string]interface{}{}); got != "" {
		t.Errorf("UsernameFromArgs on empty args = %q, want empty", got)
	}
}

func TestLimitFromArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]interface{}
		def      int
		max      int
		expected int
	}{
		{"absent", map[string]interface{}{}, 20, 100, 20},
		{"in range", map[string]interface{}{"limit": float64(10)}, 20, 100, 10},
		{"above max", map[string]interface{}{"limit": float64(500)}, 20, 100, 100},
		{"zero", map[string]interface{}{"limit": float64(0)}, 20, 100, 20},
		{"negative", map[string]interface{}{"limit": float64(-3)}, 20, 100, 20},
		{"not a number", map[string]interface{}{"limit": "ten"}, 20, 100, 20},
		{"uncapped when max is zero", map[string]interface{}{"limit": float64(500)}, 20, 0, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LimitFromArgs(tt.args, "limit", tt.def, tt.max); got != tt.expected {
				t.Errorf("LimitFromArgs = %d, want %d", got, tt.expected)
			}
		})
	}
}
