package utils

import "testing"

func TestParseAddr(t *testing.T) {
	tests := []struct {
		input string
		user  string
		host  string
		port  uint16
	}{
		{"root@10.0.0.1:22", "root", "10.0.0.1", 22},
		{"deploy@web01.example.com", "deploy", "web01.example.com", 0},
		{"10.0.0.1:2222", "", "10.0.0.1", 2222},
		{"10.0.0.1", "", "10.0.0.1", 0},
	}
	for _, tt := range tests {
		user, host, port := ParseAddr(tt.input)
		if user != tt.user || host != tt.host || port != tt.port {
			t.Errorf("ParseAddr(%q) = (%q, %q, %d), want (%q, %q, %d)",
				tt.input, user, host, port, tt.user, tt.host, tt.port)
		}
	}
}

func TestParsePort(t *testing.T) {
	if got := ParsePort(""); got != 0 {
		t.Errorf("empty = %d, want 0", got)
	}
	if got := ParsePort("22"); got != 22 {
		t.Errorf("22 = %d", got)
	}
	// 超出 uint16 或非数字都按 0 处理
	if got := ParsePort("70000"); got != 0 {
		t.Errorf("70000 = %d, want 0", got)
	}
	if got := ParsePort("ssh"); got != 0 {
		t.Errorf("ssh = %d, want 0", got)
	}
}
