package model

import "testing"

func TestCookiePath(t *testing.T) {
	tests := []struct {
		basePath string
		want     string
	}{
		{"", "/"},
		{"/retina", "/retina/"},
		{"/a/b", "/a/b/"},
	}
	for _, tt := range tests {
		t.Run(tt.basePath, func(t *testing.T) {
			if got := (AppConfig{BasePath: tt.basePath}).CookiePath(); got != tt.want {
				t.Errorf("CookiePath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseSection(t *testing.T) {
	for _, sec := range Sections() {
		got, ok := ParseSection(string(sec))
		if !ok || got != sec {
			t.Errorf("ParseSection(%q) = %q, %v", sec, got, ok)
		}
	}
	if _, ok := ParseSection("favicon.ico"); ok {
		t.Error("unknown section should not parse")
	}
}
