package embedid

import "testing"

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=3", "dQw4w9WgXcQ", true},
		{"short url", "youtu.be/abc12345678 share", "abc12345678", true},
		{"embed url", "youtube.com/embed/Zx_-9aBcDeF", "Zx_-9aBcDeF", true},
		{"bare token", "now playing abc12345678", "abc12345678", true},
		{"url wins over earlier bare token", "averylongword youtu.be/abc12345678", "abc12345678", true},
		{"digits only rejected", "12345678901", "", false},
		{"too short", "abc123", "", false},
		{"empty", "   ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("Extract(%q) = %q,%v want %q,%v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
