package textutil

import "testing"

func TestSanitizeUploadName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"clip1.mp4", "clip1.mp4"},
		{"  holiday video.mkv ", "holiday video.mkv"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\clip.mp4`, "clip.mp4"},
		{".hidden.mp4", "hidden.mp4"},
		{"what?.mp4", "what.mp4"},
		{"a:b.mp4", "a-b.mp4"},
		{"..", ""},
		{"", ""},
		{"/", ""},
		{"cafe\u0301.mp4", "caf\u00e9.mp4"},
	}
	for _, tt := range tests {
		if got := SanitizeUploadName(tt.in); got != tt.want {
			t.Errorf("SanitizeUploadName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTernary(t *testing.T) {
	if Ternary(true, "a", "b") != "a" || Ternary(false, 1, 2) != 2 {
		t.Fatal("unexpected ternary result")
	}
}
