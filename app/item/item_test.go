package item

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateTitle(t *testing.T) {
	long := strings.Repeat("가", 500)
	got := TruncateTitle(long)
	if utf8.RuneCountInString(got) != MaxTitleLen {
		t.Errorf("expected %d runes, got %d", MaxTitleLen, utf8.RuneCountInString(got))
	}

	short := "짧은 제목"
	if TruncateTitle(short) != short {
		t.Errorf("short title should be unchanged")
	}
}

func TestTruncateDescription(t *testing.T) {
	long := strings.Repeat("a", 1000)
	got := TruncateDescription(long)
	if len(got) != MaxDescriptionLen {
		t.Errorf("expected %d chars, got %d", MaxDescriptionLen, len(got))
	}
}

func TestCleanText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  네이버   블로그\n리뷰  ", "네이버 블로그 리뷰"},
		{"", ""},
		{"\t\n ", ""},
		{"single", "single"},
	}

	for _, c := range cases {
		if got := CleanText(c.in); got != c.want {
			t.Errorf("CleanText(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
