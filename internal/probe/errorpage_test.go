package probe

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestDescribeBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "html title", body: "<html><head><title> Service\n Unavailable </title></head></html>", want: "Service Unavailable"},
		{name: "service exception", body: `<ServiceExceptionReport><ServiceException>bad layer</ServiceException></ServiceExceptionReport>`, want: "<ServiceExceptionReport>"},
		{name: "plain text", body: "  oops  ", want: "oops"},
		{name: "empty", body: "", want: "<empty>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := describeBody([]byte(tt.body))
			if !strings.HasPrefix(got, tt.want) {
				t.Fatalf("describeBody() = %q, want prefix %q", got, tt.want)
			}
		})
	}
}

func TestResponseSnippetTruncates(t *testing.T) {
	got := responseSnippet([]byte(strings.Repeat("x", maxSnippetBytes*2)))
	if len(got) != maxSnippetBytes {
		t.Fatalf("expected %d bytes, got %d", maxSnippetBytes, len(got))
	}
}

func TestResponseSnippetKeepsRunesWhole(t *testing.T) {
	// "x" shifts every two-byte rune so the byte limit lands mid-rune.
	body := "x" + strings.Repeat("é", maxSnippetBytes)

	got := responseSnippet([]byte(body))
	if !utf8.ValidString(got) {
		t.Fatalf("snippet is not valid UTF-8: %q", got[len(got)-4:])
	}
	if len(got) != maxSnippetBytes-1 {
		t.Fatalf("expected %d bytes, got %d", maxSnippetBytes-1, len(got))
	}
}
