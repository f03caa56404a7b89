package fetch

import (
	"testing"
)

func TestCheckBlocked(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		want        PayloadKind
		blocked     bool
	}{
		{
			name:        "valid JSON array",
			status:      200,
			contentType: "application/json; charset=utf-8",
			body:        `[{"id":1}]`,
			want:        PayloadJSON,
			blocked:     false,
		},
		{
			name:        "valid RSS document",
			status:      200,
			contentType: "application/rss+xml",
			body:        `<?xml version="1.0"?><rss version="2.0"><channel></channel></rss>`,
			want:        PayloadXML,
			blocked:     false,
		},
		{
			name:    "missing content type is not a block signal",
			status:  200,
			body:    `[{"id":1}]`,
			want:    PayloadJSON,
			blocked: false,
		},
		{
			name:        "error status",
			status:      403,
			contentType: "application/json",
			body:        `[]`,
			want:        PayloadJSON,
			blocked:     true,
		},
		{
			name:        "HTML document with 200 status",
			status:      200,
			contentType: "application/json",
			body:        `<html><body>Checking your browser</body></html>`,
			want:        PayloadJSON,
			blocked:     true,
		},
		{
			name:        "doctype marker",
			status:      200,
			contentType: "application/json",
			body:        `<!DOCTYPE html><head></head>`,
			want:        PayloadJSON,
			blocked:     true,
		},
		{
			name:        "edge proxy ray fingerprint",
			status:      200,
			contentType: "application/json",
			body:        `error code 1020, cf-ray: 8a2f3b`,
			want:        PayloadJSON,
			blocked:     true,
		},
		{
			name:        "explicit forbidden text",
			status:      200,
			contentType: "application/json",
			body:        `403 Forbidden`,
			want:        PayloadJSON,
			blocked:     true,
		},
		{
			name:        "content type mismatch for JSON",
			status:      200,
			contentType: "text/plain",
			body:        `some text`,
			want:        PayloadJSON,
			blocked:     true,
		},
		{
			name:        "content type mismatch for XML",
			status:      200,
			contentType: "application/json",
			body:        `{"not":"a feed"}`,
			want:        PayloadXML,
			blocked:     true,
		},
		{
			name:        "text/xml accepted for feeds",
			status:      200,
			contentType: "text/xml; charset=UTF-8",
			body:        `<?xml version="1.0"?><rss></rss>`,
			want:        PayloadXML,
			blocked:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, blocked := CheckBlocked(tt.status, tt.contentType, []byte(tt.body), tt.want)
			if blocked != tt.blocked {
				t.Errorf("CheckBlocked() blocked = %v, want %v (reason: %q)", blocked, tt.blocked, reason)
			}
			if blocked && reason == "" {
				t.Error("Expected a diagnostic reason for a blocked response")
			}
			if !blocked && reason != "" {
				t.Errorf("Expected no reason for a usable response, got %q", reason)
			}
		})
	}
}
