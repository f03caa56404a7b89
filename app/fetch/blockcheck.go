package fetch

import (
	"fmt"
	"strconv"
	"strings"
)

// PayloadKind is the payload shape an upstream request expects back.
type PayloadKind int

const (
	PayloadJSON PayloadKind = iota
	PayloadXML
)

// blockFingerprints are markers of edge/CDN challenge pages that arrive
// with a 200 status. Matched case-insensitively against the body.
var blockFingerprints = []string{
	"cf-ray",
	"cloudflare",
	"attention required",
	"just a moment",
	"403 forbidden",
	"access denied",
	"blocked",
}

// htmlMarkers indicate a full HTML document where JSON or XML was expected.
// Anti-bot pages render HTML instead of the requested payload.
var htmlMarkers = []string{"<html", "<!doctype"}

// CheckBlocked classifies a raw upstream response as usable content or a
// block artifact. It is a heuristic classifier, not a protocol parser, and
// fails toward "blocked" on ambiguous input: a false "usable" would
// propagate a corrupt snapshot.
func CheckBlocked(status int, contentType string, body []byte, want PayloadKind) (string, bool) {
	if status >= 400 {
		return fmt.Sprintf("upstream status %d", status), true
	}

	lower := strings.ToLower(string(body))

	for _, marker := range htmlMarkers {
		if strings.Contains(lower, marker) {
			return "HTML document where " + want.String() + " was expected", true
		}
	}

	for _, fingerprint := range blockFingerprints {
		if strings.Contains(lower, fingerprint) {
			return "block fingerprint " + strconv.Quote(fingerprint), true
		}
	}

	if contentType != "" && !payloadKindMatches(contentType, want) {
		return fmt.Sprintf("content type %q does not match expected %s", contentType, want), true
	}

	return "", false
}

func payloadKindMatches(contentType string, want PayloadKind) bool {
	ct := strings.ToLower(contentType)
	switch want {
	case PayloadJSON:
		return strings.Contains(ct, "json")
	case PayloadXML:
		return strings.Contains(ct, "xml") || strings.Contains(ct, "rss")
	}
	return false
}

func (k PayloadKind) String() string {
	switch k {
	case PayloadJSON:
		return "JSON"
	case PayloadXML:
		return "XML"
	}
	return "unknown"
}
