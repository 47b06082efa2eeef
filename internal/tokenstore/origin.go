package tokenstore

import (
	"fmt"
	"net/url"
	"strings"
)

// Origin returns the scheme://host[:port] origin of rawURL, lowercased.
// Tokens are scoped per origin.
func Origin(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q has no origin", rawURL)
	}
	return strings.ToLower(u.Scheme + "://" + u.Host), nil
}

// originFileReplacer maps origin characters that are awkward in file names.
var originFileReplacer = strings.NewReplacer("://", "_", ":", "_", "/", "_", "\\", "_")

// OriginFileName returns a file name derived from origin, e.g. "https_api.example.com_8443".
func OriginFileName(origin string) string {
	return originFileReplacer.Replace(origin)
}
