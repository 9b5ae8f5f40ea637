package templates

import (
	"fmt"
	"net/url"
	"strings"
)

const errBadLinkFmt = "%s: %w"

// checkLink trims raw and requires an absolute http(s) URL.
func checkLink(raw, field string) (string, error) {
	link := strings.TrimSpace(raw)
	if link == "" {
		return link, required(field)
	}

	parsed, err := url.Parse(link)
	if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return link, fmt.Errorf(errBadLinkFmt, field, ErrBadLink)
	}

	return link, nil
}
