// Package pagination walks cursor-linked listings of the release API.
package pagination

import (
	"fmt"
	"regexp"
	"strings"
)

// RelNext is the Link header relation of the following page.
const RelNext = "next"

var (
	linkURLPattern = regexp.MustCompile(`^<(.*)>$`)
	linkRelPattern = regexp.MustCompile(`^rel="(.*)"$`)
)

// MalformedLinkError reports a Link header entry without a URL or rel segment.
type MalformedLinkError struct {
	Entry  string
	Reason string
}

func (e *MalformedLinkError) Error() string {
	return fmt.Sprintf("malformed pagination header entry %q: %s", e.Entry, e.Reason)
}

// ParseLinkHeader maps relation names to URLs. An empty header is a
// single-page result and yields an empty map.
//
//	<https://api.github.com/repositories/1/tags?page=2>; rel="next", <...?page=5>; rel="last"
func ParseLinkHeader(header string) (map[string]string, error) {
	links := make(map[string]string)
	if strings.TrimSpace(header) == "" {
		return links, nil
	}

	for _, entry := range strings.Split(header, ",") {
		sections := strings.Split(entry, ";")
		if len(sections) < 2 {
			return nil, &MalformedLinkError{Entry: entry, Reason: "expected '<url>; rel=\"name\"'"}
		}

		urlMatch := linkURLPattern.FindStringSubmatch(strings.TrimSpace(sections[0]))
		if urlMatch == nil {
			return nil, &MalformedLinkError{Entry: entry, Reason: "missing <url>"}
		}

		// Other attributes may sit between the URL and rel.
		var rel string
		found := false
		for _, section := range sections[1:] {
			if m := linkRelPattern.FindStringSubmatch(strings.TrimSpace(section)); m != nil {
				rel = m[1]
				found = true
				break
			}
		}
		if !found {
			return nil, &MalformedLinkError{Entry: entry, Reason: "missing rel"}
		}

		links[rel] = urlMatch[1]
	}

	return links, nil
}
