package core

import (
	"fmt"
	"strings"

	"github.com/kilupskalvis/relnotes/internal/models"
)

const buildResultsFormat = "%s/%s/_build/results?buildId=%s&view=logs"

// FooterLink picks the link the footer points at: the release page when
// known, otherwise the build results page. It returns "" when neither can
// be built.
func FooterLink(run models.PipelineRun) string {
	if run.ReleaseWebURL != "" {
		return run.ReleaseWebURL
	}
	if run.CollectionURI == "" || run.TeamProject == "" || run.BuildID == "" {
		return ""
	}
	collection := strings.TrimSuffix(run.CollectionURI, "/")
	return fmt.Sprintf(buildResultsFormat, collection, run.TeamProject, run.BuildID)
}

const upperHex = "0123456789ABCDEF"

// encodeURI percent-encodes every byte outside the URI reserved and
// unreserved sets, as a browser's encodeURI does. '%' itself is encoded.
func encodeURI(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case uriSafe(c):
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperHex[c>>4])
			b.WriteByte(upperHex[c&0x0f])
		}
	}
	return b.String()
}

func uriSafe(c byte) bool {
	if isASCIILetter(c) || isASCIIDigit(c) {
		return true
	}
	return strings.IndexByte(";,/?:@&=+$-_.!~*'()#", c) >= 0
}
