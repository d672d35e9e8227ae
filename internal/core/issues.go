package core

import (
	"regexp"

	"github.com/kilupskalvis/relnotes/internal/models"
)

// issueReferencePattern matches "#12", "GH-12" and "owner/repo#12". Word
// boundaries around a match are checked separately so that neighbouring
// references do not consume each other's delimiters.
var issueReferencePattern = regexp.MustCompile(`([a-z0-9_]+/[a-zA-Z0-9_.\-]+)?(?:#|[Gg][Hh]-)([0-9]+)`)

// ExtractIssueReferences returns the issue references in message in order of
// first appearance. Bare references are attributed to defaultRepository.
func ExtractIssueReferences(message, defaultRepository string) *models.IssueSet {
	set := &models.IssueSet{}

	for pos := 0; pos < len(message); {
		loc := issueReferencePattern.FindStringSubmatchIndex(message[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]

		if !boundaryBefore(message, start) || !boundaryAfter(message, end) {
			pos = start + 1
			continue
		}

		repo := defaultRepository
		if loc[2] >= 0 {
			repo = message[pos+loc[2] : pos+loc[3]]
		}
		set.Add(models.RepositoryIssueID{
			Repository: repo,
			IssueID:    message[pos+loc[4] : pos+loc[5]],
		})
		pos = end
	}

	return set
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	c := s[i-1]
	return !(isASCIILetter(c) || isASCIIDigit(c) || c == '_')
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	c := s[i]
	return !(isASCIILetter(c) || c == '_')
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isASCIIDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
