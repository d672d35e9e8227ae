package core

import (
	"fmt"
	"strings"

	"github.com/kilupskalvis/relnotes/internal/models"
)

// DefaultVisibleLimit is how many entries are shown before the collapsible
// section.
const DefaultVisibleLimit = 10

const (
	changeLogTitle       = "Changes"
	seeMoreText          = "See more"
	changeLogTitleFormat = "\n\n## %s:\n\n"
	seeMoreFormat        = "<details><summary><b>%s</b></summary>\n\n%s\n%s</details>"
	autoGeneratedFormat  = "This list of changes was [auto generated](%s)."
)

// RenderChangeLog formats entries as markdown. The first visibleLimit
// entries are listed directly; the rest go into a collapsible section that
// also holds the footer. No entries render as "".
func RenderChangeLog(entries []models.CommitLogEntry, repository string, visibleLimit int, footerLink string) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = RenderEntry(e, repository)
	}
	return renderSections(lines, visibleLimit, footerLink)
}

// RenderIssueChangeLog formats issues as "* #N: title" lines, split the same
// way as RenderChangeLog.
func RenderIssueChangeLog(issues []models.Issue, visibleLimit int, footerLink string) string {
	lines := make([]string, len(issues))
	for i, issue := range issues {
		lines[i] = fmt.Sprintf("* #%d: %s", issue.Number, issue.Title)
	}
	return renderSections(lines, visibleLimit, footerLink)
}

func renderSections(lines []string, visibleLimit int, footerLink string) string {
	if len(lines) == 0 {
		return ""
	}
	if visibleLimit <= 0 {
		visibleLimit = DefaultVisibleLimit
	}

	var visible, hidden strings.Builder
	for i, line := range lines {
		if i < visibleLimit {
			visible.WriteString(line + "\n")
		} else {
			hidden.WriteString(line + "\n")
		}
	}

	footer := FooterText(footerLink)
	out := fmt.Sprintf(changeLogTitleFormat, changeLogTitle) + visible.String()
	if hidden.Len() == 0 {
		return out + "\n" + footer
	}
	return out + fmt.Sprintf(seeMoreFormat, seeMoreText, hidden.String(), footer)
}

// RenderEntry formats one change log line:
//
//	* <sha> <first line> [ #4, #5 ]
//
// References already written in the first line are left out of the
// bracket, and the bracket is omitted when nothing is left.
func RenderEntry(e models.CommitLogEntry, repository string) string {
	title := FirstLine(e.Commit.Message)
	line := "* " + e.Commit.SHA + " " + title

	var refs []string
	for _, id := range e.IssueIDs.Items() {
		ref := IssueReferenceText(id, repository)
		if strings.Contains(title, ref) {
			continue
		}
		refs = append(refs, " "+ref)
	}
	if len(refs) > 0 {
		line += " [" + strings.Join(refs, ",") + " ]"
	}
	return line
}

// IssueReferenceText writes id as "#N" for the change log's own repository
// and "owner/repo#N" otherwise.
func IssueReferenceText(id models.RepositoryIssueID, repository string) string {
	if id.Repository == repository {
		return models.IssueSeparator + id.IssueID
	}
	return id.String()
}

// FirstLine returns the first line of a commit message after trimming
// surrounding whitespace.
func FirstLine(message string) string {
	message = strings.TrimSpace(message)
	if i := strings.IndexAny(message, "\r\n\u2028\u2029"); i >= 0 {
		return message[:i]
	}
	return message
}

// FooterText is the attribution line, or "" without a link.
func FooterText(link string) string {
	if link == "" {
		return ""
	}
	return fmt.Sprintf(autoGeneratedFormat, encodeURI(link))
}
