package models

// Commit is an immutable snapshot of a commit fetched from the remote.
type Commit struct {
	SHA     string `json:"sha" yaml:"sha"`
	Message string `json:"message" yaml:"message"`
}

// ShortSHA returns a shortened commit SHA (first 7 characters)
func (c *Commit) ShortSHA() string {
	if len(c.SHA) > 7 {
		return c.SHA[:7]
	}
	return c.SHA
}

// CommitLogEntry pairs a commit with the issues its message references.
type CommitLogEntry struct {
	Commit   Commit    `json:"commit" yaml:"commit"`
	IssueIDs *IssueSet `json:"issues" yaml:"issues"`
}
