package models

// Release is the subset of a published release the change log needs.
type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url,omitempty"`
	Draft   bool   `json:"draft"`
}

// Tag is a named pointer to a commit.
type Tag struct {
	Name      string `json:"name"`
	CommitSHA string `json:"commit_sha"`
}
