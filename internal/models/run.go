package models

import "time"

// PipelineRun describes the CI run that generated a change log.
// It only feeds the footer link.
type PipelineRun struct {
	ReleaseWebURL string `json:"release_web_url,omitempty"`
	CollectionURI string `json:"collection_uri,omitempty"`
	TeamProject   string `json:"team_project,omitempty"`
	BuildID       string `json:"build_id,omitempty"`
}

// Run is a stored record of one generated change log.
type Run struct {
	ID          string    `json:"id"`
	Repository  string    `json:"repository"`
	Target      string    `json:"target"`
	StartCommit string    `json:"start_commit"`
	EndCommit   string    `json:"end_commit"`
	CommitCount int       `json:"commit_count"`
	ChangeLog   string    `json:"changelog"`
	CreatedAt   time.Time `json:"created_at"`
}

// ShortID returns the first 8 characters of the run ID.
func (r *Run) ShortID() string {
	if len(r.ID) > 8 {
		return r.ID[:8]
	}
	return r.ID
}
