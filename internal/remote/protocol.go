// Package remote defines the release API contract, its HTTP implementation,
// and the wire types used to decode API bodies.
package remote

import (
	"github.com/google/go-github/v75/github"
	"github.com/kilupskalvis/relnotes/internal/models"
)

// Comparison status reported when the head is older than the base.
const StatusBehind = "behind"

// Comparison is a decoded compare result. Commits are oldest first.
type Comparison struct {
	Status  string
	Commits []models.Commit
}

// DecodeRelease decodes a single release body.
func DecodeRelease(r *Response) (models.Release, error) {
	var rel github.RepositoryRelease
	if err := r.Decode(&rel); err != nil {
		return models.Release{}, err
	}
	return releaseFromGitHub(&rel), nil
}

// DecodeReleases decodes a page of releases.
func DecodeReleases(body []byte) ([]models.Release, error) {
	var page []*github.RepositoryRelease
	if err := (&Response{Body: body}).Decode(&page); err != nil {
		return nil, err
	}
	out := make([]models.Release, 0, len(page))
	for _, rel := range page {
		out = append(out, releaseFromGitHub(rel))
	}
	return out, nil
}

// DecodeTags decodes a page of tags.
func DecodeTags(body []byte) ([]models.Tag, error) {
	var page []*github.RepositoryTag
	if err := (&Response{Body: body}).Decode(&page); err != nil {
		return nil, err
	}
	out := make([]models.Tag, 0, len(page))
	for _, t := range page {
		out = append(out, models.Tag{
			Name:      t.GetName(),
			CommitSHA: t.GetCommit().GetSHA(),
		})
	}
	return out, nil
}

// DecodeCommits decodes a page of commits.
func DecodeCommits(body []byte) ([]models.Commit, error) {
	var page []*github.RepositoryCommit
	if err := (&Response{Body: body}).Decode(&page); err != nil {
		return nil, err
	}
	return commitsFromGitHub(page), nil
}

// DecodeBranchHead returns the head commit SHA of a branch body.
func DecodeBranchHead(r *Response) (string, error) {
	var b github.Branch
	if err := r.Decode(&b); err != nil {
		return "", err
	}
	return b.GetCommit().GetSHA(), nil
}

// DecodeIssue decodes a single issue body.
func DecodeIssue(r *Response) (models.Issue, error) {
	var issue github.Issue
	if err := r.Decode(&issue); err != nil {
		return models.Issue{}, err
	}
	return models.Issue{Number: issue.GetNumber(), Title: issue.GetTitle()}, nil
}

// DecodeComparison decodes a compare body.
func DecodeComparison(r *Response) (*Comparison, error) {
	var cmp github.CommitsComparison
	if err := r.Decode(&cmp); err != nil {
		return nil, err
	}
	return &Comparison{
		Status:  cmp.GetStatus(),
		Commits: commitsFromGitHub(cmp.Commits),
	}, nil
}

func releaseFromGitHub(rel *github.RepositoryRelease) models.Release {
	return models.Release{
		TagName: rel.GetTagName(),
		HTMLURL: rel.GetHTMLURL(),
		Draft:   rel.GetDraft(),
	}
}

func commitsFromGitHub(page []*github.RepositoryCommit) []models.Commit {
	out := make([]models.Commit, 0, len(page))
	for _, c := range page {
		out = append(out, models.Commit{
			SHA:     c.GetSHA(),
			Message: c.GetCommit().GetMessage(),
		})
	}
	return out
}
