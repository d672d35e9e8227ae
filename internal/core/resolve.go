package core

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"github.com/kilupskalvis/relnotes/internal/models"
	"github.com/kilupskalvis/relnotes/internal/remote"
	"github.com/kilupskalvis/relnotes/internal/remote/pagination"
)

// DefaultFallbackBound is how far back the no-release fallback walks.
const DefaultFallbackBound = 250

// StartMode selects which previous release anchors the change log.
type StartMode string

const (
	// StartLastFullRelease uses the latest published release.
	StartLastFullRelease StartMode = "last-full-release"
	// StartLastNonDraftRelease uses the newest release that is not a draft.
	StartLastNonDraftRelease StartMode = "last-non-draft-release"
	// StartLastNonDraftReleaseByTag uses the newest non-draft release whose
	// tag fully matches a pattern.
	StartLastNonDraftReleaseByTag StartMode = "last-non-draft-release-by-tag"
)

// ParseStartMode validates a start mode name. An empty name selects
// StartLastFullRelease.
func ParseStartMode(s string) (StartMode, error) {
	switch StartMode(s) {
	case "", StartLastFullRelease:
		return StartLastFullRelease, nil
	case StartLastNonDraftRelease, StartLastNonDraftReleaseByTag:
		return StartMode(s), nil
	default:
		return "", fmt.Errorf("invalid start mode %q (want %s, %s or %s)",
			s, StartLastFullRelease, StartLastNonDraftRelease, StartLastNonDraftReleaseByTag)
	}
}

// RangeOptions configures start commit resolution.
type RangeOptions struct {
	Mode StartMode
	// TagPattern is a regular expression the whole tag must match.
	// Only used by StartLastNonDraftReleaseByTag.
	TagPattern string
	// FallbackBound caps how many commits the no-release fallback walks back.
	FallbackBound int
}

func (o RangeOptions) bound() int {
	if o.FallbackBound <= 0 {
		return DefaultFallbackBound
	}
	return o.FallbackBound
}

// TagNotFoundError is returned when a release names a tag that the tag
// listing does not contain.
type TagNotFoundError struct {
	Tag string
}

func (e *TagNotFoundError) Error() string {
	return fmt.Sprintf("tag %q not found", e.Tag)
}

// ResolveEndCommit maps target to a commit using client.
func ResolveEndCommit(ctx context.Context, client remote.RemoteClient, repo, target string) (string, error) {
	return NewGenerator(client, nil).ResolveEndCommit(ctx, repo, target)
}

// ResolveStartCommit finds the start commit for endSHA using client.
func ResolveStartCommit(ctx context.Context, client remote.RemoteClient, repo, endSHA string, opts RangeOptions) (string, error) {
	return NewGenerator(client, nil).ResolveStartCommit(ctx, repo, endSHA, opts)
}

// ResolveEndCommit maps target to a commit. A branch resolves to its head;
// anything the API does not know as a branch is taken as a commit SHA.
func (g *Generator) ResolveEndCommit(ctx context.Context, repo, target string) (string, error) {
	op := "get branch " + target
	resp, err := g.client.GetBranch(ctx, repo, target)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		sha, err := remote.DecodeBranchHead(resp)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		if sha == "" {
			return "", fmt.Errorf("%s: branch has no head commit", op)
		}
		g.logger.Debug("target resolved as branch", "target", target, "sha", sha)
		return sha, nil
	case http.StatusNotFound:
		g.logger.Debug("target is not a branch, using it as a commit", "target", target)
		return target, nil
	default:
		return "", remote.NewListingError(op, resp)
	}
}

// ResolveStartCommit finds the commit the change log starts from: the
// commit of the previous release's tag, or, without a previous release,
// a commit at most opts.FallbackBound commits behind endSHA.
func (g *Generator) ResolveStartCommit(ctx context.Context, repo, endSHA string, opts RangeOptions) (string, error) {
	var tag string
	var err error

	switch opts.Mode {
	case "", StartLastFullRelease:
		tag, err = g.latestReleaseTag(ctx, repo)
	case StartLastNonDraftRelease:
		tag, err = g.lastReleaseTag(ctx, repo, func(r models.Release) bool {
			return !r.Draft
		})
	case StartLastNonDraftReleaseByTag:
		re, cerr := compileTagPattern(opts.TagPattern)
		if cerr != nil {
			return "", cerr
		}
		tag, err = g.lastReleaseTag(ctx, repo, func(r models.Release) bool {
			return !r.Draft && re.MatchString(r.TagName)
		})
	default:
		return "", fmt.Errorf("invalid start mode %q", opts.Mode)
	}
	if err != nil {
		return "", err
	}

	if tag != "" {
		g.logger.Debug("previous release found", "tag", tag)
		return g.commitForTag(ctx, repo, tag)
	}

	g.logger.Debug("no previous release, walking back from end commit", "end", endSHA, "bound", opts.bound())
	return g.initialCommit(ctx, repo, endSHA, opts.bound())
}

func compileTagPattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, fmt.Errorf("a release tag pattern is required for %s", StartLastNonDraftReleaseByTag)
	}
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, fmt.Errorf("invalid release tag pattern %q: %w", pattern, err)
	}
	return re, nil
}

// latestReleaseTag returns the latest release's tag, or "" when the
// repository has no releases.
func (g *Generator) latestReleaseTag(ctx context.Context, repo string) (string, error) {
	op := "get latest release"
	resp, err := g.client.GetLatestRelease(ctx, repo)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		rel, err := remote.DecodeRelease(resp)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		g.logger.Debug("latest release", "tag", rel.TagName, "url", rel.HTMLURL)
		return rel.TagName, nil
	case http.StatusNotFound:
		return "", nil
	default:
		return "", remote.NewListingError(op, resp)
	}
}

// lastReleaseTag walks the release listing, newest first, and returns the
// tag of the first release accepted by match.
func (g *Generator) lastReleaseTag(ctx context.Context, repo string, match func(models.Release) bool) (string, error) {
	op := "get releases"
	resp, err := g.client.GetReleases(ctx, repo)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}

	return pagination.Walk(ctx, g.client, resp, op, "", firstMatchingRelease(match))
}

// commitForTag maps a tag name to its commit SHA.
func (g *Generator) commitForTag(ctx context.Context, repo, tag string) (string, error) {
	op := "get tags"
	resp, err := g.client.GetTags(ctx, repo)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	found, err := pagination.Walk(ctx, g.client, resp, op, (*models.Tag)(nil), tagNamed(tag))
	if err != nil {
		return "", err
	}
	if found == nil {
		return "", &TagNotFoundError{Tag: tag}
	}
	g.logger.Debug("tag resolved", "tag", tag, "sha", found.CommitSHA)
	return found.CommitSHA, nil
}

// initialCommit walks commits backwards from sha and returns the commit at
// position bound-1, or the oldest commit when history is shorter.
func (g *Generator) initialCommit(ctx context.Context, repo, sha string, bound int) (string, error) {
	op := "get commits before " + sha
	resp, err := g.client.GetCommitsBeforeSHA(ctx, repo, sha)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	shas, err := pagination.Walk(ctx, g.client, resp, op, []string(nil), commitsUpTo(bound))
	if err != nil {
		return "", err
	}

	switch {
	case len(shas) >= bound:
		return shas[bound-1], nil
	case len(shas) > 0:
		return shas[len(shas)-1], nil
	default:
		return "", fmt.Errorf("%s: no commits found", op)
	}
}

// firstMatchingRelease stops at the first release accepted by match.
func firstMatchingRelease(match func(models.Release) bool) pagination.Reducer[string] {
	return func(body []byte, acc string) (string, bool, error) {
		releases, err := remote.DecodeReleases(body)
		if err != nil {
			return acc, false, err
		}
		for _, r := range releases {
			if match(r) {
				return r.TagName, true, nil
			}
		}
		return acc, false, nil
	}
}

// tagNamed stops at the page holding the tag called name. Two tags with
// that name on one page are ambiguous.
func tagNamed(name string) pagination.Reducer[*models.Tag] {
	return func(body []byte, acc *models.Tag) (*models.Tag, bool, error) {
		tags, err := remote.DecodeTags(body)
		if err != nil {
			return acc, false, err
		}

		var matches []models.Tag
		for _, t := range tags {
			if t.Name == name {
				matches = append(matches, t)
			}
		}

		switch len(matches) {
		case 0:
			return acc, false, nil
		case 1:
			return &matches[0], true, nil
		default:
			return acc, false, &pagination.MultipleMatchesError{Kind: "tag", Value: name, Count: len(matches)}
		}
	}
}

// commitsUpTo accumulates commit SHAs until bound of them are known.
func commitsUpTo(bound int) pagination.Reducer[[]string] {
	return func(body []byte, acc []string) ([]string, bool, error) {
		commits, err := remote.DecodeCommits(body)
		if err != nil {
			return acc, false, err
		}
		for _, c := range commits {
			acc = append(acc, c.SHA)
		}
		return acc, len(acc) >= bound, nil
	}
}
