package remote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public GitHub REST endpoint.
const DefaultBaseURL = "https://api.github.com"

// commitsPageSize is the page size used when walking commits backwards.
const commitsPageSize = 100

// maxBodySize bounds how much of a single response is read into memory.
const maxBodySize = 32 << 20

// RemoteClient defines the contract for the release API. Every call returns
// the raw response; callers decide which status codes are acceptable.
type RemoteClient interface {
	GetLatestRelease(ctx context.Context, repo string) (*Response, error)
	GetReleases(ctx context.Context, repo string) (*Response, error)
	GetTags(ctx context.Context, repo string) (*Response, error)
	GetBranch(ctx context.Context, repo, branch string) (*Response, error)

	// GetCommitsList compares two commits. The commit list is oldest first.
	GetCommitsList(ctx context.Context, repo, startSHA, endSHA string) (*Response, error)
	// GetCommitsBeforeSHA lists commits reachable from sha, newest first.
	// The first entry of the first page is sha itself.
	GetCommitsBeforeSHA(ctx context.Context, repo, sha string) (*Response, error)

	// GetIssue fetches a single issue by number.
	GetIssue(ctx context.Context, repo string, number int) (*Response, error)

	// GetPaginatedResult fetches a page URL taken from a pagination link.
	GetPaginatedResult(ctx context.Context, pageURL string) (*Response, error)
}

// Verify that *HTTPClient implements RemoteClient at compile time
var _ RemoteClient = (*HTTPClient)(nil)

// HTTPClient implements RemoteClient over HTTP.
type HTTPClient struct {
	baseURL    string
	token      string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates an HTTP-based client for the API at baseURL.
// An empty token sends unauthenticated requests.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &HTTPClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		userAgent:  "relnotes",
		httpClient: &http.Client{},
		logger:     slog.New(slog.DiscardHandler),
	}
}

// WithTimeout sets the per-request timeout.
func (c *HTTPClient) WithTimeout(d time.Duration) *HTTPClient {
	c.httpClient.Timeout = d
	return c
}

// WithLogger sets the logger used for request tracing.
func (c *HTTPClient) WithLogger(logger *slog.Logger) *HTTPClient {
	if logger != nil {
		c.logger = logger
	}
	return c
}

func (c *HTTPClient) repoURL(repo, path string) string {
	return fmt.Sprintf("%s/repos/%s%s", c.baseURL, repo, path)
}

// escapeRef escapes each segment of a ref while keeping its slashes.
func escapeRef(ref string) string {
	parts := strings.Split(ref, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// sameHost reports whether rawURL points at the configured API host.
// Credentials are only attached for that host.
func (c *HTTPClient) sameHost(rawURL string) bool {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(base.Host, u.Host)
}

func (c *HTTPClient) get(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" && c.sameHost(rawURL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("remote request",
		"url", rawURL,
		"status", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// GetLatestRelease fetches the latest published release.
func (c *HTTPClient) GetLatestRelease(ctx context.Context, repo string) (*Response, error) {
	resp, err := c.get(ctx, c.repoURL(repo, "/releases/latest"))
	if err != nil {
		return nil, fmt.Errorf("get latest release: %w", err)
	}
	return resp, nil
}

// GetReleases fetches the first page of releases, newest first.
func (c *HTTPClient) GetReleases(ctx context.Context, repo string) (*Response, error) {
	resp, err := c.get(ctx, c.repoURL(repo, "/releases"))
	if err != nil {
		return nil, fmt.Errorf("get releases: %w", err)
	}
	return resp, nil
}

// GetTags fetches the first page of tags.
func (c *HTTPClient) GetTags(ctx context.Context, repo string) (*Response, error) {
	resp, err := c.get(ctx, c.repoURL(repo, "/tags"))
	if err != nil {
		return nil, fmt.Errorf("get tags: %w", err)
	}
	return resp, nil
}

// GetBranch fetches a single branch.
func (c *HTTPClient) GetBranch(ctx context.Context, repo, branch string) (*Response, error) {
	resp, err := c.get(ctx, c.repoURL(repo, "/branches/"+escapeRef(branch)))
	if err != nil {
		return nil, fmt.Errorf("get branch %s: %w", branch, err)
	}
	return resp, nil
}

// GetCommitsList compares startSHA...endSHA.
func (c *HTTPClient) GetCommitsList(ctx context.Context, repo, startSHA, endSHA string) (*Response, error) {
	path := fmt.Sprintf("/compare/%s...%s", escapeRef(startSHA), escapeRef(endSHA))
	resp, err := c.get(ctx, c.repoURL(repo, path))
	if err != nil {
		return nil, fmt.Errorf("compare commits: %w", err)
	}
	return resp, nil
}

// GetCommitsBeforeSHA lists commits starting at sha.
func (c *HTTPClient) GetCommitsBeforeSHA(ctx context.Context, repo, sha string) (*Response, error) {
	q := url.Values{}
	q.Set("sha", sha)
	q.Set("per_page", fmt.Sprintf("%d", commitsPageSize))
	resp, err := c.get(ctx, c.repoURL(repo, "/commits?"+q.Encode()))
	if err != nil {
		return nil, fmt.Errorf("get commits before %s: %w", sha, err)
	}
	return resp, nil
}

// GetIssue fetches issue number.
func (c *HTTPClient) GetIssue(ctx context.Context, repo string, number int) (*Response, error) {
	resp, err := c.get(ctx, c.repoURL(repo, fmt.Sprintf("/issues/%d", number)))
	if err != nil {
		return nil, fmt.Errorf("get issue #%d: %w", number, err)
	}
	return resp, nil
}

// GetPaginatedResult fetches pageURL as is.
func (c *HTTPClient) GetPaginatedResult(ctx context.Context, pageURL string) (*Response, error) {
	resp, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	return resp, nil
}
