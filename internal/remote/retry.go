package remote

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// RetryConfig configures retry behavior for transient errors.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	JitterFraction float64 // 0.0 to 1.0
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		JitterFraction: 0.25,
	}
}

// RetryClient wraps a RemoteClient with automatic retry on transient errors.
type RetryClient struct {
	inner  RemoteClient
	config *RetryConfig
}

// Verify that *RetryClient implements RemoteClient at compile time
var _ RemoteClient = (*RetryClient)(nil)

// NewRetryClient creates a RetryClient that wraps the given RemoteClient.
func NewRetryClient(inner RemoteClient, cfg *RetryConfig) *RetryClient {
	if cfg == nil {
		cfg = DefaultRetryConfig()
	}
	return &RetryClient{inner: inner, config: cfg}
}

// isRetryableStatus reports whether a response status is worth retrying.
func isRetryableStatus(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}

// isTransient returns true for errors that are worth retrying.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var re *RemoteError
	if errors.As(err, &re) {
		return isRetryableStatus(re.Status)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true // network errors are transient
}

// backoff computes the delay for the given attempt with jitter.
func (rc *RetryClient) backoff(attempt int) time.Duration {
	base := float64(rc.config.InitialBackoff) * math.Pow(2, float64(attempt))
	if base > float64(rc.config.MaxBackoff) {
		base = float64(rc.config.MaxBackoff)
	}
	jitter := base * rc.config.JitterFraction * (rand.Float64()*2 - 1) // +/- jitter
	d := time.Duration(base + jitter)
	if d < 0 {
		d = 0
	}
	return d
}

// sleep waits for the given duration or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retry executes fn with retry logic. Only retries transient errors.
func (rc *RetryClient) retry(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= rc.config.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
		if attempt < rc.config.MaxRetries {
			d := rc.backoff(attempt)
			if err := sleep(ctx, d); err != nil {
				return fmt.Errorf("%s: %w (retry cancelled)", operation, lastErr)
			}
		}
	}
	return fmt.Errorf("%s: %w (after %d retries)", operation, lastErr, rc.config.MaxRetries)
}

// do runs a single API call through retry. A response whose status is still
// retryable after the last attempt is returned as is, so status handling
// stays with the caller.
func (rc *RetryClient) do(ctx context.Context, operation string, call func() (*Response, error)) (*Response, error) {
	var resp *Response
	err := rc.retry(ctx, operation, func() error {
		resp = nil
		r, err := call()
		if err != nil {
			return err
		}
		resp = r
		if isRetryableStatus(r.StatusCode) {
			return &RemoteError{Code: "retryable_status", Message: ErrorMessage(r), Status: r.StatusCode}
		}
		return nil
	})
	if err != nil && resp != nil && ctx.Err() == nil {
		return resp, nil
	}
	return resp, err
}

// --- Delegate all RemoteClient methods through retry logic ---

func (rc *RetryClient) GetLatestRelease(ctx context.Context, repo string) (*Response, error) {
	return rc.do(ctx, "get latest release", func() (*Response, error) {
		return rc.inner.GetLatestRelease(ctx, repo)
	})
}

func (rc *RetryClient) GetReleases(ctx context.Context, repo string) (*Response, error) {
	return rc.do(ctx, "get releases", func() (*Response, error) {
		return rc.inner.GetReleases(ctx, repo)
	})
}

func (rc *RetryClient) GetTags(ctx context.Context, repo string) (*Response, error) {
	return rc.do(ctx, "get tags", func() (*Response, error) {
		return rc.inner.GetTags(ctx, repo)
	})
}

func (rc *RetryClient) GetBranch(ctx context.Context, repo, branch string) (*Response, error) {
	return rc.do(ctx, "get branch", func() (*Response, error) {
		return rc.inner.GetBranch(ctx, repo, branch)
	})
}

func (rc *RetryClient) GetCommitsList(ctx context.Context, repo, startSHA, endSHA string) (*Response, error) {
	return rc.do(ctx, "compare commits", func() (*Response, error) {
		return rc.inner.GetCommitsList(ctx, repo, startSHA, endSHA)
	})
}

func (rc *RetryClient) GetCommitsBeforeSHA(ctx context.Context, repo, sha string) (*Response, error) {
	return rc.do(ctx, "get commits", func() (*Response, error) {
		return rc.inner.GetCommitsBeforeSHA(ctx, repo, sha)
	})
}

func (rc *RetryClient) GetIssue(ctx context.Context, repo string, number int) (*Response, error) {
	return rc.do(ctx, "get issue", func() (*Response, error) {
		return rc.inner.GetIssue(ctx, repo, number)
	})
}

func (rc *RetryClient) GetPaginatedResult(ctx context.Context, pageURL string) (*Response, error) {
	return rc.do(ctx, "get page", func() (*Response, error) {
		return rc.inner.GetPaginatedResult(ctx, pageURL)
	})
}
