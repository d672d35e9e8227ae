package pagination

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kilupskalvis/relnotes/internal/remote"
)

// Fetcher follows a pagination cursor.
type Fetcher interface {
	GetPaginatedResult(ctx context.Context, pageURL string) (*remote.Response, error)
}

// Reducer folds one page body into the accumulator. Returning done=true
// stops the walk without fetching further pages.
type Reducer[A any] func(body []byte, acc A) (next A, done bool, err error)

// MultipleMatchesError is returned when a lookup that must be unique
// matches more than once on a single page.
type MultipleMatchesError struct {
	Kind  string
	Value string
	Count int
}

func (e *MultipleMatchesError) Error() string {
	return fmt.Sprintf("found %d %ss matching %q, expected exactly one", e.Count, e.Kind, e.Value)
}

// Walk applies reduce to first and to every page reachable through "next"
// links, in order, until reduce reports done or the chain ends. Any page
// with a status other than 200 fails the walk with a *remote.ListingError
// labelled op.
func Walk[A any](ctx context.Context, f Fetcher, first *remote.Response, op string, acc A, reduce Reducer[A]) (A, error) {
	resp := first
	for page := 1; ; page++ {
		if resp.StatusCode != http.StatusOK {
			return acc, remote.NewListingError(op, resp)
		}

		var done bool
		var err error
		acc, done, err = reduce(resp.Body, acc)
		if err != nil {
			return acc, fmt.Errorf("%s: page %d: %w", op, page, err)
		}
		if done {
			return acc, nil
		}

		links, err := ParseLinkHeader(resp.Link())
		if err != nil {
			return acc, fmt.Errorf("%s: %w", op, err)
		}
		next, ok := links[RelNext]
		if !ok {
			return acc, nil
		}

		resp, err = f.GetPaginatedResult(ctx, next)
		if err != nil {
			return acc, fmt.Errorf("%s: %w", op, err)
		}
	}
}
