package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/kilupskalvis/relnotes/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pageChain builds n pages of integers linked by "next", each also carrying
// a "last" link. Page i holds the single value i.
func pageChain(n int) (*remote.Response, *remote.MockClient) {
	mock := remote.NewMockClient()
	pageURL := func(i int) string { return fmt.Sprintf("https://api/items?page=%d", i) }
	page := func(i int) *remote.Response {
		link := fmt.Sprintf(`<%s>; rel="last"`, pageURL(n))
		if i < n {
			link = fmt.Sprintf(`<%s>; rel="next", `, pageURL(i+1)) + link
		}
		return remote.JSONResponse(http.StatusOK, []int{i}, link)
	}
	for i := 2; i <= n; i++ {
		mock.Pages[pageURL(i)] = page(i)
	}
	return page(1), mock
}

func collectInts(body []byte, acc []int) ([]int, bool, error) {
	var page []int
	if err := json.Unmarshal(body, &page); err != nil {
		return acc, false, err
	}
	return append(acc, page...), false, nil
}

func TestWalk_VisitsEveryPageOnce(t *testing.T) {
	for _, n := range []int{1, 2, 7} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			first, mock := pageChain(n)

			got, err := Walk(context.Background(), mock, first, "list items", []int(nil), collectInts)
			require.NoError(t, err)

			want := make([]int, n)
			for i := range want {
				want[i] = i + 1
			}
			assert.Equal(t, want, got)
			assert.Len(t, mock.Calls, n-1)
			for i := 2; i <= n; i++ {
				assert.Equal(t, 1, mock.CallCount(fmt.Sprintf("page:https://api/items?page=%d", i)))
			}
		})
	}
}

func TestWalk_StopsWhenDone(t *testing.T) {
	first, mock := pageChain(5)

	stopAt3 := func(body []byte, acc []int) ([]int, bool, error) {
		acc, _, err := collectInts(body, acc)
		return acc, len(acc) == 3, err
	}

	got, err := Walk(context.Background(), mock, first, "list items", []int(nil), stopAt3)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, 0, mock.CallCount("page:https://api/items?page=4"))
}

func TestWalk_LastWithoutNextStops(t *testing.T) {
	mock := remote.NewMockClient()
	first := remote.JSONResponse(http.StatusOK, []int{1}, `<https://api/items?page=9>; rel="last"`)

	got, err := Walk(context.Background(), mock, first, "list items", []int(nil), collectInts)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, got)
	assert.Empty(t, mock.Calls)
}

func TestWalk_NonSuccessStatus(t *testing.T) {
	mock := remote.NewMockClient()
	first := remote.JSONResponse(http.StatusOK, []int{1}, `<https://api/items?page=2>; rel="next"`)
	mock.Pages["https://api/items?page=2"] = remote.JSONResponse(http.StatusBadGateway,
		map[string]string{"message": "upstream down"}, "")

	got, err := Walk(context.Background(), mock, first, "list items", []int(nil), collectInts)
	var le *remote.ListingError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "list items", le.Operation)
	assert.Equal(t, http.StatusBadGateway, le.Status)
	assert.Equal(t, "upstream down", le.Message)
	assert.Equal(t, []int{1}, got)
}

func TestWalk_FirstPageNotFound(t *testing.T) {
	mock := remote.NewMockClient()

	_, err := Walk(context.Background(), mock, remote.NotFound(), "list items", []int(nil), collectInts)
	var le *remote.ListingError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, http.StatusNotFound, le.Status)
}

func TestWalk_MalformedLink(t *testing.T) {
	mock := remote.NewMockClient()
	first := remote.JSONResponse(http.StatusOK, []int{1}, `https://api/items?page=2; rel="next"`)

	_, err := Walk(context.Background(), mock, first, "list items", []int(nil), collectInts)
	var me *MalformedLinkError
	require.ErrorAs(t, err, &me)
	assert.Empty(t, mock.Calls)
}

func TestWalk_ReducerError(t *testing.T) {
	first, mock := pageChain(3)
	boom := errors.New("boom")

	failOnSecond := func(body []byte, acc []int) ([]int, bool, error) {
		if len(acc) == 1 {
			return acc, false, boom
		}
		return collectInts(body, acc)
	}

	_, err := Walk(context.Background(), mock, first, "list items", []int(nil), failOnSecond)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "page 2")
}

func TestWalk_MultipleMatchesStopsImmediately(t *testing.T) {
	first, mock := pageChain(3)

	ambiguous := func(body []byte, acc int) (int, bool, error) {
		return acc, false, &MultipleMatchesError{Kind: "tag", Value: "v1", Count: 2}
	}

	_, err := Walk(context.Background(), mock, first, "get tags", 0, ambiguous)
	var mm *MultipleMatchesError
	require.ErrorAs(t, err, &mm)
	assert.Equal(t, `found 2 tags matching "v1", expected exactly one`, mm.Error())
	assert.Empty(t, mock.Calls)
}

func TestWalk_TransportError(t *testing.T) {
	first, mock := pageChain(2)
	mock.Err = errors.New("connection reset")

	_, err := Walk(context.Background(), mock, first, "list items", []int(nil), collectInts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list items: connection reset")
}
