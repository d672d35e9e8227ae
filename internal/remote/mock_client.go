package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// MockClient is a mock implementation of RemoteClient for testing.
// A nil response for a call is answered with 404.
type MockClient struct {
	LatestRelease *Response
	Releases      *Response
	Tags          *Response
	// Branches is keyed by branch name.
	Branches map[string]*Response
	// Comparisons is keyed by "start...end".
	Comparisons map[string]*Response
	// CommitsBefore is keyed by the starting SHA.
	CommitsBefore map[string]*Response
	// Issues is keyed by issue number.
	Issues map[int]*Response
	// Pages is keyed by page URL.
	Pages map[string]*Response
	// Err can be set to make every call fail with a transport error
	Err error
	// Calls records every call in order, e.g. "tags" or "page:<url>".
	Calls []string
}

// Verify that *MockClient implements RemoteClient at compile time
var _ RemoteClient = (*MockClient)(nil)

// NewMockClient creates a new MockClient for testing.
func NewMockClient() *MockClient {
	return &MockClient{
		Branches:      make(map[string]*Response),
		Comparisons:   make(map[string]*Response),
		CommitsBefore: make(map[string]*Response),
		Issues:        make(map[int]*Response),
		Pages:         make(map[string]*Response),
	}
}

// JSONResponse builds a response with a JSON body and an optional Link header.
// It panics if body cannot be marshaled, which only happens on test bugs.
func JSONResponse(status int, body interface{}, link string) *Response {
	data, err := json.Marshal(body)
	if err != nil {
		panic(fmt.Sprintf("marshal mock body: %v", err))
	}
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	if link != "" {
		h.Set("Link", link)
	}
	return &Response{StatusCode: status, Header: h, Body: data}
}

// NotFound is the canned 404 answer.
func NotFound() *Response {
	return JSONResponse(http.StatusNotFound, map[string]string{"message": "Not Found"}, "")
}

func (m *MockClient) respond(call string, resp *Response) (*Response, error) {
	m.Calls = append(m.Calls, call)
	if m.Err != nil {
		return nil, m.Err
	}
	if resp == nil {
		return NotFound(), nil
	}
	return resp, nil
}

// CallCount returns how many recorded calls equal call.
func (m *MockClient) CallCount(call string) int {
	n := 0
	for _, c := range m.Calls {
		if c == call {
			n++
		}
	}
	return n
}

func (m *MockClient) GetLatestRelease(ctx context.Context, repo string) (*Response, error) {
	return m.respond("latest-release", m.LatestRelease)
}

func (m *MockClient) GetReleases(ctx context.Context, repo string) (*Response, error) {
	return m.respond("releases", m.Releases)
}

func (m *MockClient) GetTags(ctx context.Context, repo string) (*Response, error) {
	return m.respond("tags", m.Tags)
}

func (m *MockClient) GetBranch(ctx context.Context, repo, branch string) (*Response, error) {
	return m.respond("branch:"+branch, m.Branches[branch])
}

func (m *MockClient) GetCommitsList(ctx context.Context, repo, startSHA, endSHA string) (*Response, error) {
	key := startSHA + "..." + endSHA
	return m.respond("compare:"+key, m.Comparisons[key])
}

func (m *MockClient) GetCommitsBeforeSHA(ctx context.Context, repo, sha string) (*Response, error) {
	return m.respond("commits:"+sha, m.CommitsBefore[sha])
}

func (m *MockClient) GetIssue(ctx context.Context, repo string, number int) (*Response, error) {
	return m.respond(fmt.Sprintf("issue:%d", number), m.Issues[number])
}

func (m *MockClient) GetPaginatedResult(ctx context.Context, pageURL string) (*Response, error) {
	return m.respond("page:"+pageURL, m.Pages[pageURL])
}
