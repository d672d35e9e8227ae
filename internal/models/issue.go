package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// IssueSeparator joins a repository and an issue number.
// Neither a repository name nor an issue number can contain it.
const IssueSeparator = "#"

// RepositoryIssueID identifies an issue across repositories.
type RepositoryIssueID struct {
	Repository string
	IssueID    string
}

// String serializes the ID as "repository#issueId".
func (id RepositoryIssueID) String() string {
	return id.Repository + IssueSeparator + id.IssueID
}

// ParseRepositoryIssueID splits a "repository#issueId" string.
func ParseRepositoryIssueID(s string) (RepositoryIssueID, error) {
	repo, issue, ok := strings.Cut(s, IssueSeparator)
	if !ok || issue == "" {
		return RepositoryIssueID{}, fmt.Errorf("invalid repository issue id %q", s)
	}
	return RepositoryIssueID{Repository: repo, IssueID: issue}, nil
}

// Issue is an issue listed in an issue-based change log.
type Issue struct {
	Number int    `json:"number" yaml:"number"`
	Title  string `json:"title" yaml:"title"`
}

// IssueSet is an insertion-ordered set of issue IDs.
// The zero value is ready to use.
type IssueSet struct {
	ids  []RepositoryIssueID
	seen map[RepositoryIssueID]struct{}
}

// NewIssueSet creates a set holding ids in first-seen order.
func NewIssueSet(ids ...RepositoryIssueID) *IssueSet {
	s := &IssueSet{}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id unless it is already present. It reports whether id was added.
func (s *IssueSet) Add(id RepositoryIssueID) bool {
	if s.seen == nil {
		s.seen = make(map[RepositoryIssueID]struct{})
	}
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.ids = append(s.ids, id)
	return true
}

// Contains reports whether id is in the set.
func (s *IssueSet) Contains(id RepositoryIssueID) bool {
	if s == nil {
		return false
	}
	_, ok := s.seen[id]
	return ok
}

// Len returns the number of distinct IDs.
func (s *IssueSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// Items returns a copy of the IDs in insertion order.
func (s *IssueSet) Items() []RepositoryIssueID {
	if s == nil {
		return nil
	}
	out := make([]RepositoryIssueID, len(s.ids))
	copy(out, s.ids)
	return out
}

// Strings returns the serialized IDs in insertion order.
func (s *IssueSet) Strings() []string {
	items := s.Items()
	out := make([]string, len(items))
	for i, id := range items {
		out[i] = id.String()
	}
	return out
}

// MarshalJSON encodes the set as a list of "repository#issueId" strings.
func (s *IssueSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON decodes a list of "repository#issueId" strings.
func (s *IssueSet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = IssueSet{}
	for _, r := range raw {
		id, err := ParseRepositoryIssueID(r)
		if err != nil {
			return err
		}
		s.Add(id)
	}
	return nil
}

// MarshalYAML encodes the set as a sequence of "repository#issueId" strings.
func (s *IssueSet) MarshalYAML() (interface{}, error) {
	return s.Strings(), nil
}
