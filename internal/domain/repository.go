package domain

import (
	"fmt"
	"strings"
	"time"
)

// RepositoryRef identifies the repository under analysis.
type RepositoryRef struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// ParseRepositoryRef parses an "owner/name" reference.
func ParseRepositoryRef(s string) (RepositoryRef, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return RepositoryRef{}, fmt.Errorf("invalid repository %q: expected owner/name", s)
	}
	ref := RepositoryRef{Owner: strings.TrimSpace(owner), Name: strings.TrimSpace(name)}
	if err := ref.Validate(); err != nil {
		return RepositoryRef{}, err
	}
	return ref, nil
}

// Validate checks that both parts of the reference are present.
func (r RepositoryRef) Validate() error {
	if r.Owner == "" || r.Name == "" || strings.Contains(r.Name, "/") {
		return fmt.Errorf("invalid repository %q: expected owner/name", r.String())
	}
	return nil
}

func (r RepositoryRef) String() string {
	return r.Owner + "/" + r.Name
}

// RepositoryInfo is the metadata snapshot taken at the start of an analysis.
type RepositoryInfo struct {
	FullName      string    `json:"full_name"`
	Description   string    `json:"description,omitempty"`
	DefaultBranch string    `json:"default_branch,omitempty"`
	Private       bool      `json:"private"`
	Stars         int       `json:"stars"`
	Forks         int       `json:"forks"`
	Language      string    `json:"language,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
