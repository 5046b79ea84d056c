package project

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// RepoRef is a parsed repository, issue or pull request reference.
type RepoRef struct {
	Owner  string
	Name   string
	Kind   Kind
	Number int
}

// FullName returns "owner/name".
func (r RepoRef) FullName() string {
	return r.Owner + "/" + r.Name
}

// ParseRepositoryURL parses a github.com repository, issue or pull URL.
func ParseRepositoryURL(raw string) (RepoRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return RepoRef{}, fmt.Errorf("%w: empty repository url", ErrInvalidInput)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return RepoRef{}, fmt.Errorf("%w: repository url: %v", ErrInvalidInput, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return RepoRef{}, fmt.Errorf("%w: repository url must be http(s)", ErrInvalidInput)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if host != "github.com" {
		return RepoRef{}, fmt.Errorf("%w: unsupported repository host %q", ErrInvalidInput, u.Host)
	}

	segs := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(segs) < 2 {
		return RepoRef{}, fmt.Errorf("%w: repository url needs owner and name", ErrInvalidInput)
	}
	ref := RepoRef{Owner: segs[0], Name: strings.TrimSuffix(segs[1], ".git"), Kind: KindRepo}
	switch len(segs) {
	case 2:
		return ref, nil
	case 4:
		n, err := strconv.Atoi(segs[3])
		if err != nil || n <= 0 {
			return RepoRef{}, fmt.Errorf("%w: bad issue or pull number %q", ErrInvalidInput, segs[3])
		}
		switch segs[2] {
		case "issues":
			ref.Kind = KindIssue
		case "pull":
			ref.Kind = KindPR
		default:
			return RepoRef{}, fmt.Errorf("%w: unsupported repository path %q", ErrInvalidInput, u.Path)
		}
		ref.Number = n
		return ref, nil
	default:
		return RepoRef{}, fmt.Errorf("%w: unsupported repository path %q", ErrInvalidInput, u.Path)
	}
}
