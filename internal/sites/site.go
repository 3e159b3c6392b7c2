// Package sites fetches contests and user profiles from competitive
// programming sites and keeps a merged, periodically refreshed view of them.
package sites

import (
	"context"

	"github.com/soyeahso/cpbot/internal/domain"
)

// Site fetches data from one competitive programming site.
type Site interface {
	// Tag is the short identifier users type, e.g. "cf".
	Tag() string
	// Name is the display name, e.g. "Codeforces".
	Name() string
	// FetchFutureContests returns the contests that have not started yet,
	// sorted by domain.Contest.Less.
	FetchFutureContests(ctx context.Context) ([]domain.Contest, error)
	// FetchProfile returns nil, nil when the handle does not exist.
	FetchProfile(ctx context.Context, handle string) (*domain.Profile, error)
}

// Site tags.
const (
	TagAtCoder    = "at"
	TagCodeChef   = "cc"
	TagCodeforces = "cf"
)
