// Package repository declares the storage interfaces the services depend on.
//
// Implementations translate a missing row into apperror.ErrNotFound and a
// uniqueness violation into apperror.ErrConflict. Everything else is returned
// wrapped and treated as an internal failure.
package repository

import (
	"context"
	"time"

	"github.com/RomanK74/api-yamdb/internal/model"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ListOptions pages and orders a list query.
//
// Ordering is a field name with an optional "-" prefix for descending order,
// e.g. "-year". Each list query accepts its own whitelist; an empty value
// picks that query's default.
type ListOptions struct {
	Limit    int
	Offset   int
	Ordering string
}

// Normalize clamps Limit to [1, MaxListLimit] (0 means default) and Offset to >= 0.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		o.Limit = MaxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// Page is one slice of a list query plus the total number of matches.
type Page[T any] struct {
	Count   int
	Results []T
}

// Orderings accepted by each list query. The first entry is the default.
var (
	UserOrderings    = []string{"-id", "id", "username", "-username"}
	TermOrderings    = []string{"-id", "id", "name", "-name", "slug", "-slug"}
	TitleOrderings   = []string{"-id", "id", "name", "-name", "year", "-year"}
	ReviewOrderings  = []string{"-pub_date", "pub_date", "score", "-score"}
	CommentOrderings = []string{"-pub_date", "pub_date"}
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// GetOrCreateByEmail returns the user owning email, inserting candidate
	// when none exists. created reports which branch ran.
	GetOrCreateByEmail(ctx context.Context, candidate *model.User) (user *model.User, created bool, err error)
	List(ctx context.Context, search string, opts ListOptions) (Page[model.User], error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, username string) error

	// SetConfirmationCode replaces any outstanding code for the user.
	SetConfirmationCode(ctx context.Context, userID int64, hash string, expiresAt time.Time) error
	// ConsumeConfirmationCode clears the code only if hash is still the
	// stored one. It reports false when another request consumed it first.
	ConsumeConfirmationCode(ctx context.Context, userID int64, hash string) (bool, error)
}

// TermRepository stores categories or genres.
type TermRepository interface {
	Create(ctx context.Context, term *model.Term) error
	GetBySlug(ctx context.Context, slug string) (*model.Term, error)
	List(ctx context.Context, search string, opts ListOptions) (Page[model.Term], error)
	Delete(ctx context.Context, slug string) error
}

// TitleFilter narrows a title listing. Zero fields are ignored; set fields
// are combined with AND.
type TitleFilter struct {
	Genre    string // genre slug, exact
	Category string // category slug, exact
	Name     string // case-sensitive substring
	Year     *int
}

// TitleWrite is the storage form of a title create or update. Category and
// Genres reference existing slugs.
type TitleWrite struct {
	Name        string
	Year        int
	Description *string
	Category    *string
	Genres      []string
}

type TitleRepository interface {
	Create(ctx context.Context, in TitleWrite) (*model.Title, error)
	GetByID(ctx context.Context, id int64) (*model.Title, error)
	List(ctx context.Context, filter TitleFilter, opts ListOptions) (Page[model.Title], error)
	Update(ctx context.Context, id int64, in TitleWrite) (*model.Title, error)
	Delete(ctx context.Context, id int64) error
}

// DuplicateReviewMessage rejects a second review of a title by the same author.
const DuplicateReviewMessage = "Review already exists"

// ReviewRepository is always scoped to one title.
type ReviewRepository interface {
	Exists(ctx context.Context, titleID, authorID int64) (bool, error)
	Create(ctx context.Context, review *model.Review) error
	Get(ctx context.Context, titleID, id int64) (*model.Review, error)
	List(ctx context.Context, titleID int64, opts ListOptions) (Page[model.Review], error)
	Update(ctx context.Context, review *model.Review) error
	Delete(ctx context.Context, titleID, id int64) error
}

// CommentRepository is scoped to one review of one title. A comment is
// only visible through the review it belongs to, and that review only
// through its own title.
type CommentRepository interface {
	Create(ctx context.Context, titleID int64, comment *model.Comment) error
	Get(ctx context.Context, titleID, reviewID, id int64) (*model.Comment, error)
	List(ctx context.Context, titleID, reviewID int64, opts ListOptions) (Page[model.Comment], error)
	Update(ctx context.Context, titleID int64, comment *model.Comment) error
	Delete(ctx context.Context, titleID, reviewID, id int64) error
}

// ResolveOrdering returns ordering, or allowed[0] when it is empty, and
// whether the result is one of allowed.
func ResolveOrdering(allowed []string, ordering string) (string, bool) {
	if ordering == "" {
		return allowed[0], true
	}
	for _, a := range allowed {
		if a == ordering {
			return ordering, true
		}
	}
	return ordering, false
}
