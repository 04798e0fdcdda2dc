package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/RomanK74/api-yamdb/internal/model"
)

// UserLookup resolves the subject of a verified token to a live account.
// *sqlite.UserDB satisfies it.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// contextKey is unexported so no other package can collide with our key.
type contextKey string

const userKey contextKey = "user"

// Authenticate resolves the caller from the Authorization header.
//
//   - no header: the request continues anonymously
//   - valid bearer access token for an existing user: the user is stored in context
//   - anything else (malformed header, bad or expired token, deleted user): 401
//
// Endpoints decide for themselves whether an anonymous caller is acceptable.
func Authenticate(tokens *TokenService, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, ok := resolve(r.Context(), header, tokens, users)
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"Given token not valid for any token type"}` + "\n"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func resolve(ctx context.Context, header string, tokens *TokenService, users UserLookup) (*model.User, bool) {
	scheme, raw, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || raw == "" {
		return nil, false
	}

	userID, err := tokens.Validate(strings.TrimSpace(raw), KindAccess)
	if err != nil {
		return nil, false
	}

	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return nil, false
	}
	return user, true
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated caller, or nil for anonymous requests.
func UserFromContext(ctx context.Context) *model.User {
	u, _ := ctx.Value(userKey).(*model.User)
	return u
}
