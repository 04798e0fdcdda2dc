package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RomanK74/api-yamdb/internal/apperror"
	"github.com/RomanK74/api-yamdb/internal/model"
)

type fakeUsers map[int64]*model.User

func (f fakeUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, apperror.NotFound("user", "x")
	}
	return u, nil
}

// runAuth sends one request through Authenticate and reports the status and
// the user the inner handler saw.
func runAuth(t *testing.T, ts *TokenService, users UserLookup, header string) (int, *model.User) {
	t.Helper()

	var seen *model.User
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	Authenticate(ts, users)(inner).ServeHTTP(rec, req)
	return rec.Code, seen
}

func TestAuthenticate(t *testing.T) {
	ts := newTestTokenService(t)
	alice := &model.User{ID: 1, Username: "alice"}
	users := fakeUsers{1: alice}

	access, _ := ts.Generate(KindAccess, 1)
	refresh, _ := ts.Generate(KindRefresh, 1)
	expired, _ := ts.GenerateWithDuration(KindAccess, 1, -time.Minute)
	ghost, _ := ts.Generate(KindAccess, 99)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   *model.User
	}{
		{"no header is anonymous", "", http.StatusNoContent, nil},
		{"valid bearer", "Bearer " + access, http.StatusNoContent, alice},
		{"lower-case scheme", "bearer " + access, http.StatusNoContent, alice},
		{"wrong scheme", "Token " + access, http.StatusUnauthorized, nil},
		{"missing token", "Bearer", http.StatusUnauthorized, nil},
		{"refresh token rejected", "Bearer " + refresh, http.StatusUnauthorized, nil},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized, nil},
		{"deleted user", "Bearer " + ghost, http.StatusUnauthorized, nil},
		{"garbage", "Bearer abc.def.ghi", http.StatusUnauthorized, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, user := runAuth(t, ts, users, tt.header)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if user != tt.wantUser {
				t.Errorf("user = %v, want %v", user, tt.wantUser)
			}
		})
	}
}

func TestUserFromContext_Empty(t *testing.T) {
	if u := UserFromContext(context.Background()); u != nil {
		t.Errorf("UserFromContext(empty) = %v, want nil", u)
	}
}
