package access

import (
	"errors"
	"testing"

	"github.com/RomanK74/api-yamdb/internal/apperror"
	"github.com/RomanK74/api-yamdb/internal/model"
)

var (
	anon      *model.User
	author    = &model.User{ID: 1, Role: model.RoleUser}
	other     = &model.User{ID: 2, Role: model.RoleUser}
	moderator = &model.User{ID: 3, Role: model.RoleModerator}
	admin     = &model.User{ID: 4, Role: model.RoleAdmin}
	superuser = &model.User{ID: 5, Role: model.RoleUser, IsSuperuser: true}
)

func TestCan_Catalog(t *testing.T) {
	for _, res := range []Resource{ResourceCategory, ResourceGenre, ResourceTitle} {
		if !Can(anon, ActionRead, res, NoOwner) {
			t.Errorf("anonymous read of %d denied", res)
		}
		for _, act := range []Action{ActionCreate, ActionUpdate, ActionDelete} {
			if Can(anon, act, res, NoOwner) {
				t.Errorf("anonymous %s of %d allowed", act, res)
			}
			if Can(author, act, res, NoOwner) {
				t.Errorf("user %s of %d allowed", act, res)
			}
			if Can(moderator, act, res, NoOwner) {
				t.Errorf("moderator %s of %d allowed", act, res)
			}
			if !Can(admin, act, res, NoOwner) {
				t.Errorf("admin %s of %d denied", act, res)
			}
			if !Can(superuser, act, res, NoOwner) {
				t.Errorf("superuser %s of %d denied", act, res)
			}
		}
	}
}

func TestCan_AuthoredContent(t *testing.T) {
	tests := []struct {
		name   string
		actor  *model.User
		action Action
		want   bool
	}{
		{"anonymous read", anon, ActionRead, true},
		{"anonymous create", anon, ActionCreate, false},
		{"anonymous update", anon, ActionUpdate, false},
		{"user create", other, ActionCreate, true},
		{"author update", author, ActionUpdate, true},
		{"author delete", author, ActionDelete, true},
		{"other user update", other, ActionUpdate, false},
		{"other user delete", other, ActionDelete, false},
		{"moderator update", moderator, ActionUpdate, true},
		{"moderator delete", moderator, ActionDelete, true},
		{"admin delete", admin, ActionDelete, true},
		{"superuser update", superuser, ActionUpdate, true},
	}

	for _, tt := range tests {
		for _, res := range []Resource{ResourceReview, ResourceComment} {
			t.Run(tt.name, func(t *testing.T) {
				if got := Can(tt.actor, tt.action, res, author.ID); got != tt.want {
					t.Errorf("Can() = %v, want %v", got, tt.want)
				}
			})
		}
	}
}

func TestCan_Users(t *testing.T) {
	for _, act := range []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete} {
		if Can(anon, act, ResourceUser, NoOwner) || Can(author, act, ResourceUser, NoOwner) ||
			Can(moderator, act, ResourceUser, NoOwner) {
			t.Errorf("non-admin %s on users allowed", act)
		}
		if !Can(admin, act, ResourceUser, NoOwner) {
			t.Errorf("admin %s on users denied", act)
		}
	}
}

func TestCan_Profile(t *testing.T) {
	if Can(anon, ActionRead, ResourceProfile, NoOwner) {
		t.Error("anonymous profile read allowed")
	}
	if !Can(author, ActionRead, ResourceProfile, author.ID) {
		t.Error("profile read denied")
	}
	if !Can(author, ActionUpdate, ResourceProfile, author.ID) {
		t.Error("profile update denied")
	}
	if Can(author, ActionDelete, ResourceProfile, author.ID) {
		t.Error("profile delete allowed")
	}
}

func TestCheck(t *testing.T) {
	if err := Check(admin, ActionCreate, ResourceTitle, NoOwner); err != nil {
		t.Errorf("Check(admin) = %v, want nil", err)
	}

	err := Check(anon, ActionCreate, ResourceReview, NoOwner)
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("Check(anon) = %v, want ErrUnauthorized", err)
	}

	err = Check(other, ActionDelete, ResourceReview, author.ID)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Check(other) = %v, want ErrForbidden", err)
	}
}

func TestCheckAny(t *testing.T) {
	tests := []struct {
		name     string
		actor    *model.User
		action   Action
		resource Resource
		want     error
	}{
		{"anonymous title create", anon, ActionCreate, ResourceTitle, apperror.ErrUnauthorized},
		{"user title create", author, ActionCreate, ResourceTitle, apperror.ErrForbidden},
		{"admin title create", admin, ActionCreate, ResourceTitle, nil},
		{"anonymous review update", anon, ActionUpdate, ResourceReview, apperror.ErrUnauthorized},
		{"user review update", other, ActionUpdate, ResourceReview, nil},
		{"user comment create", other, ActionCreate, ResourceComment, nil},
		{"user admin create", author, ActionCreate, ResourceUser, apperror.ErrForbidden},
		{"anonymous profile update", anon, ActionUpdate, ResourceProfile, apperror.ErrUnauthorized},
		{"user profile update", author, ActionUpdate, ResourceProfile, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckAny(tt.actor, tt.action, tt.resource)
			if tt.want == nil {
				if err != nil {
					t.Errorf("CheckAny() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("CheckAny() = %v, want %v", err, tt.want)
			}
		})
	}
}
