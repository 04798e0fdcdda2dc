// Package access decides who may do what.
//
// Every rule lives in Can, a pure function of the actor, the action, the
// resource kind and the owner of the target object. Services call Check
// before touching storage. Handlers call CheckAny before reading a request
// body, so callers who could never succeed are turned away first.
package access

import (
	"github.com/RomanK74/api-yamdb/internal/apperror"
	"github.com/RomanK74/api-yamdb/internal/model"
)

type Action int

const (
	ActionRead Action = iota
	ActionCreate
	ActionUpdate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionRead:
		return "read"
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	}
	return "unknown"
}

type Resource int

const (
	ResourceCategory Resource = iota
	ResourceGenre
	ResourceTitle
	ResourceReview
	ResourceComment
	// ResourceUser is the admin-managed user collection.
	ResourceUser
	// ResourceProfile is the caller's own account (/users/me).
	ResourceProfile
)

// NoOwner is passed as ownerID for resources that have no author.
const NoOwner int64 = 0

const (
	msgNotAuthenticated = "Authentication credentials were not provided."
	msgForbidden        = "You do not have permission to perform this action."
)

// Can reports whether actor may perform action on a resource owned by ownerID.
// A nil actor is an anonymous caller.
func Can(actor *model.User, action Action, resource Resource, ownerID int64) bool {
	switch resource {
	case ResourceCategory, ResourceGenre, ResourceTitle:
		if action == ActionRead {
			return true
		}
		return actor.IsAdmin()

	case ResourceReview, ResourceComment:
		switch action {
		case ActionRead:
			return true
		case ActionCreate:
			return actor != nil
		case ActionUpdate, ActionDelete:
			if actor == nil {
				return false
			}
			return actor.ID == ownerID || actor.IsModerator() || actor.IsAdmin()
		}

	case ResourceUser:
		return actor.IsAdmin()

	case ResourceProfile:
		return actor != nil && (action == ActionRead || action == ActionUpdate)
	}

	return false
}

// Check is Can turned into an error: Unauthorized for anonymous callers,
// Forbidden for authenticated ones.
func Check(actor *model.User, action Action, resource Resource, ownerID int64) error {
	if Can(actor, action, resource, ownerID) {
		return nil
	}
	if actor == nil {
		return apperror.Unauthorized(msgNotAuthenticated)
	}
	return apperror.Forbidden(msgForbidden)
}

// CheckAny is Check for a caller who has not named a target object yet. It
// fails only when actor could act on no object of resource: an author passes
// for review updates and the per-object Check decides later.
func CheckAny(actor *model.User, action Action, resource Resource) error {
	owner := NoOwner
	if actor != nil {
		owner = actor.ID
	}
	return Check(actor, action, resource, owner)
}
