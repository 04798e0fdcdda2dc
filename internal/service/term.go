package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/RomanK74/api-yamdb/internal/access"
	"github.com/RomanK74/api-yamdb/internal/apperror"
	"github.com/RomanK74/api-yamdb/internal/model"
	"github.com/RomanK74/api-yamdb/internal/repository"
)

// TermInput is the body of a category or genre create.
type TermInput struct {
	Name *string
	Slug *string
}

// TermService manages one classifier collection: categories or genres.
type TermService struct {
	repo     repository.TermRepository
	resource access.Resource
	logger   *slog.Logger
}

// NewTermService creates a TermService. resource is access.ResourceCategory
// or access.ResourceGenre.
func NewTermService(repo repository.TermRepository, resource access.Resource, logger *slog.Logger) *TermService {
	return &TermService{repo: repo, resource: resource, logger: logger}
}

// Resource is the access resource this collection is checked against.
func (s *TermService) Resource() access.Resource { return s.resource }

func (s *TermService) List(ctx context.Context, search string, opts repository.ListOptions) (repository.Page[model.Term], error) {
	if err := checkListOptions(repository.TermOrderings, opts); err != nil {
		return repository.Page[model.Term]{}, err
	}
	return s.repo.List(ctx, strings.TrimSpace(search), opts)
}

func (s *TermService) Create(ctx context.Context, actor *model.User, in TermInput) (*model.Term, error) {
	if err := access.Check(actor, access.ActionCreate, s.resource, access.NoOwner); err != nil {
		return nil, err
	}

	errs := apperror.FieldErrors{}
	checkText(errs, "name", in.Name, MaxNameLength)
	slug := ""
	if in.Slug != nil {
		slug = strings.TrimSpace(*in.Slug)
	}
	checkSlug(errs, "slug", slug)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	term := &model.Term{Name: strings.TrimSpace(*in.Name), Slug: slug}
	if err := s.repo.Create(ctx, term); err != nil {
		return nil, fmt.Errorf("creating term %q: %w", slug, conflictAsValidation(err))
	}

	s.logger.Info("term created", slog.String("slug", term.Slug), slog.String("by", actor.Username))
	return term, nil
}

func (s *TermService) Delete(ctx context.Context, actor *model.User, slug string) error {
	if err := access.Check(actor, access.ActionDelete, s.resource, access.NoOwner); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, slug); err != nil {
		return fmt.Errorf("deleting term %q: %w", slug, err)
	}
	s.logger.Info("term deleted", slog.String("slug", slug), slog.String("by", actor.Username))
	return nil
}
