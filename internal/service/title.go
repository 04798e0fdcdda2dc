package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/RomanK74/api-yamdb/internal/access"
	"github.com/RomanK74/api-yamdb/internal/apperror"
	"github.com/RomanK74/api-yamdb/internal/model"
	"github.com/RomanK74/api-yamdb/internal/repository"
)

// TitleInput is the write projection of a title. Category and Genres are slugs.
// For updates a nil field keeps its current value.
type TitleInput struct {
	Name        *string
	Year        *int
	Description *string
	Category    *string
	Genres      *[]string

	// ClearCategory detaches the title from its category. Category must be nil.
	ClearCategory bool
}

type TitleService struct {
	repo   repository.TitleRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewTitleService(repo repository.TitleRepository, logger *slog.Logger) *TitleService {
	return &TitleService{repo: repo, logger: logger, now: time.Now}
}

func (s *TitleService) List(ctx context.Context, filter repository.TitleFilter, opts repository.ListOptions) (repository.Page[model.Title], error) {
	if err := checkListOptions(repository.TitleOrderings, opts); err != nil {
		return repository.Page[model.Title]{}, err
	}
	return s.repo.List(ctx, filter, opts)
}

func (s *TitleService) Get(ctx context.Context, id int64) (*model.Title, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *TitleService) Create(ctx context.Context, actor *model.User, in TitleInput) (*model.Title, error) {
	if err := access.Check(actor, access.ActionCreate, access.ResourceTitle, access.NoOwner); err != nil {
		return nil, err
	}

	errs := apperror.FieldErrors{}
	checkText(errs, "name", in.Name, MaxNameLength)
	if in.Year == nil {
		errs.Add("year", msgRequired)
	}
	s.checkOptional(errs, in)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	w := repository.TitleWrite{
		Name:        strings.TrimSpace(*in.Name),
		Year:        *in.Year,
		Description: in.Description,
		Category:    in.Category,
	}
	if in.Genres != nil {
		w.Genres = *in.Genres
	}

	title, err := s.repo.Create(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("creating title: %w", err)
	}

	s.logger.Info("title created", slog.Int64("id", title.ID), slog.String("by", actor.Username))
	return title, nil
}

// Update applies a partial update: fields left nil keep their stored value.
func (s *TitleService) Update(ctx context.Context, actor *model.User, id int64, in TitleInput) (*model.Title, error) {
	if err := access.Check(actor, access.ActionUpdate, access.ResourceTitle, access.NoOwner); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	errs := apperror.FieldErrors{}
	if in.Name != nil {
		checkText(errs, "name", in.Name, MaxNameLength)
	}
	s.checkOptional(errs, in)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	w := repository.TitleWrite{
		Name:        current.Name,
		Year:        current.Year,
		Description: current.Description,
	}
	if current.Category != nil {
		w.Category = &current.Category.Slug
	}
	for _, g := range current.Genres {
		w.Genres = append(w.Genres, g.Slug)
	}

	if in.Name != nil {
		w.Name = strings.TrimSpace(*in.Name)
	}
	if in.Year != nil {
		w.Year = *in.Year
	}
	if in.Description != nil {
		w.Description = in.Description
	}
	if in.Category != nil {
		w.Category = in.Category
	}
	if in.ClearCategory {
		w.Category = nil
	}
	if in.Genres != nil {
		w.Genres = *in.Genres
	}

	title, err := s.repo.Update(ctx, id, w)
	if err != nil {
		return nil, fmt.Errorf("updating title %d: %w", id, err)
	}

	s.logger.Info("title updated", slog.Int64("id", id), slog.String("by", actor.Username))
	return title, nil
}

func (s *TitleService) Delete(ctx context.Context, actor *model.User, id int64) error {
	if err := access.Check(actor, access.ActionDelete, access.ResourceTitle, access.NoOwner); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting title %d: %w", id, err)
	}
	s.logger.Info("title deleted", slog.Int64("id", id), slog.String("by", actor.Username))
	return nil
}

// checkOptional validates the fields that may be absent on create and update.
// The year bound is taken from the clock at validation time.
func (s *TitleService) checkOptional(errs apperror.FieldErrors, in TitleInput) {
	if in.Year != nil {
		switch {
		case *in.Year < 0:
			errs.Add("year", msgNegative)
		case *in.Year > s.now().Year():
			errs.Add("year", msgFuture)
		}
	}
	if in.Category != nil && *in.Category == "" {
		errs.Add("category", msgBlank)
	}
	if in.Genres != nil {
		for _, slug := range *in.Genres {
			if slug == "" {
				errs.Add("genre", msgBlank)
				break
			}
		}
	}
}
