package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/RomanK74/api-yamdb/internal/access"
	"github.com/RomanK74/api-yamdb/internal/apperror"
	"github.com/RomanK74/api-yamdb/internal/model"
	"github.com/RomanK74/api-yamdb/internal/repository"
)

// ReviewInput is the body of a review create or update. On update nil
// fields are left unchanged; on create a nil Score means model.DefaultScore.
type ReviewInput struct {
	Text  *string
	Score *int
}

type ReviewService struct {
	reviews repository.ReviewRepository
	titles  repository.TitleRepository
	logger  *slog.Logger
}

func NewReviewService(reviews repository.ReviewRepository, titles repository.TitleRepository, logger *slog.Logger) *ReviewService {
	return &ReviewService{reviews: reviews, titles: titles, logger: logger}
}

// List returns the reviews of one title. A missing title is NotFound rather
// than an empty page.
func (s *ReviewService) List(ctx context.Context, titleID int64, opts repository.ListOptions) (repository.Page[model.Review], error) {
	if err := checkListOptions(repository.ReviewOrderings, opts); err != nil {
		return repository.Page[model.Review]{}, err
	}
	if _, err := s.titles.GetByID(ctx, titleID); err != nil {
		return repository.Page[model.Review]{}, err
	}
	return s.reviews.List(ctx, titleID, opts)
}

func (s *ReviewService) Get(ctx context.Context, titleID, id int64) (*model.Review, error) {
	return s.reviews.Get(ctx, titleID, id)
}

func (s *ReviewService) Create(ctx context.Context, actor *model.User, titleID int64, in ReviewInput) (*model.Review, error) {
	if err := access.Check(actor, access.ActionCreate, access.ResourceReview, access.NoOwner); err != nil {
		return nil, err
	}
	if _, err := s.titles.GetByID(ctx, titleID); err != nil {
		return nil, err
	}

	errs := apperror.FieldErrors{}
	checkText(errs, "text", in.Text, 0)
	checkScore(errs, in.Score)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	exists, err := s.reviews.Exists(ctx, titleID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("checking existing review: %w", err)
	}
	if exists {
		return nil, apperror.ValidationFailed(apperror.NonFieldErrors, repository.DuplicateReviewMessage)
	}

	review := &model.Review{
		TitleID:  titleID,
		AuthorID: actor.ID,
		Text:     *in.Text,
		Score:    model.DefaultScore,
	}
	if in.Score != nil {
		review.Score = *in.Score
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("creating review: %w", conflictAsValidation(err))
	}

	s.logger.Info("review created",
		slog.Int64("title_id", titleID),
		slog.Int64("review_id", review.ID),
		slog.String("author", actor.Username),
	)
	return review, nil
}

// Update edits text and score. The title, author and pub_date never change.
func (s *ReviewService) Update(ctx context.Context, actor *model.User, titleID, id int64, in ReviewInput) (*model.Review, error) {
	review, err := s.reviews.Get(ctx, titleID, id)
	if err != nil {
		return nil, err
	}
	if err := access.Check(actor, access.ActionUpdate, access.ResourceReview, review.AuthorID); err != nil {
		return nil, err
	}

	errs := apperror.FieldErrors{}
	if in.Text != nil {
		checkText(errs, "text", in.Text, 0)
	}
	checkScore(errs, in.Score)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	if in.Text != nil {
		review.Text = *in.Text
	}
	if in.Score != nil {
		review.Score = *in.Score
	}
	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, fmt.Errorf("updating review %d: %w", id, err)
	}

	s.logger.Info("review updated", slog.Int64("review_id", id), slog.String("by", actor.Username))
	return review, nil
}

func (s *ReviewService) Delete(ctx context.Context, actor *model.User, titleID, id int64) error {
	review, err := s.reviews.Get(ctx, titleID, id)
	if err != nil {
		return err
	}
	if err := access.Check(actor, access.ActionDelete, access.ResourceReview, review.AuthorID); err != nil {
		return err
	}
	if err := s.reviews.Delete(ctx, titleID, id); err != nil {
		return fmt.Errorf("deleting review %d: %w", id, err)
	}

	s.logger.Info("review deleted", slog.Int64("review_id", id), slog.String("by", actor.Username))
	return nil
}

func checkScore(errs apperror.FieldErrors, score *int) {
	if score != nil && (*score < MinScore || *score > MaxScore) {
		errs.Add("score", msgScore)
	}
}
