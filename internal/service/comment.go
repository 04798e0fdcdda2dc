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

type CommentInput struct {
	Text *string
}

// CommentService manages comments under /titles/{title_id}/reviews/{review_id}.
// The review must belong to the title in the path.
type CommentService struct {
	comments repository.CommentRepository
	reviews  repository.ReviewRepository
	logger   *slog.Logger
}

func NewCommentService(comments repository.CommentRepository, reviews repository.ReviewRepository, logger *slog.Logger) *CommentService {
	return &CommentService{comments: comments, reviews: reviews, logger: logger}
}

func (s *CommentService) List(ctx context.Context, titleID, reviewID int64, opts repository.ListOptions) (repository.Page[model.Comment], error) {
	if err := checkListOptions(repository.CommentOrderings, opts); err != nil {
		return repository.Page[model.Comment]{}, err
	}
	if _, err := s.reviews.Get(ctx, titleID, reviewID); err != nil {
		return repository.Page[model.Comment]{}, err
	}
	return s.comments.List(ctx, titleID, reviewID, opts)
}

func (s *CommentService) Get(ctx context.Context, titleID, reviewID, id int64) (*model.Comment, error) {
	return s.comments.Get(ctx, titleID, reviewID, id)
}

func (s *CommentService) Create(ctx context.Context, actor *model.User, titleID, reviewID int64, in CommentInput) (*model.Comment, error) {
	if err := access.Check(actor, access.ActionCreate, access.ResourceComment, access.NoOwner); err != nil {
		return nil, err
	}
	if _, err := s.reviews.Get(ctx, titleID, reviewID); err != nil {
		return nil, err
	}

	errs := apperror.FieldErrors{}
	checkText(errs, "text", in.Text, 0)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	comment := &model.Comment{ReviewID: reviewID, AuthorID: actor.ID, Text: *in.Text}
	if err := s.comments.Create(ctx, titleID, comment); err != nil {
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	s.logger.Info("comment created",
		slog.Int64("review_id", reviewID),
		slog.Int64("comment_id", comment.ID),
		slog.String("author", actor.Username),
	)
	return comment, nil
}

func (s *CommentService) Update(ctx context.Context, actor *model.User, titleID, reviewID, id int64, in CommentInput) (*model.Comment, error) {
	comment, err := s.comments.Get(ctx, titleID, reviewID, id)
	if err != nil {
		return nil, err
	}
	if err := access.Check(actor, access.ActionUpdate, access.ResourceComment, comment.AuthorID); err != nil {
		return nil, err
	}

	if in.Text != nil {
		errs := apperror.FieldErrors{}
		checkText(errs, "text", in.Text, 0)
		if err := errs.Err(); err != nil {
			return nil, err
		}
		comment.Text = *in.Text
	}

	if err := s.comments.Update(ctx, titleID, comment); err != nil {
		return nil, fmt.Errorf("updating comment %d: %w", id, err)
	}

	s.logger.Info("comment updated", slog.Int64("comment_id", id), slog.String("by", actor.Username))
	return comment, nil
}

func (s *CommentService) Delete(ctx context.Context, actor *model.User, titleID, reviewID, id int64) error {
	comment, err := s.comments.Get(ctx, titleID, reviewID, id)
	if err != nil {
		return err
	}
	if err := access.Check(actor, access.ActionDelete, access.ResourceComment, comment.AuthorID); err != nil {
		return err
	}
	if err := s.comments.Delete(ctx, titleID, reviewID, id); err != nil {
		return fmt.Errorf("deleting comment %d: %w", id, err)
	}

	s.logger.Info("comment deleted", slog.Int64("comment_id", id), slog.String("by", actor.Username))
	return nil
}
