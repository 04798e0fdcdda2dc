package handler

import (
	"log/slog"
	"net/http"

	"github.com/RomanK74/api-yamdb/internal/access"
	"github.com/RomanK74/api-yamdb/internal/auth"
	"github.com/RomanK74/api-yamdb/internal/service"
)

// ReviewHandler serves /titles/{titleID}/reviews.
type ReviewHandler struct {
	reviews *service.ReviewService
	logger  *slog.Logger
}

func NewReviewHandler(reviews *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, logger: logger}
}

type reviewRequest struct {
	Text  *string `json:"text"`
	Score *int    `json:"score"`
}

func (h *ReviewHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	titleID, err := pathID(r, "titleID", "title")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	page, err := h.reviews.List(r.Context(), titleID, opts)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(page))
}

func (h *ReviewHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	titleID, id, err := reviewPath(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	review, err := h.reviews.Get(r.Context(), titleID, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (h *ReviewHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := authorize(r, access.ActionCreate, access.ResourceReview); err != nil {
		writeError(w, h.logger, err)
		return
	}
	titleID, err := pathID(r, "titleID", "title")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req reviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	review, err := h.reviews.Create(r.Context(), auth.UserFromContext(r.Context()), titleID,
		service.ReviewInput{Text: req.Text, Score: req.Score})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (h *ReviewHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := authorize(r, access.ActionUpdate, access.ResourceReview); err != nil {
		writeError(w, h.logger, err)
		return
	}
	titleID, id, err := reviewPath(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req reviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	review, err := h.reviews.Update(r.Context(), auth.UserFromContext(r.Context()), titleID, id,
		service.ReviewInput{Text: req.Text, Score: req.Score})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (h *ReviewHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	titleID, id, err := reviewPath(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.reviews.Delete(r.Context(), auth.UserFromContext(r.Context()), titleID, id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func reviewPath(r *http.Request) (titleID, reviewID int64, err error) {
	if titleID, err = pathID(r, "titleID", "title"); err != nil {
		return 0, 0, err
	}
	if reviewID, err = pathID(r, "reviewID", "review"); err != nil {
		return 0, 0, err
	}
	return titleID, reviewID, nil
}

// CommentHandler serves /titles/{titleID}/reviews/{reviewID}/comments.
type CommentHandler struct {
	comments *service.CommentService
	logger   *slog.Logger
}

func NewCommentHandler(comments *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger}
}

type commentRequest struct {
	Text *string `json:"text"`
}

func (h *CommentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, err := reviewPath(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	page, err := h.comments.List(r.Context(), titleID, reviewID, opts)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(page))
}

func (h *CommentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, id, err := commentPath(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	comment, err := h.comments.Get(r.Context(), titleID, reviewID, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h *CommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if err := authorize(r, access.ActionCreate, access.ResourceComment); err != nil {
		writeError(w, h.logger, err)
		return
	}
	titleID, reviewID, err := reviewPath(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	comment, err := h.comments.Create(r.Context(), auth.UserFromContext(r.Context()), titleID, reviewID,
		service.CommentInput{Text: req.Text})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *CommentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := authorize(r, access.ActionUpdate, access.ResourceComment); err != nil {
		writeError(w, h.logger, err)
		return
	}
	titleID, reviewID, id, err := commentPath(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	comment, err := h.comments.Update(r.Context(), auth.UserFromContext(r.Context()), titleID, reviewID, id,
		service.CommentInput{Text: req.Text})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h *CommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, id, err := commentPath(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.comments.Delete(r.Context(), auth.UserFromContext(r.Context()), titleID, reviewID, id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func commentPath(r *http.Request) (titleID, reviewID, commentID int64, err error) {
	if titleID, reviewID, err = reviewPath(r); err != nil {
		return 0, 0, 0, err
	}
	if commentID, err = pathID(r, "commentID", "comment"); err != nil {
		return 0, 0, 0, err
	}
	return titleID, reviewID, commentID, nil
}
