package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/RomanK74/api-yamdb/internal/apperror"
	"github.com/RomanK74/api-yamdb/internal/model"
	"github.com/RomanK74/api-yamdb/internal/repository"
)

var _ repository.ReviewRepository = (*ReviewDB)(nil)

// ReviewDB is the reviews table. Every query is keyed by title as well as
// review ID, so a review is unreachable through any other title's URL.
type ReviewDB struct {
	db *DB
}

const reviewSelect = `
	SELECT r.id, r.title_id, r.author_id, u.username, r.text, r.score, r.pub_date
	FROM reviews r
	JOIN users u ON u.id = r.author_id`

var reviewOrderColumns = map[string]string{"pub_date": "r.pub_date", "score": "r.score"}

func scanReview(s scanner) (*model.Review, error) {
	var r model.Review
	if err := s.Scan(&r.ID, &r.TitleID, &r.AuthorID, &r.Author, &r.Text, &r.Score, &r.PubDate); err != nil {
		return nil, err
	}
	return &r, nil
}

func (d *ReviewDB) Exists(ctx context.Context, titleID, authorID int64) (bool, error) {
	var exists bool
	err := d.db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM reviews WHERE title_id = ? AND author_id = ?)`,
		titleID, authorID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking review of title %d by user %d: %w", titleID, authorID, err)
	}
	return exists, nil
}

// Create inserts review and fills in ID, Author and PubDate.
//
// The UNIQUE(author_id, title_id) constraint decides the race between two
// concurrent first reviews: the loser gets the same error as the pre-check.
func (d *ReviewDB) Create(ctx context.Context, review *model.Review) error {
	review.PubDate = time.Now().UTC()

	res, err := d.db.conn.ExecContext(ctx,
		`INSERT INTO reviews (title_id, author_id, text, score, pub_date) VALUES (?, ?, ?, ?, ?)`,
		review.TitleID, review.AuthorID, review.Text, review.Score, review.PubDate,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.FieldConflict(apperror.NonFieldErrors, repository.DuplicateReviewMessage)
		}
		if isForeignKeyViolation(err) {
			return apperror.NotFound("title", strconv.FormatInt(review.TitleID, 10))
		}
		return fmt.Errorf("sqlite: creating review of title %d: %w", review.TitleID, err)
	}

	review.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading review id: %w", err)
	}

	stored, err := d.Get(ctx, review.TitleID, review.ID)
	if err != nil {
		return err
	}
	*review = *stored
	return nil
}

func (d *ReviewDB) Get(ctx context.Context, titleID, id int64) (*model.Review, error) {
	review, err := scanReview(d.db.conn.QueryRowContext(ctx,
		reviewSelect+` WHERE r.title_id = ? AND r.id = ?`, titleID, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("review", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting review %d: %w", id, err)
	}
	return review, nil
}

func (d *ReviewDB) List(ctx context.Context, titleID int64, opts repository.ListOptions) (repository.Page[model.Review], error) {
	opts = opts.Normalize()

	page := repository.Page[model.Review]{Results: []model.Review{}}
	if err := d.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews WHERE title_id = ?`, titleID).Scan(&page.Count); err != nil {
		return page, fmt.Errorf("sqlite: counting reviews of title %d: %w", titleID, err)
	}

	order := orderBy(repository.ReviewOrderings, opts.Ordering, reviewOrderColumns, "r.id")
	rows, err := d.db.conn.QueryContext(ctx,
		reviewSelect+` WHERE r.title_id = ? ORDER BY `+order+` LIMIT ? OFFSET ?`,
		titleID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return page, fmt.Errorf("sqlite: listing reviews of title %d: %w", titleID, err)
	}
	defer rows.Close()

	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return page, fmt.Errorf("sqlite: scanning review row: %w", err)
		}
		page.Results = append(page.Results, *review)
	}
	if err := rows.Err(); err != nil {
		return page, fmt.Errorf("sqlite: iterating reviews: %w", err)
	}
	return page, nil
}

// Update writes text and score. Title, author and pub_date never change.
func (d *ReviewDB) Update(ctx context.Context, review *model.Review) error {
	res, err := d.db.conn.ExecContext(ctx,
		`UPDATE reviews SET text = ?, score = ? WHERE title_id = ? AND id = ?`,
		review.Text, review.Score, review.TitleID, review.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating review %d: %w", review.ID, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("review", strconv.FormatInt(review.ID, 10))
	}
	return nil
}

// Delete removes the review and its comments.
func (d *ReviewDB) Delete(ctx context.Context, titleID, id int64) error {
	res, err := d.db.conn.ExecContext(ctx,
		`DELETE FROM reviews WHERE title_id = ? AND id = ?`, titleID, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting review %d: %w", id, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("review", strconv.FormatInt(id, 10))
	}
	return nil
}
