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

var _ repository.CommentRepository = (*CommentDB)(nil)

// CommentDB is the comments table.
//
// Comments are addressed by (title, review, comment). Every statement joins
// through reviews to check that the review really belongs to the title, so
// /titles/1/reviews/7/comments cannot reach a review of title 2.
type CommentDB struct {
	db *DB
}

const commentSelect = `
	SELECT c.id, c.review_id, c.author_id, u.username, c.text, c.pub_date
	FROM comments c
	JOIN reviews r ON r.id = c.review_id
	JOIN users u ON u.id = c.author_id`

var commentOrderColumns = map[string]string{"pub_date": "c.pub_date"}

func scanComment(s scanner) (*model.Comment, error) {
	var c model.Comment
	if err := s.Scan(&c.ID, &c.ReviewID, &c.AuthorID, &c.Author, &c.Text, &c.PubDate); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts comment under comment.ReviewID when that review belongs to
// titleID, and fills in ID, Author and PubDate.
func (d *CommentDB) Create(ctx context.Context, titleID int64, comment *model.Comment) error {
	comment.PubDate = time.Now().UTC()

	// INSERT ... SELECT ... WHERE EXISTS inserts nothing when the review is
	// missing or under another title. The check and the write are one statement.
	res, err := d.db.conn.ExecContext(ctx,
		`INSERT INTO comments (review_id, author_id, text, pub_date)
		 SELECT ?, ?, ?, ?
		 WHERE EXISTS (SELECT 1 FROM reviews WHERE id = ? AND title_id = ?)`,
		comment.ReviewID, comment.AuthorID, comment.Text, comment.PubDate,
		comment.ReviewID, titleID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("review", strconv.FormatInt(comment.ReviewID, 10))
		}
		return fmt.Errorf("sqlite: creating comment on review %d: %w", comment.ReviewID, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("review", strconv.FormatInt(comment.ReviewID, 10))
	}

	comment.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading comment id: %w", err)
	}

	stored, err := d.Get(ctx, titleID, comment.ReviewID, comment.ID)
	if err != nil {
		return err
	}
	*comment = *stored
	return nil
}

func (d *CommentDB) Get(ctx context.Context, titleID, reviewID, id int64) (*model.Comment, error) {
	comment, err := scanComment(d.db.conn.QueryRowContext(ctx,
		commentSelect+` WHERE c.id = ? AND c.review_id = ? AND r.title_id = ?`,
		id, reviewID, titleID,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("comment", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting comment %d: %w", id, err)
	}
	return comment, nil
}

func (d *CommentDB) List(ctx context.Context, titleID, reviewID int64, opts repository.ListOptions) (repository.Page[model.Comment], error) {
	opts = opts.Normalize()

	page := repository.Page[model.Comment]{Results: []model.Comment{}}
	if err := d.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM comments c JOIN reviews r ON r.id = c.review_id
		 WHERE c.review_id = ? AND r.title_id = ?`,
		reviewID, titleID,
	).Scan(&page.Count); err != nil {
		return page, fmt.Errorf("sqlite: counting comments of review %d: %w", reviewID, err)
	}

	order := orderBy(repository.CommentOrderings, opts.Ordering, commentOrderColumns, "c.id")
	rows, err := d.db.conn.QueryContext(ctx,
		commentSelect+` WHERE c.review_id = ? AND r.title_id = ? ORDER BY `+order+` LIMIT ? OFFSET ?`,
		reviewID, titleID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return page, fmt.Errorf("sqlite: listing comments of review %d: %w", reviewID, err)
	}
	defer rows.Close()

	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return page, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		page.Results = append(page.Results, *comment)
	}
	if err := rows.Err(); err != nil {
		return page, fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	return page, nil
}

func (d *CommentDB) Update(ctx context.Context, titleID int64, comment *model.Comment) error {
	res, err := d.db.conn.ExecContext(ctx,
		`UPDATE comments SET text = ?
		 WHERE id = ? AND review_id = ?
		   AND review_id IN (SELECT id FROM reviews WHERE title_id = ?)`,
		comment.Text, comment.ID, comment.ReviewID, titleID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating comment %d: %w", comment.ID, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("comment", strconv.FormatInt(comment.ID, 10))
	}
	return nil
}

func (d *CommentDB) Delete(ctx context.Context, titleID, reviewID, id int64) error {
	res, err := d.db.conn.ExecContext(ctx,
		`DELETE FROM comments
		 WHERE id = ? AND review_id = ?
		   AND review_id IN (SELECT id FROM reviews WHERE title_id = ?)`,
		id, reviewID, titleID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %d: %w", id, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("comment", strconv.FormatInt(id, 10))
	}
	return nil
}
