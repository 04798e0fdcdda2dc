package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/RomanK74/api-yamdb/internal/apperror"
	"github.com/RomanK74/api-yamdb/internal/model"
	"github.com/RomanK74/api-yamdb/internal/repository"
)

var _ repository.TermRepository = (*TermDB)(nil)

// TermDB is the categories or the genres table; both have the same columns.
// table is one of two constants chosen in DB.Categories/DB.Genres and never
// comes from input, so it is safe to format into SQL.
type TermDB struct {
	db       *DB
	table    string
	resource string
}

var termOrderColumns = map[string]string{"id": "id", "name": "name", "slug": "slug"}

func (t *TermDB) Create(ctx context.Context, term *model.Term) error {
	res, err := t.db.conn.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (name, slug) VALUES (?, ?)`, t.table),
		term.Name, term.Slug,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.FieldConflict("slug", fmt.Sprintf("%s with this slug already exists.", t.resource))
		}
		return fmt.Errorf("sqlite: creating %s %q: %w", t.resource, term.Slug, err)
	}

	term.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading %s id: %w", t.resource, err)
	}
	return nil
}

func (t *TermDB) GetBySlug(ctx context.Context, slug string) (*model.Term, error) {
	var term model.Term
	err := t.db.conn.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT id, name, slug FROM %s WHERE slug = ?`, t.table), slug,
	).Scan(&term.ID, &term.Name, &term.Slug)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound(t.resource, slug)
		}
		return nil, fmt.Errorf("sqlite: getting %s %q: %w", t.resource, slug, err)
	}
	return &term, nil
}

// List matches search as a case-insensitive substring of name or slug.
func (t *TermDB) List(ctx context.Context, search string, opts repository.ListOptions) (repository.Page[model.Term], error) {
	opts = opts.Normalize()

	var (
		conds []string
		args  []any
	)
	if search != "" {
		conds = append(conds, `(instr(lower(name), lower(?)) > 0 OR instr(lower(slug), lower(?)) > 0)`)
		args = append(args, search, search)
	}
	filter := where(conds)

	page := repository.Page[model.Term]{Results: []model.Term{}}
	if err := t.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+t.table+filter, args...).Scan(&page.Count); err != nil {
		return page, fmt.Errorf("sqlite: counting %s: %w", t.table, err)
	}

	order := orderBy(repository.TermOrderings, opts.Ordering, termOrderColumns, "id")
	rows, err := t.db.conn.QueryContext(ctx,
		`SELECT id, name, slug FROM `+t.table+filter+` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		append(args, opts.Limit, opts.Offset)...,
	)
	if err != nil {
		return page, fmt.Errorf("sqlite: listing %s: %w", t.table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var term model.Term
		if err := rows.Scan(&term.ID, &term.Name, &term.Slug); err != nil {
			return page, fmt.Errorf("sqlite: scanning %s row: %w", t.resource, err)
		}
		page.Results = append(page.Results, term)
	}
	if err := rows.Err(); err != nil {
		return page, fmt.Errorf("sqlite: iterating %s: %w", t.table, err)
	}
	return page, nil
}

// Delete removes the term. Deleting a category leaves its titles without
// one; deleting a genre drops its title links.
func (t *TermDB) Delete(ctx context.Context, slug string) error {
	res, err := t.db.conn.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE slug = ?`, t.table), slug)
	if err != nil {
		return fmt.Errorf("sqlite: deleting %s %q: %w", t.resource, slug, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound(t.resource, slug)
	}
	return nil
}
