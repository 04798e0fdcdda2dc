package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/RomanK74/api-yamdb/internal/apperror"
	"github.com/RomanK74/api-yamdb/internal/model"
	"github.com/RomanK74/api-yamdb/internal/repository"
)

var _ repository.TitleRepository = (*TitleDB)(nil)

// TitleDB is the titles table together with its genre links.
//
// Reads compute rating on the fly as AVG(reviews.score). Nothing is cached, so
// the value always reflects the reviews committed at query time.
type TitleDB struct {
	db *DB
}

const titleSelect = `
	SELECT t.id, t.name, t.year, t.description, c.id, c.name, c.slug,
	       (SELECT AVG(r.score) FROM reviews r WHERE r.title_id = t.id)
	FROM titles t
	LEFT JOIN categories c ON c.id = t.category_id`

var titleOrderColumns = map[string]string{"id": "t.id", "name": "t.name", "year": "t.year"}

func scanTitle(s scanner) (*model.Title, error) {
	var (
		t       model.Title
		desc    sql.NullString
		catID   sql.NullInt64
		catName sql.NullString
		catSlug sql.NullString
		rating  sql.NullFloat64
	)
	if err := s.Scan(&t.ID, &t.Name, &t.Year, &desc, &catID, &catName, &catSlug, &rating); err != nil {
		return nil, err
	}
	if desc.Valid {
		t.Description = &desc.String
	}
	if catID.Valid {
		t.Category = &model.Category{ID: catID.Int64, Name: catName.String, Slug: catSlug.String}
	}
	if rating.Valid {
		t.Rating = &rating.Float64
	}
	t.Genres = []model.Genre{}
	return &t, nil
}

func (d *TitleDB) Create(ctx context.Context, in repository.TitleWrite) (*model.Title, error) {
	var title *model.Title

	err := d.db.withTx(ctx, func(tx *sql.Tx) error {
		categoryID, genreIDs, err := resolveSlugs(ctx, tx, in)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO titles (name, year, description, category_id) VALUES (?, ?, ?, ?)`,
			in.Name, in.Year, in.Description, categoryID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: creating title %q: %w", in.Name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading title id: %w", err)
		}

		if err := linkGenres(ctx, tx, id, genreIDs); err != nil {
			return err
		}

		title, err = getTitle(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return title, nil
}

// Update replaces every column and the full genre set of title id.
func (d *TitleDB) Update(ctx context.Context, id int64, in repository.TitleWrite) (*model.Title, error) {
	var title *model.Title

	err := d.db.withTx(ctx, func(tx *sql.Tx) error {
		categoryID, genreIDs, err := resolveSlugs(ctx, tx, in)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE titles SET name = ?, year = ?, description = ?, category_id = ? WHERE id = ?`,
			in.Name, in.Year, in.Description, categoryID, id,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating title %d: %w", id, err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperror.NotFound("title", strconv.FormatInt(id, 10))
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM genre_title WHERE title_id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: clearing genres of title %d: %w", id, err)
		}
		if err := linkGenres(ctx, tx, id, genreIDs); err != nil {
			return err
		}

		title, err = getTitle(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return title, nil
}

// resolveSlugs maps the category and genre slugs of in to row IDs. An unknown
// slug is a validation error on the field that named it. Duplicate genre
// slugs collapse to one link.
func resolveSlugs(ctx context.Context, q queryer, in repository.TitleWrite) (*int64, []int64, error) {
	var categoryID *int64
	if in.Category != nil {
		id, err := slugID(ctx, q, "categories", *in.Category)
		if err != nil {
			return nil, nil, err
		}
		if id == 0 {
			return nil, nil, apperror.ValidationFailed("category", noSuchSlug(*in.Category))
		}
		categoryID = &id
	}

	seen := make(map[int64]bool, len(in.Genres))
	genreIDs := make([]int64, 0, len(in.Genres))
	for _, slug := range in.Genres {
		id, err := slugID(ctx, q, "genres", slug)
		if err != nil {
			return nil, nil, err
		}
		if id == 0 {
			return nil, nil, apperror.ValidationFailed("genre", noSuchSlug(slug))
		}
		if !seen[id] {
			seen[id] = true
			genreIDs = append(genreIDs, id)
		}
	}

	return categoryID, genreIDs, nil
}

func noSuchSlug(slug string) string {
	return fmt.Sprintf("Object with slug=%s does not exist.", slug)
}

// slugID returns 0 when no row has slug.
func slugID(ctx context.Context, q queryer, table, slug string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM `+table+` WHERE slug = ?`, slug).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite: resolving %s slug %q: %w", table, slug, err)
	}
	return id, nil
}

func linkGenres(ctx context.Context, q queryer, titleID int64, genreIDs []int64) error {
	for _, gid := range genreIDs {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO genre_title (title_id, genre_id) VALUES (?, ?)`, titleID, gid); err != nil {
			return fmt.Errorf("sqlite: linking genre %d to title %d: %w", gid, titleID, err)
		}
	}
	return nil
}

func (d *TitleDB) GetByID(ctx context.Context, id int64) (*model.Title, error) {
	return getTitle(ctx, d.db.conn, id)
}

func getTitle(ctx context.Context, q queryer, id int64) (*model.Title, error) {
	title, err := scanTitle(q.QueryRowContext(ctx, titleSelect+` WHERE t.id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("title", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting title %d: %w", id, err)
	}

	titles := []model.Title{*title}
	if err := loadGenres(ctx, q, titles); err != nil {
		return nil, err
	}
	return &titles[0], nil
}

// List applies filter and opts. The count and the page come from the same
// WHERE clause.
func (d *TitleDB) List(ctx context.Context, filter repository.TitleFilter, opts repository.ListOptions) (repository.Page[model.Title], error) {
	opts = opts.Normalize()

	var (
		conds []string
		args  []any
	)
	if filter.Genre != "" {
		conds = append(conds, `EXISTS (
			SELECT 1 FROM genre_title gt JOIN genres g ON g.id = gt.genre_id
			WHERE gt.title_id = t.id AND g.slug = ?)`)
		args = append(args, filter.Genre)
	}
	if filter.Category != "" {
		conds = append(conds, `c.slug = ?`)
		args = append(args, filter.Category)
	}
	if filter.Name != "" {
		// instr is case-sensitive, unlike LIKE
		conds = append(conds, `instr(t.name, ?) > 0`)
		args = append(args, filter.Name)
	}
	if filter.Year != nil {
		conds = append(conds, `t.year = ?`)
		args = append(args, *filter.Year)
	}
	clause := where(conds)

	page := repository.Page[model.Title]{Results: []model.Title{}}
	if err := d.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM titles t LEFT JOIN categories c ON c.id = t.category_id`+clause,
		args...,
	).Scan(&page.Count); err != nil {
		return page, fmt.Errorf("sqlite: counting titles: %w", err)
	}

	order := orderBy(repository.TitleOrderings, opts.Ordering, titleOrderColumns, "t.id")
	rows, err := d.db.conn.QueryContext(ctx,
		titleSelect+clause+` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		append(args, opts.Limit, opts.Offset)...,
	)
	if err != nil {
		return page, fmt.Errorf("sqlite: listing titles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		title, err := scanTitle(rows)
		if err != nil {
			return page, fmt.Errorf("sqlite: scanning title row: %w", err)
		}
		page.Results = append(page.Results, *title)
	}
	if err := rows.Err(); err != nil {
		return page, fmt.Errorf("sqlite: iterating titles: %w", err)
	}
	rows.Close()

	if err := loadGenres(ctx, d.db.conn, page.Results); err != nil {
		return page, err
	}
	return page, nil
}

// loadGenres fills Genres for every title with one query.
func loadGenres(ctx context.Context, q queryer, titles []model.Title) error {
	if len(titles) == 0 {
		return nil
	}

	index := make(map[int64]int, len(titles))
	args := make([]any, len(titles))
	for i := range titles {
		index[titles[i].ID] = i
		args[i] = titles[i].ID
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(titles)), ",")

	rows, err := q.QueryContext(ctx, `
		SELECT gt.title_id, g.id, g.name, g.slug
		FROM genre_title gt
		JOIN genres g ON g.id = gt.genre_id
		WHERE gt.title_id IN (`+placeholders+`)
		ORDER BY g.id`, args...)
	if err != nil {
		return fmt.Errorf("sqlite: loading title genres: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			titleID int64
			g       model.Genre
		)
		if err := rows.Scan(&titleID, &g.ID, &g.Name, &g.Slug); err != nil {
			return fmt.Errorf("sqlite: scanning title genre: %w", err)
		}
		i := index[titleID]
		titles[i].Genres = append(titles[i].Genres, g)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating title genres: %w", err)
	}
	return nil
}

// Delete removes the title with its genre links, reviews and their comments.
func (d *TitleDB) Delete(ctx context.Context, id int64) error {
	res, err := d.db.conn.ExecContext(ctx, `DELETE FROM titles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting title %d: %w", id, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("title", strconv.FormatInt(id, 10))
	}
	return nil
}
