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

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB is the users table.
type UserDB struct {
	db *DB
}

const userColumns = `id, username, email, first_name, last_name, bio, role, is_superuser,
	confirmation_code_hash, confirmation_expires_at, date_joined`

var userOrderColumns = map[string]string{"id": "id", "username": "username"}

// scanner is the common surface of *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	var (
		u       model.User
		role    string
		expires sql.NullTime
	)
	err := s.Scan(
		&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.Bio,
		&role, &u.IsSuperuser, &u.ConfirmationCodeHash, &expires, &u.DateJoined,
	)
	if err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	if expires.Valid {
		t := expires.Time
		u.ConfirmationExpiresAt = &t
	}
	return &u, nil
}

// uniqueUserError maps a users UNIQUE violation onto the offending field.
func uniqueUserError(err error) error {
	switch {
	case violatesColumn(err, "users.username"):
		return apperror.FieldConflict("username", "A user with that username already exists.")
	case violatesColumn(err, "users.email"):
		return apperror.FieldConflict("email", "user with this email already exists.")
	}
	return nil
}

// Create inserts user and fills in ID and DateJoined. An empty role becomes "user".
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	if user.Role == "" {
		user.Role = model.RoleUser
	}
	user.DateJoined = time.Now().UTC()

	res, err := u.db.conn.ExecContext(ctx,
		`INSERT INTO users (username, email, first_name, last_name, bio, role, is_superuser, date_joined)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Username, user.Email, user.FirstName, user.LastName, user.Bio,
		string(user.Role), user.IsSuperuser, user.DateJoined,
	)
	if err != nil {
		if conflict := uniqueUserError(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}

	user.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading user id: %w", err)
	}
	return nil
}

func (u *UserDB) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := scanUser(u.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}
	return user, nil
}

func (u *UserDB) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := scanUser(u.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlite: getting user %q: %w", username, err)
	}
	return user, nil
}

// GetByEmail matches the stored lower-case address exactly; callers normalize.
func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return u.getByEmail(ctx, u.db.conn, email)
}

func (u *UserDB) getByEmail(ctx context.Context, q queryer, email string) (*model.User, error) {
	user, err := scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return user, nil
}

// GetOrCreateByEmail looks up candidate.Email and inserts candidate if absent.
//
// The lookup and insert share one transaction, and the insert uses
// ON CONFLICT(email) DO NOTHING, so two concurrent first sign-ins for the same
// address end up with one row.
func (u *UserDB) GetOrCreateByEmail(ctx context.Context, candidate *model.User) (*model.User, bool, error) {
	var (
		user    *model.User
		created bool
	)

	err := u.db.withTx(ctx, func(tx *sql.Tx) error {
		if candidate.Role == "" {
			candidate.Role = model.RoleUser
		}
		candidate.DateJoined = time.Now().UTC()

		res, err := tx.ExecContext(ctx,
			`INSERT INTO users (username, email, first_name, last_name, bio, role, is_superuser, date_joined)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(email) DO NOTHING`,
			candidate.Username, candidate.Email, candidate.FirstName, candidate.LastName,
			candidate.Bio, string(candidate.Role), candidate.IsSuperuser, candidate.DateJoined,
		)
		if err != nil {
			if conflict := uniqueUserError(err); conflict != nil {
				return conflict
			}
			return fmt.Errorf("sqlite: inserting user for %q: %w", candidate.Email, err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return err
		}
		created = n == 1

		user, err = u.getByEmail(ctx, tx, candidate.Email)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return user, created, nil
}

// List returns users whose username contains search (case-insensitive).
func (u *UserDB) List(ctx context.Context, search string, opts repository.ListOptions) (repository.Page[model.User], error) {
	opts = opts.Normalize()

	var (
		conds []string
		args  []any
	)
	if search != "" {
		conds = append(conds, `instr(lower(username), lower(?)) > 0`)
		args = append(args, search)
	}
	filter := where(conds)

	page := repository.Page[model.User]{Results: []model.User{}}
	if err := u.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users`+filter, args...).Scan(&page.Count); err != nil {
		return page, fmt.Errorf("sqlite: counting users: %w", err)
	}

	order := orderBy(repository.UserOrderings, opts.Ordering, userOrderColumns, "id")
	rows, err := u.db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users`+filter+` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		append(args, opts.Limit, opts.Offset)...,
	)
	if err != nil {
		return page, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return page, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		page.Results = append(page.Results, *user)
	}
	if err := rows.Err(); err != nil {
		return page, fmt.Errorf("sqlite: iterating users: %w", err)
	}

	return page, nil
}

// Update writes every profile field of user, matched by ID. The confirmation
// code and date_joined are not touched.
func (u *UserDB) Update(ctx context.Context, user *model.User) error {
	res, err := u.db.conn.ExecContext(ctx,
		`UPDATE users
		 SET username = ?, email = ?, first_name = ?, last_name = ?, bio = ?, role = ?, is_superuser = ?
		 WHERE id = ?`,
		user.Username, user.Email, user.FirstName, user.LastName, user.Bio,
		string(user.Role), user.IsSuperuser, user.ID,
	)
	if err != nil {
		if conflict := uniqueUserError(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("sqlite: updating user %d: %w", user.ID, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("user", strconv.FormatInt(user.ID, 10))
	}
	return nil
}

// Delete removes the user. Their reviews and comments go with them.
func (u *UserDB) Delete(ctx context.Context, username string) error {
	res, err := u.db.conn.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %q: %w", username, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("user", username)
	}
	return nil
}

func (u *UserDB) SetConfirmationCode(ctx context.Context, userID int64, hash string, expiresAt time.Time) error {
	res, err := u.db.conn.ExecContext(ctx,
		`UPDATE users SET confirmation_code_hash = ?, confirmation_expires_at = ? WHERE id = ?`,
		hash, expiresAt.UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: storing confirmation code for user %d: %w", userID, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("user", strconv.FormatInt(userID, 10))
	}
	return nil
}

// ConsumeConfirmationCode clears the stored code in a single conditional
// UPDATE. Of two concurrent redemptions of the same code exactly one sees a
// row affected.
func (u *UserDB) ConsumeConfirmationCode(ctx context.Context, userID int64, hash string) (bool, error) {
	res, err := u.db.conn.ExecContext(ctx,
		`UPDATE users SET confirmation_code_hash = '', confirmation_expires_at = NULL
		 WHERE id = ? AND confirmation_code_hash = ? AND confirmation_code_hash != ''`,
		userID, hash,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: consuming confirmation code for user %d: %w", userID, err)
	}

	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
