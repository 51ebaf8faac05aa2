package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/schoolrecords/sf10/core/user"
)

var (
	userColumns = []string{
		"id", "name", "username", "email", "is_active", "roles", "grade_level", "section",
		"password_hash", "created_at", "updated_at", "last_login",
	}

	createUserQuery = `INSERT INTO users (` + strings.Join(userColumns, ", ") + `)
VALUES (` + namedParams(userColumns) + `)`
)

// userRow is the stored shape of a user: roles live in a TEXT[] column.
type userRow struct {
	user.User
	Roles pq.StringArray `db:"roles"`
}

func newUserRow(usr user.User) userRow {
	return userRow{User: usr, Roles: pq.StringArray(usr.Roles)}
}

func (r userRow) toUser() user.User {
	usr := r.User
	usr.Roles = []string(r.Roles)
	if usr.Roles == nil {
		usr.Roles = []string{}
	}
	return usr
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string) error {
	var taken []struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	err := repo.db.SelectContext(ctx, &taken,
		"SELECT username, email FROM users WHERE (username <> '' AND username = $1) OR (email <> '' AND email = $2) LIMIT 2",
		username, email,
	)
	if err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	for _, u := range taken {
		if username != "" && u.Username == username {
			return user.ErrUsernameExists
		}
	}
	if len(taken) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if _, err := repo.db.NamedExecContext(ctx, createUserQuery, newUserRow(usr)); err != nil {
		switch {
		case isUniqueViolation(err, "users_username_key"):
			return user.User{}, user.ErrUsernameExists
		case isUniqueViolation(err, "users_email_key"):
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) getUser(ctx context.Context, query string, args ...interface{}) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, query, args...)
	if err == sql.ErrNoRows || isInvalidUUID(err) {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.getUser(ctx, "SELECT * FROM users WHERE id = $1", id)
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	if username == "" {
		return user.User{}, user.ErrNotFound
	}
	return repo.getUser(ctx, "SELECT * FROM users WHERE username = $1 OR email = $1 LIMIT 1", username)
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	where := newConditions()
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		where.add("(name ILIKE ? OR username ILIKE ? OR email ILIKE ?)", pattern, pattern, pattern)
	}
	if filter.Role != "" {
		where.add("EXISTS (SELECT 1 FROM unnest(roles) AS r WHERE r LIKE ?)", likePrefix(filter.Role))
	}
	if filter.IsActive != nil {
		where.add("is_active = ?", *filter.IsActive)
	}

	q := "SELECT * FROM users" + where.String() + " ORDER BY name, id"
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

// likePrefix matches values starting with s.
func likePrefix(s string) string {
	p := likePattern(s)
	return p[1:]
}

func (repo *userRepository) SetActive(ctx context.Context, id string, active bool, at time.Time) (user.User, error) {
	return repo.getUser(ctx,
		"UPDATE users SET is_active = $1, updated_at = $2 WHERE id = $3 RETURNING *",
		active, at, id,
	)
}

func (repo *userRepository) SetPassword(ctx context.Context, id string, hash []byte, at time.Time) error {
	res, err := repo.db.ExecContext(ctx, "UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3", hash, at, id)
	if err != nil {
		if isInvalidUUID(err) {
			return user.ErrNotFound
		}
		return errors.Wrap(err, "setting password")
	}
	return checkAffected(res, user.ErrNotFound)
}

func (repo *userRepository) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := repo.db.ExecContext(ctx, "UPDATE users SET last_login = $1 WHERE id = $2", at, id)
	if err != nil {
		return errors.Wrap(err, "setting last login")
	}
	return checkAffected(res, user.ErrNotFound)
}
