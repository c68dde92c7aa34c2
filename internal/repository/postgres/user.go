package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kewsys/registry/internal/domain/user"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/postgres"
	"github.com/kewsys/registry/internal/types"
	"github.com/lib/pq"
)

const userColumns = `id, username, email, password, full_name, role, department, position,
	phone_number, is_active, last_login, created_at, updated_at`

type userRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewUserRepository(db *postgres.DB, logger *logger.Logger) user.Repository {
	return &userRepository{db: db, logger: logger}
}

func (r *userRepository) Create(ctx context.Context, u *user.User) error {
	query := `
	INSERT INTO users (` + userColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	r.logger.Debugw("creating user", "user_id", u.ID, "username", u.Username)

	_, err := r.db.GetQuerier(ctx).ExecContext(
		ctx, query,
		u.ID,
		u.Username,
		u.Email,
		u.Password,
		u.FullName,
		u.Role,
		u.Department,
		u.Position,
		u.PhoneNumber,
		u.IsActive,
		u.LastLogin,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		return wrapUserWriteErr(err, "create")
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	if !types.IsValidUUID(id) {
		return nil, userNotFound(id)
	}
	return r.getOne(ctx, "id = $1", id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.getOne(ctx, "LOWER(username) = LOWER($1)", username)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, "LOWER(email) = LOWER($1)", email)
}

func (r *userRepository) getOne(ctx context.Context, where string, arg any) (*user.User, error) {
	var u user.User
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &u, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, userNotFound(fmt.Sprint(arg))
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to read user").
			Mark(ierr.ErrDatabase)
	}
	return &u, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []string) ([]*user.User, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if types.IsValidUUID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []*user.User{}, nil
	}

	var users []*user.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1)`
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &users, query, pq.Array(valid)); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to read users").
			Mark(ierr.ErrDatabase)
	}
	return users, nil
}

func (r *userRepository) List(ctx context.Context, filter *types.UserFilter) ([]*user.User, error) {
	where, args := userWhere(filter)
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` ORDER BY created_at DESC, id DESC`
	if filter != nil && filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	users := make([]*user.User, 0)
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &users, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list users").
			Mark(ierr.ErrDatabase)
	}
	return users, nil
}

func (r *userRepository) Count(ctx context.Context, filter *types.UserFilter) (int, error) {
	where, args := userWhere(filter)
	var count int
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE `+where, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count users").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *userRepository) Update(ctx context.Context, u *user.User) error {
	query := `
	UPDATE users SET
		username = $2, email = $3, password = $4, full_name = $5, role = $6,
		department = $7, position = $8, phone_number = $9, is_active = $10,
		last_login = $11, updated_at = $12
	WHERE id = $1
	`

	r.logger.Debugw("updating user", "user_id", u.ID)

	res, err := r.db.GetQuerier(ctx).ExecContext(ctx, query,
		u.ID,
		u.Username,
		u.Email,
		u.Password,
		u.FullName,
		u.Role,
		u.Department,
		u.Position,
		u.PhoneNumber,
		u.IsActive,
		u.LastLogin,
		u.UpdatedAt,
	)
	if err != nil {
		return wrapUserWriteErr(err, "update")
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return userNotFound(u.ID)
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.GetQuerier(ctx).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return wrapUserWriteErr(err, "delete")
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return userNotFound(id)
	}
	return nil
}

func userWhere(filter *types.UserFilter) (string, []any) {
	conds := []string{"TRUE"}
	var args []any
	if filter == nil {
		return conds[0], args
	}
	if filter.Role != nil {
		args = append(args, *filter.Role)
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		conds = append(conds, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+likeEscaper.Replace(s)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(`(username ILIKE $%d ESCAPE '\' OR email ILIKE $%d ESCAPE '\' OR full_name ILIKE $%d ESCAPE '\')`, n, n, n))
	}
	return strings.Join(conds, " AND "), args
}

func userNotFound(key string) error {
	return ierr.NewErrorf("user %s not found", key).
		WithHint("User not found").
		Mark(ierr.ErrNotFound)
}

func wrapUserWriteErr(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return ierr.WithError(err).
			WithHint("Username or email already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	return ierr.WithError(err).
		WithHintf("Failed to %s user", op).
		Mark(ierr.ErrDatabase)
}
