package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/icec/internal/model"
	"github.com/xxxsen/icec/internal/pkg/dbutil"
	appErr "github.com/xxxsen/icec/internal/pkg/errors"
)

const usersTable = "users"

var userFields = []string{"id", "full_name", "email", "password_hash", "is_admin", "is_verified", "ctime", "mtime"}

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	return insertUser(ctx, r.db, user)
}

func insertUser(ctx context.Context, exec dbutil.Execer, user *model.User) error {
	data := map[string]interface{}{
		"id":            user.ID,
		"full_name":     user.FullName,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"is_admin":      user.IsAdmin,
		"is_verified":   user.IsVerified,
		"ctime":         user.Ctime,
		"mtime":         user.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert(usersTable, []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := exec.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, map[string]interface{}{"email": email})
}

func (r *UserRepo) GetByID(ctx context.Context, userID string) (*model.User, error) {
	return r.getOne(ctx, map[string]interface{}{"id": userID})
}

func (r *UserRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.User, error) {
	users, err := r.query(ctx, where)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, appErr.ErrNotFound
	}
	return users[0], nil
}

func (r *UserRepo) List(ctx context.Context, limit uint) ([]*model.User, error) {
	where := map[string]interface{}{"_orderby": "ctime desc"}
	if limit > 0 {
		where["_limit"] = []uint{0, limit}
	}
	return r.query(ctx, where)
}

func (r *UserRepo) query(ctx context.Context, where map[string]interface{}) ([]*model.User, error) {
	sqlStr, args, err := builder.BuildSelect(usersTable, where, userFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var users []*model.User
	for rows.Next() {
		var user model.User
		if err := rows.Scan(&user.ID, &user.FullName, &user.Email, &user.PasswordHash, &user.IsAdmin, &user.IsVerified, &user.Ctime, &user.Mtime); err != nil {
			return nil, err
		}
		users = append(users, &user)
	}
	return users, rows.Err()
}

// UpdatePassword swaps the hash only while it still equals oldHash, so two
// requests holding the same reset token cannot both succeed.
func (r *UserRepo) UpdatePassword(ctx context.Context, userID, oldHash, newHash string, mtime int64) error {
	where := map[string]interface{}{"id": userID, "password_hash": oldHash}
	update := map[string]interface{}{
		"password_hash": newHash,
		"mtime":         mtime,
	}
	sqlStr, args, err := builder.BuildUpdate(usersTable, where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// Update applies patch to the user. It reports ErrNotFound when no row
// matches userID.
func (r *UserRepo) Update(ctx context.Context, userID string, patch model.UserPatch, mtime int64) error {
	update := map[string]interface{}{"mtime": mtime}
	if patch.FullName != nil {
		update["full_name"] = *patch.FullName
	}
	if patch.IsAdmin != nil {
		update["is_admin"] = *patch.IsAdmin
	}
	sqlStr, args, err := builder.BuildUpdate(usersTable, map[string]interface{}{"id": userID}, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, userID string) error {
	sqlStr, args, err := builder.BuildDelete(usersTable, map[string]interface{}{"id": userID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}
