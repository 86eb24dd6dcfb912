package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/icec/internal/model"
	"github.com/xxxsen/icec/internal/pkg/dbutil"
	appErr "github.com/xxxsen/icec/internal/pkg/errors"
)

const pendingTable = "pending_registrations"

var pendingFields = []string{"email", "full_name", "password_hash", "verification_token", "otp", "otp_expires_at", "ctime"}

type PendingRepo struct {
	db *sql.DB
}

func NewPendingRepo(db *sql.DB) *PendingRepo {
	return &PendingRepo{db: db}
}

// Create inserts a pending registration. The email primary key turns a
// concurrent duplicate into ErrConflict.
func (r *PendingRepo) Create(ctx context.Context, item *model.PendingRegistration) error {
	data := map[string]interface{}{
		"email":              item.Email,
		"full_name":          item.FullName,
		"password_hash":      item.PasswordHash,
		"verification_token": item.VerificationToken,
		"otp":                item.OTP,
		"otp_expires_at":     item.OTPExpiresAt,
		"ctime":              item.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert(pendingTable, []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *PendingRepo) GetByEmail(ctx context.Context, email string) (*model.PendingRegistration, error) {
	sqlStr, args, err := builder.BuildSelect(pendingTable, map[string]interface{}{"email": email}, pendingFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, appErr.ErrNotFound
	}
	var item model.PendingRegistration
	if err := rows.Scan(&item.Email, &item.FullName, &item.PasswordHash, &item.VerificationToken, &item.OTP, &item.OTPExpiresAt, &item.Ctime); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteExpiredByEmail removes the pending row for email only when its OTP
// expired before now.
func (r *PendingRepo) DeleteExpiredByEmail(ctx context.Context, email string, now int64) (int64, error) {
	return deletePending(ctx, r.db, map[string]interface{}{"email": email, "otp_expires_at <": now})
}

// DeleteExpired removes rows whose OTP expired before now and reports how
// many were removed.
func (r *PendingRepo) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	return deletePending(ctx, r.db, map[string]interface{}{"otp_expires_at <": now})
}

// Promote inserts user and deletes the pending row for its email in one
// transaction. A second promotion of the same email fails with ErrConflict
// on the users unique key, or ErrNotFound if the pending row is gone.
func (r *PendingRepo) Promote(ctx context.Context, user *model.User) error {
	return dbutil.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := insertUser(ctx, tx, user); err != nil {
			return err
		}
		affected, err := deletePending(ctx, tx, map[string]interface{}{"email": user.Email})
		if err != nil {
			return err
		}
		if affected == 0 {
			return appErr.ErrNotFound
		}
		return nil
	})
}

func deletePending(ctx context.Context, exec dbutil.Execer, where map[string]interface{}) (int64, error) {
	sqlStr, args, err := builder.BuildDelete(pendingTable, where)
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := exec.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
