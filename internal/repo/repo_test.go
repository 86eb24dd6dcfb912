package repo

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/icec/internal/model"
	appErr "github.com/xxxsen/icec/internal/pkg/errors"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

var userColumns = []string{"id", "full_name", "email", "password_hash", "is_admin", "is_verified", "ctime", "mtime"}

func TestUserRepo_GetByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	rows := sqlmock.NewRows(userColumns).AddRow("u1", "A", "a@x.com", "hash", false, true, int64(1), int64(1))
	mock.ExpectQuery(`SELECT .* FROM .?users.? WHERE`).WithArgs("a@x.com").WillReturnRows(rows)

	user, err := NewUserRepo(db).GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "u1", user.ID)
	require.Equal(t, "A", user.FullName)
	require.True(t, user.IsVerified)
	require.False(t, user.IsAdmin)
}

func TestUserRepo_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT .* FROM .?users.? WHERE`).WithArgs("ghost").WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := NewUserRepo(db).GetByID(context.Background(), "ghost")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestUserRepo_Create_Conflict(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`INSERT INTO .?users.?`).WillReturnError(&pq.Error{Code: "23505"})

	err := NewUserRepo(db).Create(context.Background(), &model.User{ID: "u1", Email: "a@x.com"})
	require.ErrorIs(t, err, appErr.ErrConflict)
}

func TestUserRepo_UpdatePassword_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`UPDATE .?users.? SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewUserRepo(db).UpdatePassword(context.Background(), "ghost", "old", "new", 1)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestUserRepo_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`DELETE FROM .?users.?`).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewUserRepo(db).Delete(context.Background(), "u1"))
}

func TestPendingRepo_Create_Conflict(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`INSERT INTO .?pending_registrations.?`).WillReturnError(&pq.Error{Code: "23505"})

	err := NewPendingRepo(db).Create(context.Background(), &model.PendingRegistration{Email: "a@x.com"})
	require.ErrorIs(t, err, appErr.ErrConflict)
}

func TestPendingRepo_Create_PassesThroughOtherErrors(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`INSERT INTO .?pending_registrations.?`).WillReturnError(errors.New("db down"))

	err := NewPendingRepo(db).Create(context.Background(), &model.PendingRegistration{Email: "a@x.com"})
	require.Error(t, err)
	require.NotErrorIs(t, err, appErr.ErrConflict)
}

func TestPendingRepo_GetByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	rows := sqlmock.NewRows([]string{"email", "full_name", "password_hash", "verification_token", "otp", "otp_expires_at", "ctime"}).
		AddRow("a@x.com", "A", "hash", "tok", "123456", int64(600), int64(0))
	mock.ExpectQuery(`SELECT .* FROM .?pending_registrations.? WHERE`).WithArgs("a@x.com").WillReturnRows(rows)

	item, err := NewPendingRepo(db).GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "123456", item.OTP)
	require.Equal(t, int64(600), item.OTPExpiresAt)
}

func TestPendingRepo_DeleteExpired(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`DELETE FROM .?pending_registrations.? WHERE`).WithArgs(int64(1000)).WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := NewPendingRepo(db).DeleteExpired(context.Background(), 1000)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
}

func TestPendingRepo_Promote(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO .?users.?`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM .?pending_registrations.?`).WithArgs("a@x.com").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := NewPendingRepo(db).Promote(context.Background(), &model.User{ID: "u1", Email: "a@x.com", IsVerified: true})
	require.NoError(t, err)
}

func TestPendingRepo_Promote_UserExistsRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO .?users.?`).WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := NewPendingRepo(db).Promote(context.Background(), &model.User{ID: "u1", Email: "a@x.com"})
	require.ErrorIs(t, err, appErr.ErrConflict)
}

func TestPendingRepo_Promote_PendingGoneRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO .?users.?`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM .?pending_registrations.?`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := NewPendingRepo(db).Promote(context.Background(), &model.User{ID: "u1", Email: "a@x.com"})
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestPendingRepo_DeleteExpiredByEmail_GuardsOnExpiry(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`DELETE FROM .?pending_registrations.? WHERE .*(email.*otp_expires_at.?\s*<|otp_expires_at.?\s*<.*email)`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := NewPendingRepo(db).DeleteExpiredByEmail(context.Background(), "a@x.com", 1000)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestUserRepo_Update(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`UPDATE .?users.? SET .*full_name.*is_admin.*mtime.* WHERE .*id`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	name, admin := "B", true
	err := NewUserRepo(db).Update(context.Background(), "u1", model.UserPatch{FullName: &name, IsAdmin: &admin}, 5)
	require.NoError(t, err)
}

func TestUserRepo_Update_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`UPDATE .?users.? SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	admin := false
	err := NewUserRepo(db).Update(context.Background(), "ghost", model.UserPatch{IsAdmin: &admin}, 5)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}
