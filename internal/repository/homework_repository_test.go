package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/homework-board/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var homeworkRowColumns = []string{"id", "date", "subject", "color", "description", "images", "created_at", "updated_at"}

func TestHomeworkRepositoryListOrdersByDate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHomeworkRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(homeworkRowColumns).
		AddRow("h2", "2024-05-02", "Art", "bg-green-400", "Draw", "{https://img/a.jpg,https://img/b.jpg}", now, now).
		AddRow("h1", "2024-05-01", "Math", "bg-orange-400", "Sums", "{}", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM homeworks ORDER BY date DESC, created_at DESC")).WillReturnRows(rows)

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "h2", list[0].ID)
	assert.Equal(t, []string{"https://img/a.jpg", "https://img/b.jpg"}, []string(list[0].Images))
	assert.Empty(t, list[1].Images)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHomeworkRepositoryListEmptyIsNotNil(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHomeworkRepository(db)

	mock.ExpectQuery("FROM homeworks").WillReturnRows(sqlmock.NewRows(homeworkRowColumns))

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestHomeworkRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHomeworkRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM homeworks WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestHomeworkRepositoryCreateAssignsIDAndCreatedAt(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHomeworkRepository(db)

	mock.ExpectExec("INSERT INTO homeworks").
		WithArgs(sqlmock.AnyArg(), "2024-05-01", "Math", "bg-orange-400", "Sums", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	hw := &models.Homework{Date: "2024-05-01", Description: "Sums"}
	hw.SetSubject(models.SubjectMath)
	require.NoError(t, repo.Create(context.Background(), hw))
	assert.NotEmpty(t, hw.ID)
	assert.False(t, hw.CreatedAt.IsZero())
	assert.NotNil(t, hw.Images)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHomeworkRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHomeworkRepository(db)

	mock.ExpectExec("UPDATE homeworks SET date").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Homework{ID: "gone"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestHomeworkRepositoryUpdateLeavesCreatedAt(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHomeworkRepository(db)

	mock.ExpectExec(`UPDATE homeworks SET date = \?, subject = \?, color = \?, description = \?, images = \?, updated_at = \? WHERE id = \?`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), &models.Homework{ID: "h1", Images: []string{"a"}}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHomeworkRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHomeworkRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM homeworks WHERE id = $1")).
		WithArgs("h1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM homeworks WHERE id = $1")).
		WithArgs("h2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "h1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "h2"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
