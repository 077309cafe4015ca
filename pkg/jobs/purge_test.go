package jobs

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makersite/makersite/pkg/audit"
	"github.com/makersite/makersite/pkg/auth"
	"github.com/makersite/makersite/pkg/observability"
	"github.com/makersite/makersite/pkg/storage"
)

type recordingFiles struct {
	deleted []string
}

func (f *recordingFiles) Store(ctx context.Context, prefix, name string, content io.Reader) (*storage.StoredFile, error) {
	return &storage.StoredFile{Path: prefix + "/" + name}, nil
}

func (f *recordingFiles) Delete(ctx context.Context, path string) error {
	f.deleted = append(f.deleted, path)
	return nil
}

type fakeTokens struct {
	auth.Store
	expired int64
}

func (f *fakeTokens) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	return f.expired, nil
}

type fakeAudit struct {
	audit.Recorder
	cleaned int64
}

func (f *fakeAudit) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	return f.cleaned, nil
}

func TestPurgeRun(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT path FROM media`).
		WillReturnRows(sqlmock.NewRows([]string{"path"}).
			AddRow("media/1/old.png").
			AddRow("media/2/gone.pdf"))

	mock.ExpectQuery(`SELECT logo FROM sites`).
		WillReturnRows(sqlmock.NewRows([]string{"logo"}).
			AddRow([]byte(`{"url":"/storage/sites/5/logo.png","path":"sites/5/logo.png"}`)))
	mock.ExpectQuery(`SELECT favicon FROM sites`).
		WillReturnRows(sqlmock.NewRows([]string{"favicon"}))
	mock.ExpectQuery(`SELECT featured_img FROM products`).
		WillReturnRows(sqlmock.NewRows([]string{"featured_img"}).
			AddRow([]byte(`{"path":"products/9/cover.jpg"}`)))
	mock.ExpectQuery(`SELECT featured_img FROM courses`).
		WillReturnRows(sqlmock.NewRows([]string{"featured_img"}))

	mock.ExpectExec(`DELETE FROM lessons`).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM pages`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM media`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM products`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM courses`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM sites`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM users`).WillReturnResult(sqlmock.NewResult(0, 0))

	files := &recordingFiles{}
	purger := NewPurger(db, files, &fakeTokens{expired: 4}, &fakeAudit{cleaned: 7},
		30*24*time.Hour, observability.NopLogger())

	stats, err := purger.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.Rows["lessons"])
	assert.Equal(t, int64(2), stats.Rows["pages"])
	assert.Equal(t, int64(1), stats.Rows["sites"])
	assert.Equal(t, int64(0), stats.Rows["users"])
	assert.Equal(t, int64(4), stats.TokensDeleted)
	assert.Equal(t, int64(7), stats.EventsDeleted)

	assert.Equal(t, 4, stats.FilesReleased)
	assert.Contains(t, files.deleted, "media/1/old.png")
	assert.Contains(t, files.deleted, "sites/5/logo.png")
	assert.Contains(t, files.deleted, "products/9/cover.jpg")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeRunRowError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT path FROM media`).
		WillReturnRows(sqlmock.NewRows([]string{"path"}))
	mock.ExpectQuery(`SELECT logo FROM sites`).
		WillReturnRows(sqlmock.NewRows([]string{"logo"}))
	mock.ExpectQuery(`SELECT favicon FROM sites`).
		WillReturnRows(sqlmock.NewRows([]string{"favicon"}))
	mock.ExpectQuery(`SELECT featured_img FROM products`).
		WillReturnRows(sqlmock.NewRows([]string{"featured_img"}))
	mock.ExpectQuery(`SELECT featured_img FROM courses`).
		WillReturnRows(sqlmock.NewRows([]string{"featured_img"}))

	mock.ExpectExec(`DELETE FROM lessons`).WillReturnError(assert.AnError)

	purger := NewPurger(db, &recordingFiles{}, nil, nil, time.Hour, observability.NopLogger())

	_, err = purger.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "purging lessons")
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(observability.NopLogger())
	err := s.AddPurge("not a schedule", nil)
	require.Error(t, err)
}
