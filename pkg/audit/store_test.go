package audit

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := NewSQLRecorder(db, nil)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO audit_events (type, actor_id, target_id, message, details, created_at)`)).
		WithArgs("admin.user_ban", int64(1), int64(7), "banned user", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	target := int64(7)
	err = rec.Record(context.Background(), Event{
		Type:     EventTypeUserBan,
		ActorID:  1,
		TargetID: &target,
		Message:  "banned user",
		Details:  map[string]interface{}{"reason": "spam"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordEventWithoutDetails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := NewSQLRecorder(db, nil)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO audit_events`)).
		WithArgs("content.site_delete", int64(2), nil, "deleted site", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = rec.Record(context.Background(), Event{
		Type:    EventTypeSiteDelete,
		ActorID: 2,
		Message: "deleted site",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchEvents(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := NewSQLRecorder(db, nil)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "type", "actor_id", "target_id", "message", "details", "created_at"}).
		AddRow(2, "admin.user_ban", 1, 7, "banned user", []byte(`{"reason":"spam"}`), now).
		AddRow(1, "admin.user_create", 1, 6, "created user", nil, now.Add(-time.Hour))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, type, actor_id, target_id, message, details, created_at FROM audit_events WHERE actor_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`)).
		WithArgs(int64(1), 100).
		WillReturnRows(rows)

	events, err := rec.Search(context.Background(), SearchFilter{ActorID: 1})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventTypeUserBan, events[0].Type)
	assert.Equal(t, "spam", events[0].Details["reason"])
	assert.Nil(t, events[1].Details)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchEventsByTypeAndWindow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := NewSQLRecorder(db, nil)

	since := time.Now().UTC().Add(-24 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, type, actor_id, target_id, message, details, created_at FROM audit_events WHERE type = $1 AND created_at >= $2 ORDER BY created_at DESC, id DESC LIMIT $3`)).
		WithArgs("access.denied", since, 25).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "actor_id", "target_id", "message", "details", "created_at"}))

	events, err := rec.Search(context.Background(), SearchFilter{
		Type:  EventTypeAccessDenied,
		Since: &since,
		Limit: 25,
	})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanup(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := NewSQLRecorder(db, nil)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM audit_events WHERE created_at < $1`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 42))

	deleted, err := rec.Cleanup(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(42), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
