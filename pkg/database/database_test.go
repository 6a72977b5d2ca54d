package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func TestReplaceEvent(t *testing.T) {
	client, mock := testClient(t)
	mock.ExpectExec(`INSERT INTO premis_events`).
		WithArgs("yale", "39002X", "uuid-1", "ingestion", "", "2024-01-01T00:00:00Z").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := client.ReplaceEvent(context.Background(), &PremisEvent{
		Namespace:   "yale",
		ID:          "39002X",
		EventID:     "uuid-1",
		EventtypeID: "ingestion",
		Date:        "2024-01-01T00:00:00Z",
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEventMissing(t *testing.T) {
	client, mock := testClient(t)
	mock.ExpectQuery(`SELECT namespace, id, eventid`).
		WithArgs("yale", "39002X", "ingestion").
		WillReturnRows(sqlmock.NewRows([]string{"namespace", "id", "eventid", "eventtype_id", "outcome", "date"}))

	event, err := client.GetEvent(context.Background(), "yale", "39002X", "ingestion")
	require.NoError(t, err)
	assert.Nil(t, event)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEvent(t *testing.T) {
	client, mock := testClient(t)
	rows := sqlmock.NewRows([]string{"namespace", "id", "eventid", "eventtype_id", "outcome", "date"}).
		AddRow("yale", "39002X", "uuid-1", "ingestion", "<outcome/>", "2024-01-01T00:00:00Z")
	mock.ExpectQuery(`SELECT namespace, id, eventid`).
		WithArgs("yale", "39002X", "ingestion").
		WillReturnRows(rows)

	event, err := client.GetEvent(context.Background(), "yale", "39002X", "ingestion")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, "uuid-1", event.EventID)
	assert.Equal(t, "<outcome/>", event.Outcome)
}

func TestUpdateQueue(t *testing.T) {
	client, mock := testClient(t)
	mock.ExpectExec(`UPDATE feed_queue SET status`).
		WithArgs("punted", 1, "yale", "39002X").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := client.UpdateQueue(context.Background(), "yale", "39002X", "punted", true)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildPendingQuery(t *testing.T) {
	query, args, err := buildPendingQuery([]string{"collated", "punted"}, 10)
	require.NoError(t, err)
	assert.Contains(t, query, "NOT IN ($1, $2)")
	assert.Equal(t, []interface{}{"collated", "punted", 10}, args)
}

func TestBindHandle(t *testing.T) {
	client, mock := testClient(t)
	mock.ExpectExec(`INSERT INTO handles`).
		WithArgs("2027/yale.39002X", "https://repo/yale.39002X", "root", "local").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := client.BindHandle(context.Background(), "2027/yale.39002X", "https://repo/yale.39002X", "root", "local")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
