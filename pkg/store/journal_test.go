package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openvenue/settled/pkg/audit"
	"github.com/openvenue/settled/pkg/store"
)

func openJournal(t *testing.T) *store.Journal {
	t.Helper()
	j, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournalRoundTrip(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()

	require.NoError(t, j.Record(ctx, audit.EventMutation, "did:alice",
		audit.ActionInstructionCreated, "instruction/1", map[string]interface{}{"venue_id": float64(2)}))
	time.Sleep(2 * time.Millisecond) // distinct timestamps for ordering
	require.NoError(t, j.Record(ctx, audit.EventMutation, "did:bob",
		audit.ActionInstructionAuthorized, "instruction/1", nil))
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, j.Record(ctx, audit.EventMutation, "did:alice",
		audit.ActionVenueCreated, "venue/2", nil))

	events, err := j.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, audit.ActionVenueCreated, events[0].Action) // newest first

	byResource, err := j.ListByResource(ctx, "instruction/1")
	require.NoError(t, err)
	require.Len(t, byResource, 2)
	assert.Equal(t, audit.ActionInstructionCreated, byResource[0].Action) // oldest first
	assert.Equal(t, "did:alice", byResource[0].Actor)
	assert.Equal(t, map[string]interface{}{"venue_id": float64(2)}, byResource[0].Metadata)

	n, err := j.CountByAction(ctx, audit.ActionInstructionAuthorized)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestJournalListLimit(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, j.Record(ctx, audit.EventMutation, "did:alice",
			audit.ActionInstructionCreated, "instruction/1", nil))
	}
	events, err := j.List(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestJournalRecordInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	j, err := store.NewJournal(db)
	require.NoError(t, err)

	dbErr := errors.New("disk full")
	mock.ExpectExec("INSERT INTO events").WillReturnError(dbErr)

	err = j.Record(context.Background(), audit.EventMutation, "did:alice",
		audit.ActionInstructionCreated, "instruction/1", nil)
	require.ErrorIs(t, err, dbErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJournalMigrateFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("locked"))
	_, err = store.NewJournal(db)
	require.Error(t, err)
}
