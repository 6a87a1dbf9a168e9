package audit_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openvenue/settled/pkg/audit"
)

func TestLoggerWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	logger := audit.NewLoggerWithWriter(&buf)

	err := logger.Record(context.Background(), audit.EventMutation, "did:alice",
		audit.ActionVenueCreated, "venue:1", map[string]interface{}{"venue_id": 1})
	require.NoError(t, err)

	var event audit.Event
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, audit.EventMutation, event.Type)
	assert.Equal(t, "did:alice", event.Actor)
	assert.Equal(t, audit.ActionVenueCreated, event.Action)
	assert.Equal(t, "venue:1", event.Resource)
	assert.False(t, event.Timestamp.IsZero())

	_, err = uuid.Parse(event.ID)
	require.NoError(t, err)
}

func TestTeeFansOut(t *testing.T) {
	var a, b bytes.Buffer
	logger := audit.Tee(audit.NewLoggerWithWriter(&a), nil, audit.NewLoggerWithWriter(&b))

	err := logger.Record(context.Background(), audit.EventSystem, "system",
		audit.ActionInstructionExecuted, "instruction:7", nil)
	require.NoError(t, err)

	assert.NotZero(t, a.Len())
	assert.NotZero(t, b.Len())
}

type failingSink struct{ err error }

func (f failingSink) Record(context.Context, audit.EventType, string, string, string, map[string]interface{}) error {
	return f.err
}

func TestTeeStopsOnFirstError(t *testing.T) {
	sinkErr := errors.New("sink down")
	var after bytes.Buffer
	logger := audit.Tee(failingSink{err: sinkErr}, audit.NewLoggerWithWriter(&after))

	err := logger.Record(context.Background(), audit.EventMutation, "did:alice",
		audit.ActionReceiptClaimed, "instruction:1", nil)
	require.ErrorIs(t, err, sinkErr)
	assert.Zero(t, after.Len())
}

func TestDiscard(t *testing.T) {
	require.NoError(t, audit.Discard{}.Record(context.Background(), audit.EventMutation, "", "", "", nil))
}
