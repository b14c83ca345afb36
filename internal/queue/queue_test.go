package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/logs"
)

func TestHandleMessage_AppendsAuditLine(t *testing.T) {
	var buf bytes.Buffer
	c := newConsumer("amqp://unused", "reservation.events", &buf, logs.Discard())

	ev := Event{
		Type:          TypeReservationConfirmed,
		ReservationID: 7,
		ClientID:      3,
		ClientName:    "Ana",
		TableNumber:   1,
		PartySize:     2,
		StartTime:     time.Date(2024, 1, 1, 19, 0, 0, 0, time.UTC),
		OccurredAt:    time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Message:       "confirmed",
	}
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, c.handleMessage(body))
	line := buf.String()
	assert.Contains(t, line, "[2024-01-01T12:00:00Z] reservation.confirmed")
	assert.Contains(t, line, "reservation_id=7")
	assert.Contains(t, line, `client="Ana"`)
	assert.Contains(t, line, "start=2024-01-01T19:00:00Z")
	assert.Equal(t, byte('\n'), line[len(line)-1])
}

func TestHandleMessage_RejectsBadPayload(t *testing.T) {
	var buf bytes.Buffer
	c := newConsumer("amqp://unused", "q", &buf, logs.Discard())

	assert.Error(t, c.handleMessage([]byte("{")))
	assert.Error(t, c.handleMessage([]byte(`{"id": 1}`)))
	assert.Zero(t, buf.Len())
}

func TestRun_StopsOnCancel(t *testing.T) {
	c := newConsumer("amqp://127.0.0.1:1/", "q", &bytes.Buffer{}, logs.Discard())
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
}
