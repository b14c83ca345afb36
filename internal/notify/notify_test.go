package notify

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/logs"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
)

type recorder struct {
	mu     sync.Mutex
	events []queue.Event
}

func (r *recorder) Notify(_ context.Context, ev queue.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestHub_PublishDeliversOncePerSubscriber(t *testing.T) {
	h := NewHub(logs.Discard())
	a, b := &recorder{}, &recorder{}
	h.Subscribe("a", a)
	unsubB := h.Subscribe("b", b)
	failing := SubscriberFunc(func(context.Context, queue.Event) error { return errors.New("boom") })
	h.Subscribe("failing", failing)
	assert.Equal(t, 3, h.Len())

	ctx := context.Background()
	h.Publish(ctx, queue.Event{Type: queue.TypeUpcomingReservation, ReservationID: 1})
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())

	unsubB()
	unsubB()
	assert.Equal(t, 2, h.Len())

	h.Publish(ctx, queue.Event{Type: queue.TypeUpcomingReservation, ReservationID: 2})
	assert.Equal(t, 2, a.count())
	assert.Equal(t, 1, b.count())
}

func TestHub_NoSubscribers(t *testing.T) {
	h := NewHub(logs.Discard())
	assert.NotPanics(t, func() {
		h.Publish(context.Background(), queue.Event{Type: queue.TypeReservationConfirmed})
	})
}

func TestStream_DropsWhenFull(t *testing.T) {
	s := NewStream(1)
	ctx := context.Background()
	require.NoError(t, s.Notify(ctx, queue.Event{ReservationID: 1}))
	assert.ErrorIs(t, s.Notify(ctx, queue.Event{ReservationID: 2}), ErrStreamFull)

	ev := <-s.Events()
	assert.Equal(t, uint64(1), ev.ReservationID)

	s.Close()
	s.Close()
	assert.NoError(t, s.Notify(ctx, queue.Event{ReservationID: 3}))
	_, open := <-s.Events()
	assert.False(t, open)
}

func confirmedReservation(email *string) *model.Reservation {
	return &model.Reservation{
		ID:           9,
		PartySize:    4,
		StartTime:    time.Date(2024, 1, 1, 19, 0, 0, 0, time.UTC),
		PointsEarned: 10,
		Client:       &model.Client{Name: "Ana", Email: email},
		Table:        &model.Table{TableNumber: 3},
	}
}

func TestMailer_SendConfirmation(t *testing.T) {
	cfg := config.MailConfig{Enabled: true, From: "host@restaurant.test", Timeout: time.Second}
	m := NewMailer(cfg, time.UTC)

	var sent *gomail.Message
	m.send = func(msg *gomail.Message) error {
		sent = msg
		return nil
	}

	email := "ana@example.com"
	require.NoError(t, m.SendConfirmation(context.Background(), confirmedReservation(&email)))
	require.NotNil(t, sent)
	assert.Equal(t, []string{"ana@example.com"}, sent.GetHeader("To"))

	var raw bytes.Buffer
	_, err := sent.WriteTo(&raw)
	require.NoError(t, err)
	body := raw.String()
	assert.Contains(t, body, "Table: #3")
	assert.Contains(t, body, "Mon 01 Jan 2024 19:00")
	assert.Contains(t, body, "text/html")
}

func TestMailer_Failures(t *testing.T) {
	email := "ana@example.com"
	ctx := context.Background()

	disabled := NewMailer(config.MailConfig{Enabled: false}, time.UTC)
	assert.ErrorIs(t, disabled.SendConfirmation(ctx, confirmedReservation(&email)), ErrMailDisabled)

	m := NewMailer(config.MailConfig{Enabled: true, From: "host@restaurant.test", Timeout: time.Second}, time.UTC)
	m.send = func(*gomail.Message) error { return errors.New("connection refused") }
	var sendErr *SendError
	assert.ErrorAs(t, m.SendConfirmation(ctx, confirmedReservation(&email)), &sendErr)

	assert.Error(t, m.SendConfirmation(ctx, confirmedReservation(nil)))

	slow := NewMailer(config.MailConfig{Enabled: true, From: "host@restaurant.test", Timeout: 20 * time.Millisecond}, time.UTC)
	release := make(chan struct{})
	defer close(release)
	slow.send = func(*gomail.Message) error {
		<-release
		return nil
	}
	assert.ErrorIs(t, slow.SendConfirmation(ctx, confirmedReservation(&email)), context.DeadlineExceeded)
}
