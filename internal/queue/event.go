// Package queue defines the reservation events exchanged over the
// message broker, the RabbitMQ publisher that emits them and the
// consumer that writes them to the audit log.
package queue

import (
	"fmt"
	"time"
)

// Event types.
const (
	TypeReservationConfirmed = "reservation.confirmed"
	TypeUpcomingReservation  = "upcoming_reservation"
)

// Event is a reservation notification. It carries enough information for
// dashboards and the audit log to render it without querying the
// primary database.
type Event struct {
	Type          string    `json:"type"`
	ReservationID uint64    `json:"id"`
	Message       string    `json:"message"`
	ClientID      uint64    `json:"client_id,omitempty"`
	ClientName    string    `json:"client_name,omitempty"`
	TableID       uint64    `json:"table_id,omitempty"`
	TableNumber   int       `json:"table_number,omitempty"`
	PartySize     int       `json:"party_size,omitempty"`
	StartTime     time.Time `json:"start_time"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// AuditLine renders the event as one human readable line.
func (e Event) AuditLine() string {
	return fmt.Sprintf("[%s] %s | reservation_id=%d | client_id=%d | client=%q | table=%d | party=%d | start=%s | %s\n",
		e.OccurredAt.UTC().Format(time.RFC3339), e.Type, e.ReservationID, e.ClientID, e.ClientName,
		e.TableNumber, e.PartySize, e.StartTime.UTC().Format(time.RFC3339), e.Message)
}
