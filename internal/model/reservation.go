package model

import "time"

// Status is the lifecycle state of a reservation.
//
//	confirmed -> cancelled | seated | completed
//	seated    -> completed
//	cancelled -> archived
//	archived  -> (deleted after the retention window)
//
// completed and archived accept no further transitions.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusSeated    Status = "seated"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusArchived  Status = "archived"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusConfirmed, StatusSeated, StatusCompleted, StatusCancelled, StatusArchived:
		return true
	}
	return false
}

// Reservation books a table for a client for a fixed two hour slot.
// Duration and points are snapshotted at creation and never change.
//
// Fields:
//
//	ID           – primary key identifier.
//	ClientID     – client who booked.
//	TableID      – table being booked.
//	PartySize    – number of guests, at most the table capacity.
//	StartTime    – start of the slot (UTC).
//	EndTime      – StartTime plus the reservation duration.
//	Status       – lifecycle state.
//	PointsEarned – loyalty points granted when the reservation was made.
//	ArchivedAt   – set when a cancelled reservation is archived.
//	Client/Table – joined rows, populated by read queries.
type Reservation struct {
	ID           uint64     `json:"id"`
	ClientID     uint64     `json:"client_id"`
	TableID      uint64     `json:"table_id"`
	PartySize    int        `json:"party_size"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      time.Time  `json:"end_time"`
	Status       Status     `json:"status"`
	PointsEarned int        `json:"points_earned"`
	ArchivedAt   *time.Time `json:"archived_at"`
	Client       *Client    `json:"client,omitempty"`
	Table        *Table     `json:"table,omitempty"`
}

// Overlaps reports whether r and the interval [start, end) intersect.
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.StartTime.Before(end) && r.EndTime.After(start)
}
