package model

// Table is a physical table in the dining room. TableNumber is the
// number printed on the table and is unique across the restaurant.
type Table struct {
	ID          uint64  `json:"id"`
	TableNumber int     `json:"table_number"`
	Capacity    int     `json:"capacity"`
	Location    *string `json:"location"`
}
