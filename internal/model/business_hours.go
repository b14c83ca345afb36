package model

// BusinessHours is the opening window for one weekday. DayOfWeek follows
// time.Weekday (0 = Sunday). OpenTime and CloseTime are local
// "HH:MM" strings; zero padding makes them comparable as strings.
type BusinessHours struct {
	ID        uint64 `json:"id"`
	DayOfWeek int    `json:"day_of_week"`
	OpenTime  string `json:"open_time"`
	CloseTime string `json:"close_time"`
}

// Contains reports whether the local time of day hhmm lies within the
// window, both ends inclusive.
func (h *BusinessHours) Contains(hhmm string) bool {
	return hhmm >= h.OpenTime && hhmm <= h.CloseTime
}
