package model

import "time"

// Calendar is a calendar exposed by the external provider.
type Calendar struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Primary bool   `json:"primary"`
}

// ExternalEvent is an event as reported by the external calendar provider.
type ExternalEvent struct {
	ID           string    `json:"id"`
	CalendarID   string    `json:"calendar_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Location     string    `json:"location,omitempty"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	LastModified time.Time `json:"last_modified"`
}
