package model

import "strings"

type Department struct {
	ID   string `json:"dept_id"`
	Name string `json:"department,omitempty"`
}

type Course struct {
	ID          string   `json:"course_id"`
	Name        string   `json:"name"`
	DeptID      string   `json:"dept_id"`
	Credits     string   `json:"credits,omitempty"`
	Description string   `json:"description,omitempty"`
	Sections    []string `json:"sections,omitempty"`
}

type Section struct {
	ID       string    `json:"section_id"`
	Course   string    `json:"course"`
	Meetings []Meeting `json:"meetings"`
}

type Meeting struct {
	Days      string `json:"days"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Building  string `json:"building"`
	Room      string `json:"room"`
}

// Location returns the building and room as a single label.
func (m Meeting) Location() string {
	return strings.TrimSpace(m.Building + " " + m.Room)
}
