package model

import "time"

// Fixed attributes shared by every calendar entry.
const (
	EntryTextColor  = "#ffffff"
	EntryCalendarID = "1"
	EntryCategory   = "time"
)

// DisplayEntry is one block on the week calendar: a single weekday
// occurrence of a section meeting.
type DisplayEntry struct {
	ID          int64     `json:"id"`
	CalendarID  string    `json:"calendar_id"`
	Category    string    `json:"category"`
	Title       string    `json:"title"`
	Location    string    `json:"location"`
	Color       string    `json:"color"`
	BgColor     string    `json:"bg_color"`
	BorderColor string    `json:"border_color"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	IsReadOnly  bool      `json:"is_read_only"`
}

// CalendarView describes how the browser calendar is configured.
type CalendarView struct {
	DefaultView  string    `json:"default_view"`
	ScheduleView []string  `json:"schedule_view"`
	TaskView     bool      `json:"task_view"`
	IsReadOnly   bool      `json:"is_read_only"`
	Date         time.Time `json:"date"`
	Timezone     string    `json:"timezone"`
}
