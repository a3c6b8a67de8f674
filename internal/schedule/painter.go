package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/dukerupert/coursecal/internal/catalog"
	"github.com/dukerupert/coursecal/internal/model"
)

var (
	ErrNotInitialized = errors.New("calendar not initialized")
	ErrInvalidRange   = errors.New("meeting ends before it starts")
)

// SectionFetcher looks up the sections of a course section id.
type SectionFetcher interface {
	Sections(ctx context.Context, sectionID string) ([]model.Section, error)
}

// Sink receives every change made to a painter's calendar.
type Sink interface {
	EntriesCreated(entries []model.DisplayEntry)
	Cleared()
}

// Painter owns one session's calendar: its entries, the entry id counter and
// the shuffled course palette.
type Painter struct {
	mu       sync.Mutex
	sections SectionFetcher
	sink     Sink
	rng      *rand.Rand
	logger   *slog.Logger

	initialized bool
	view        model.CalendarView
	palette     *Palette
	entries     []model.DisplayEntry
	nextID      int64
}

// Options configure a Painter. Only Sections is required.
type Options struct {
	Sections SectionFetcher
	Sink     Sink
	Rand     *rand.Rand
	Logger   *slog.Logger
}

func NewPainter(opts Options) *Painter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Painter{
		sections: opts.Sections,
		sink:     opts.Sink,
		rng:      opts.Rand,
		logger:   logger,
		nextID:   1,
	}
}

// InitCalendar pins the calendar to the reference week and shuffles the
// palette for this session.
func (p *Painter) InitCalendar() model.CalendarView {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.view = model.CalendarView{
		DefaultView:  "week",
		ScheduleView: []string{"time"},
		TaskView:     false,
		IsReadOnly:   true,
		Date:         ReferenceSunday(),
		Timezone:     ReferenceZone,
	}
	p.palette = NewPalette(Shuffle(DefaultColors, p.rng))
	p.initialized = true
	return p.view
}

// AddCourse paints every meeting of the section onto the calendar in a single
// color. A nil course or empty section id is ignored. When the catalog has no
// meetings for the section, or its answer cannot be decoded, nothing is
// painted and no error is returned.
func (p *Painter) AddCourse(ctx context.Context, course *model.Course, sectionID string) ([]model.DisplayEntry, error) {
	if course == nil || sectionID == "" {
		return nil, nil
	}
	if !p.isInitialized() {
		return nil, ErrNotInitialized
	}

	sections, err := p.sections.Sections(ctx, sectionID)
	if errors.Is(err, catalog.ErrMalformed) {
		p.logger.Info("malformed sections response", "course", course.ID, "section", sectionID, "error", err)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch section %s: %w", sectionID, err)
	}
	if len(sections) == 0 {
		p.logger.Info("no sections found for course", "course", course.ID, "section", sectionID)
		return nil, nil
	}
	section := sections[0]
	if len(section.Meetings) == 0 {
		p.logger.Info("no meetings found for course", "course", course.ID, "section", sectionID)
		return nil, nil
	}

	var slots []slot
	for _, meeting := range section.Meetings {
		s, err := resolveMeeting(meeting)
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", section.ID, err)
		}
		slots = append(slots, s...)
	}

	p.mu.Lock()
	color := p.palette.Next()
	created := p.commit(section.ID, slots, color)
	p.mu.Unlock()

	p.notify(created)
	return created, nil
}

// DecodeDayAndAddEntries adds one entry per day the meeting falls on.
func (p *Painter) DecodeDayAndAddEntries(meeting model.Meeting, section model.Section, color string) ([]model.DisplayEntry, error) {
	if !p.isInitialized() {
		return nil, ErrNotInitialized
	}
	slots, err := resolveMeeting(meeting)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	created := p.commit(section.ID, slots, color)
	p.mu.Unlock()

	p.notify(created)
	return created, nil
}

// CreateSchedule registers a single entry.
func (p *Painter) CreateSchedule(title, location string, start, end time.Time, color string) (model.DisplayEntry, error) {
	if !p.isInitialized() {
		return model.DisplayEntry{}, ErrNotInitialized
	}

	p.mu.Lock()
	e := p.createLocked(title, location, start, end, color)
	p.mu.Unlock()

	p.notify([]model.DisplayEntry{e})
	return e, nil
}

// Clear removes every entry and starts the palette over. Entry ids keep
// counting from where they were.
func (p *Painter) Clear() {
	p.mu.Lock()
	p.entries = nil
	if p.palette != nil {
		p.palette.Reset()
	}
	p.mu.Unlock()

	if p.sink != nil {
		p.sink.Cleared()
	}
}

// Entries returns a copy of the calendar's entries in creation order.
func (p *Painter) Entries() []model.DisplayEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.DisplayEntry, len(p.entries))
	copy(out, p.entries)
	return out
}

func (p *Painter) View() model.CalendarView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

// NextID returns the id the next entry will get.
func (p *Painter) NextID() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nextID
}

// RemainingColors returns the palette colors not yet handed out.
func (p *Painter) RemainingColors() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.palette == nil {
		return nil
	}
	return p.palette.Remaining()
}

// Snapshot captures the calendar state for persistence.
func (p *Painter) Snapshot() model.SessionSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := model.SessionSnapshot{
		NextEntryID: p.nextID,
		Entries:     make([]model.DisplayEntry, len(p.entries)),
	}
	copy(snap.Entries, p.entries)
	if p.palette != nil {
		snap.Palette = p.palette.Order()
		snap.PaletteUsed = p.palette.Used()
	}
	return snap
}

// Restore replaces the calendar state with a snapshot. A snapshot without a
// palette gets a freshly shuffled one.
func (p *Painter) Restore(snap model.SessionSnapshot) {
	p.InitCalendar()

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(snap.Palette) > 0 {
		p.palette = NewPalette(snap.Palette)
		p.palette.used = max(snap.PaletteUsed, 0)
	}
	p.entries = make([]model.DisplayEntry, len(snap.Entries))
	copy(p.entries, snap.Entries)
	if snap.NextEntryID > 0 {
		p.nextID = snap.NextEntryID
	}
	for _, e := range p.entries {
		if e.ID >= p.nextID {
			p.nextID = e.ID + 1
		}
	}
}

type slot struct {
	start, end time.Time
	location   string
}

func resolveMeeting(m model.Meeting) ([]slot, error) {
	days, err := ParseDays(m.Days)
	if err != nil {
		return nil, err
	}

	slots := make([]slot, 0, len(days))
	for _, d := range days {
		start, err := ResolveTime(d, m.StartTime)
		if err != nil {
			return nil, fmt.Errorf("start time: %w", err)
		}
		end, err := ResolveTime(d, m.EndTime)
		if err != nil {
			return nil, fmt.Errorf("end time: %w", err)
		}
		if !end.After(start) {
			return nil, fmt.Errorf("%w: %s-%s", ErrInvalidRange, m.StartTime, m.EndTime)
		}
		slots = append(slots, slot{start: start, end: end, location: m.Location()})
	}
	return slots, nil
}

func (p *Painter) commit(title string, slots []slot, color string) []model.DisplayEntry {
	created := make([]model.DisplayEntry, 0, len(slots))
	for _, s := range slots {
		created = append(created, p.createLocked(title, s.location, s.start, s.end, color))
	}
	return created
}

func (p *Painter) createLocked(title, location string, start, end time.Time, color string) model.DisplayEntry {
	if color == "" {
		color = FallbackColor
	}
	e := model.DisplayEntry{
		ID:          p.nextID,
		CalendarID:  model.EntryCalendarID,
		Category:    model.EntryCategory,
		Title:       title,
		Location:    location,
		Color:       model.EntryTextColor,
		BgColor:     color,
		BorderColor: color,
		Start:       start,
		End:         end,
		IsReadOnly:  true,
	}
	p.entries = append(p.entries, e)
	p.nextID++
	p.logger.Debug("schedule created", "id", e.ID, "title", e.Title, "start", e.Start)
	return e
}

func (p *Painter) notify(created []model.DisplayEntry) {
	if p.sink != nil && len(created) > 0 {
		p.sink.EntriesCreated(created)
	}
}

func (p *Painter) isInitialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}
