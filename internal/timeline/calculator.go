// Package timeline computes what airs on a looping channel for any instant
// or time window, creating the illusion of a continuously broadcasting
// television channel.
package timeline

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Schedule is an immutable snapshot of one channel's loop: ordered slot
// lengths, their cumulative start offsets and the anchor. It holds no
// references to mutable state, so any number of goroutines may query it.
type Schedule struct {
	channelID uuid.UUID
	anchor    time.Time
	slots     []Slot
	offsets   []time.Duration
	cycle     time.Duration
}

// NewSchedule builds a schedule. Slot lengths below MinSlotDuration are
// raised to it. The slots slice is copied.
func NewSchedule(channelID uuid.UUID, anchor time.Time, slots []Slot) *Schedule {
	s := &Schedule{
		channelID: channelID,
		anchor:    anchor.Round(0),
		slots:     make([]Slot, len(slots)),
		offsets:   make([]time.Duration, len(slots)),
	}

	var total time.Duration
	for i, slot := range slots {
		if slot.Duration < MinSlotDuration {
			slot.Duration = MinSlotDuration
		}
		s.slots[i] = slot
		s.offsets[i] = total
		total += slot.Duration
	}
	s.cycle = total

	return s
}

// ChannelID returns the channel the schedule belongs to
func (s *Schedule) ChannelID() uuid.UUID {
	return s.channelID
}

// Anchor returns the phase-zero instant
func (s *Schedule) Anchor() time.Time {
	return s.anchor
}

// CycleLength returns the length of one full pass through the playlist
func (s *Schedule) CycleLength() time.Duration {
	return s.cycle
}

// Len returns the number of slots in one loop
func (s *Schedule) Len() int {
	return len(s.slots)
}

// Empty reports whether the schedule has nothing to air
func (s *Schedule) Empty() bool {
	return len(s.slots) == 0 || s.cycle <= 0
}

// locate returns the slot airing at t and how far into it t falls.
// Instants before the anchor are valid: the loop extends in both directions.
func (s *Schedule) locate(t time.Time) (int, time.Duration) {
	phase := t.Sub(s.anchor) % s.cycle
	if phase < 0 {
		phase += s.cycle
	}

	// offsets[0] is 0, so the result is always >= 0
	idx := sort.Search(len(s.offsets), func(i int) bool {
		return s.offsets[i] > phase
	}) - 1

	return idx, phase - s.offsets[idx]
}

func (s *Schedule) program(idx int, start time.Time) Program {
	slot := s.slots[idx]
	return Program{
		ChannelID:     s.channelID,
		Item:          slot.Item,
		SequenceIndex: idx,
		StartTime:     start,
		StopTime:      start.Add(slot.Duration),
		Estimated:     slot.Estimated,
	}
}

// Window returns the programs airing between start and end. The first
// program is the one covering start, so Window(t, t) yields exactly one
// program; programs are emitted until the next one would start at or after
// end. Consecutive programs always share a boundary.
func (s *Schedule) Window(start, end time.Time) ([]Program, error) {
	if end.Before(start) {
		return nil, ErrInvalidWindow
	}
	if s.Empty() {
		return []Program{}, nil
	}

	start, end = start.Round(0), end.Round(0)
	idx, offset := s.locate(start)

	programs := make([]Program, 0, s.estimateCount(start, end))
	cursor := start.Add(-offset)
	for {
		p := s.program(idx, cursor)
		programs = append(programs, p)

		cursor = p.StopTime
		idx = (idx + 1) % len(s.slots)
		if !cursor.Before(end) {
			break
		}
	}

	return programs, nil
}

// At returns the program airing at instant and the resume offset into it,
// or nil when the schedule is empty
func (s *Schedule) At(instant time.Time) *Position {
	if s.Empty() {
		return nil
	}

	instant = instant.Round(0)
	idx, offset := s.locate(instant)

	return &Position{
		Program:      s.program(idx, instant.Add(-offset)),
		ResumeOffset: offset,
	}
}

// Next returns count consecutive programs starting with the one airing at from
func (s *Schedule) Next(from time.Time, count int) []Program {
	if s.Empty() || count < 1 {
		return []Program{}
	}

	from = from.Round(0)
	idx, offset := s.locate(from)

	programs := make([]Program, 0, count)
	cursor := from.Add(-offset)
	for range count {
		p := s.program(idx, cursor)
		programs = append(programs, p)
		cursor = p.StopTime
		idx = (idx + 1) % len(s.slots)
	}
	return programs
}

func (s *Schedule) estimateCount(start, end time.Time) int {
	const maxPrealloc = 4096
	n := int(end.Sub(start)/s.cycle+1)*len(s.slots) + 1
	if n > maxPrealloc {
		return maxPrealloc
	}
	return n
}
