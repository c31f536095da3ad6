// Package schedule holds the cyclic, timed schedules that drive gates and
// scheduled traffic, and the loader that builds them from YAML descriptions.
package schedule

// Entry is one step of a schedule: an object that stays in force for Length
// ticks.
type Entry[T any] struct {
	Length uint64
	Object T
}

// Schedule is an ordered list of entries that is replayed cyclically.
// Schedules are filled while being built and then only read. A schedule is
// replaced as a whole, never edited while in use.
type Schedule[T any] struct {
	entries     []Entry[T]
	totalLength uint64
}

// New creates a schedule with the given entries.
func New[T any](entries ...Entry[T]) *Schedule[T] {
	s := &Schedule[T]{}
	for _, e := range entries {
		s.AddEntry(e.Length, e.Object)
	}

	return s
}

// Size returns the number of entries.
func (s *Schedule[T]) Size() int {
	return len(s.entries)
}

// IsEmpty returns true if the schedule has no entries.
func (s *Schedule[T]) IsEmpty() bool {
	return len(s.entries) == 0
}

// Entry returns the entry at index i.
func (s *Schedule[T]) Entry(i int) Entry[T] {
	return s.entries[i]
}

// Length returns the number of ticks the entry at index i lasts.
func (s *Schedule[T]) Length(i int) uint64 {
	return s.entries[i].Length
}

// ScheduledObject returns the object of the entry at index i.
func (s *Schedule[T]) ScheduledObject(i int) T {
	return s.entries[i].Object
}

// TotalLength is the sum of all entry lengths.
func (s *Schedule[T]) TotalLength() uint64 {
	return s.totalLength
}

// AddEntry appends an entry.
func (s *Schedule[T]) AddEntry(length uint64, obj T) {
	s.totalLength += length
	s.entries = append(s.entries, Entry[T]{Length: length, Object: obj})
}

// HostEntry is a frame that a host sends Start ticks after the cycle begins.
type HostEntry[T any] struct {
	Start  uint64
	Size   int
	Object T
}

// HostSchedule lists the frames a host sends in every cycle. Unlike Schedule,
// its cycle is explicit and entries are placed by their start offset.
type HostSchedule[T any] struct {
	entries []HostEntry[T]
	cycle   uint64
}

// Size returns the number of entries.
func (s *HostSchedule[T]) Size() int {
	return len(s.entries)
}

// IsEmpty returns true if the schedule has no entries.
func (s *HostSchedule[T]) IsEmpty() bool {
	return len(s.entries) == 0
}

// Cycle returns the cycle length in ticks.
func (s *HostSchedule[T]) Cycle() uint64 {
	return s.cycle
}

// SetCycle sets the cycle length in ticks.
func (s *HostSchedule[T]) SetCycle(cycle uint64) {
	s.cycle = cycle
}

// Time returns the start offset of the entry at index i.
func (s *HostSchedule[T]) Time(i int) uint64 {
	return s.entries[i].Start
}

// SizeOf returns the payload size in bytes of the entry at index i.
func (s *HostSchedule[T]) SizeOf(i int) int {
	return s.entries[i].Size
}

// ScheduledObject returns the object of the entry at index i.
func (s *HostSchedule[T]) ScheduledObject(i int) T {
	return s.entries[i].Object
}

// AddEntry appends an entry.
func (s *HostSchedule[T]) AddEntry(start uint64, size int, obj T) {
	s.entries = append(s.entries,
		HostEntry[T]{Start: start, Size: size, Object: obj})
}
