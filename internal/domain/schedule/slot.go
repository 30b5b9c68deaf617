package schedule

import "github.com/google/uuid"

// DefaultGranularityMinutes is the step between generated slots when none is configured.
const DefaultGranularityMinutes = 30

// Slot is one candidate (date, time) booking opportunity. Slots are derived on every query and
// never persisted.
type Slot struct {
	Date                 Date      `json:"date"`
	Time                 TimeOfDay `json:"time"`
	ProviderID           uuid.UUID `json:"provider_id"`
	IsWithinAvailability bool      `json:"is_within_availability"`
	IsOccupied           bool      `json:"is_occupied"`
}

// Bookable reports whether the slot is open and free.
func (s Slot) Bookable() bool {
	return s.IsWithinAvailability && !s.IsOccupied
}

// GenerateSlots builds the uniform display grid for days: every day gets the same ticks, from the
// earliest start to the latest end across the available days, both inclusive, stepping by
// granularityMinutes. Ticks never go past the latest end. Occupancy is left false; see Overlay.
//
// When none of days is available the result is empty.
func GenerateSlots(model *Model, days []Date, granularityMinutes int) []Slot {
	if granularityMinutes <= 0 {
		granularityMinutes = DefaultGranularityMinutes
	}
	if !model.AnyAvailable(days) {
		return []Slot{}
	}

	r := model.WeekRange(days)
	ticks := make([]TimeOfDay, 0, int(r.End-r.Start)/granularityMinutes+1)
	for t := r.Start; t <= r.End; t = t.Add(granularityMinutes) {
		ticks = append(ticks, t)
	}

	slots := make([]Slot, 0, len(days)*len(ticks))
	for _, day := range days {
		info := model.DayInfo(day.Weekday())
		for _, tick := range ticks {
			slots = append(slots, Slot{
				Date:                 day,
				Time:                 tick,
				ProviderID:           model.ProviderID(),
				IsWithinAvailability: info.Contains(tick),
			})
		}
	}
	return slots
}

// NextBookable returns the first bookable slot at or after (date, t), in grid order.
func NextBookable(slots []Slot, date Date, t TimeOfDay) (Slot, bool) {
	for _, s := range slots {
		if s.Date.Before(date) || (s.Date == date && s.Time < t) {
			continue
		}
		if s.Bookable() {
			return s, true
		}
	}
	return Slot{}, false
}
