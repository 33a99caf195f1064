package pipeline

import (
	"time"

	"github.com/inkwell-sh/inkwell/app/database"
)

// editionCutoverHour splits the day: runs before 14:00 local time
// belong to the morning edition, everything after to the evening one.
const editionCutoverHour = 14

// CurrentEdition determines the edition for a run starting at now.
func CurrentEdition(now time.Time, loc *time.Location) database.Edition {
	if now.In(loc).Hour() < editionCutoverHour {
		return database.EditionMorning
	}
	return database.EditionEvening
}

// localMidnight returns the start of the current day in loc, used as
// the window for edition quota counting.
func localMidnight(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
