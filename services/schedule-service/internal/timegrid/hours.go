package timegrid

import "time"

// Interval is a half-open [Start, End) time-of-day range.
type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
}

// BusinessHours is the static per-weekday reception configuration.
type BusinessHours struct {
	Open          TimeOfDay
	Close         TimeOfDay
	Break         *Interval // optional mid-day break
	LastReception TimeOfDay // latest slot start accepted; zero means no cutoff
	Closed        bool
}

// WeekSchedule maps weekday (Sunday = 0) to business hours. Fixed for the
// lifetime of a session.
type WeekSchedule [7]BusinessHours

func (w WeekSchedule) For(day time.Weekday) BusinessHours {
	return w[int(day)%7]
}

// DefaultWeek is the standard hospital reception week: closed Sundays,
// 09:00-19:00 otherwise with a 13:00-14:00 break and last reception 18:30.
func DefaultWeek() WeekSchedule {
	open := BusinessHours{
		Open:          NewTimeOfDay(9, 0),
		Close:         NewTimeOfDay(19, 0),
		Break:         &Interval{Start: NewTimeOfDay(13, 0), End: NewTimeOfDay(14, 0)},
		LastReception: NewTimeOfDay(18, 30),
	}
	var week WeekSchedule
	for i := range week {
		week[i] = open
	}
	week[time.Sunday] = BusinessHours{Closed: true}
	return week
}
