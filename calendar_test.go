package transitbuilder

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestJulianDayRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		jdn  uint32
	}{
		{name: "j2000", date: date(2000, time.January, 1), jdn: 2451545},
		{name: "pivot", date: date(2014, time.January, 1), jdn: 2456659},
		{name: "mid 2020", date: date(2020, time.June, 1), jdn: 2459002},
		{name: "leap day", date: date(2020, time.February, 29), jdn: 2458909},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToJulianDay(tt.date); got != tt.jdn {
				t.Errorf("ToJulianDay(%v) = %d, want %d", tt.date, got, tt.jdn)
			}
			if got := FromJulianDay(tt.jdn); !got.Equal(tt.date) {
				t.Errorf("FromJulianDay(%d) = %v, want %v", tt.jdn, got, tt.date)
			}
		})
	}
}

func TestServiceDays(t *testing.T) {
	allWeek := Monday | Tuesday | Wednesday | Thursday | Friday | Saturday | Sunday
	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		tileDate uint32
		dowMask  uint32
		want     uint64
	}{
		{
			name:     "one week daily",
			start:    date(2020, time.June, 1),
			end:      date(2020, time.June, 7),
			tileDate: DaysFromPivot(date(2020, time.June, 1)),
			dowMask:  allWeek,
			want:     0x7f,
		},
		{
			name:     "weekdays only",
			start:    date(2020, time.June, 1), // a Monday
			end:      date(2020, time.June, 7),
			tileDate: DaysFromPivot(date(2020, time.June, 1)),
			dowMask:  Monday | Tuesday | Wednesday | Thursday | Friday,
			want:     0x1f,
		},
		{
			name:     "reference after end",
			start:    date(2020, time.June, 1),
			end:      date(2020, time.June, 7),
			tileDate: DaysFromPivot(date(2020, time.July, 1)),
			dowMask:  allWeek,
			want:     0,
		},
		{
			name:     "start beyond reference window",
			start:    date(2021, time.January, 1),
			end:      date(2021, time.December, 31),
			tileDate: DaysFromPivot(date(2020, time.January, 1)),
			dowMask:  allWeek,
			want:     0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ServiceDays(tt.start, tt.end, tt.tileDate, tt.dowMask)
			if got != tt.want {
				t.Errorf("ServiceDays = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestExceptDateClearsBit(t *testing.T) {
	start := date(2020, time.June, 1)
	end := date(2020, time.June, 7)
	tileDate := DaysFromPivot(start)
	allWeek := Monday | Tuesday | Wednesday | Thursday | Friday | Saturday | Sunday

	days := ServiceDays(start, end, tileDate, allWeek)
	days = RemoveServiceDay(days, start, end, tileDate, date(2020, time.June, 4))
	if days != 0x77 {
		t.Errorf("days after removal = %#x, want 0x77", days)
	}
}

func TestRemoveAddRoundTrip(t *testing.T) {
	start := date(2020, time.June, 1)
	end := date(2020, time.June, 7)
	tileDate := DaysFromPivot(start)
	allWeek := Monday | Tuesday | Wednesday | Thursday | Friday | Saturday | Sunday
	orig := ServiceDays(start, end, tileDate, allWeek)

	t.Run("in range restores mask", func(t *testing.T) {
		d := date(2020, time.June, 3)
		days := RemoveServiceDay(orig, start, end, tileDate, d)
		if days == orig {
			t.Fatal("removal did not clear a bit")
		}
		days = AddServiceDay(days, start, end, tileDate, d)
		if days != orig {
			t.Errorf("round trip = %#x, want %#x", days, orig)
		}
	})

	t.Run("out of range is a no-op", func(t *testing.T) {
		d := date(2020, time.June, 20)
		if got := RemoveServiceDay(orig, start, end, tileDate, d); got != orig {
			t.Errorf("remove out of range mutated mask: %#x", got)
		}
		if got := AddServiceDay(orig, start, end, tileDate, d); got != orig {
			t.Errorf("add out of range mutated mask: %#x", got)
		}
	})
}

func TestEndDayOffset(t *testing.T) {
	if got := EndDayOffset(date(2020, time.June, 1), date(2020, time.June, 7)); got != 6 {
		t.Errorf("EndDayOffset = %d, want 6", got)
	}
	if got := EndDayOffset(date(2020, time.June, 7), date(2020, time.June, 1)); got != 0 {
		t.Errorf("EndDayOffset inverted = %d, want 0", got)
	}
}
