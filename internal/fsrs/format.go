package fsrs

import (
	"math"
	"strconv"
	"time"
)

// FormatInterval renders the wait between now and due as the short label
// shown on a rating button: "1m", "10m", "3h", "4d", "2mo", "1.5y".
func FormatInterval(now, due time.Time) string {
	d := due.Sub(now)
	switch {
	case d < time.Minute:
		return "<1m"
	case d < time.Hour:
		return strconv.Itoa(int(math.Round(d.Minutes()))) + "m"
	case d < day:
		return strconv.Itoa(int(math.Round(d.Hours()))) + "h"
	case d < 30*day:
		return strconv.Itoa(int(math.Round(d.Hours()/24))) + "d"
	case d < 365*day:
		return strconv.Itoa(int(math.Round(d.Hours()/24/30))) + "mo"
	}
	years := d.Hours() / 24 / 365
	return strconv.FormatFloat(math.Round(years*10)/10, 'f', -1, 64) + "y"
}
