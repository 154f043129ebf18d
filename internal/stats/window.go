package stats

import (
	"fmt"
	"math"
	"time"

	"github.com/halcyonlab/creatorlens/internal/tiktok"
)

// FilterByDays returns the videos posted within the trailing window of days
// before now. Videos with an unknown timestamp (CreatedAt <= 0) are excluded.
func FilterByDays(videos []tiktok.Video, days int, now time.Time) []tiktok.Video {
	cutoff := int64(days) * 86400
	nowUnix := now.Unix()

	var in []tiktok.Video
	for _, v := range videos {
		if v.CreatedAt <= 0 {
			continue
		}
		if nowUnix-v.CreatedAt <= cutoff {
			in = append(in, v)
		}
	}
	return in
}

// Cadence describes posting frequency over a trailing window.
type Cadence struct {
	WindowDays      int     `json:"window_days"`
	Count           int     `json:"count"`
	FreqPerDay      float64 `json:"freq_per_day"`
	FreqPerWeek     float64 `json:"freq_per_week"`
	WeeklyStd       float64 `json:"weekly_std"`
	MissingWeekRate float64 `json:"missing_week_rate"`
}

// WeeklyCadence buckets the windowed videos by ISO week and derives daily and
// weekly posting frequency, the spread of per-week counts, and the share of
// expected weeks with no posts at all. The expected week count uses
// round(days/7), which is approximate when days is not a multiple of 7.
func WeeklyCadence(videos []tiktok.Video, days int, now time.Time) Cadence {
	c := Cadence{WindowDays: days}
	if days <= 0 {
		return c
	}

	windowed := FilterByDays(videos, days, now)
	c.Count = len(windowed)
	c.FreqPerDay = float64(c.Count) / float64(days)

	expectedWeeks := int(math.Round(float64(days) / 7))
	if expectedWeeks < 1 {
		expectedWeeks = 1
	}
	c.FreqPerWeek = float64(c.Count) / float64(expectedWeeks)

	perWeek := make(map[string]int)
	for _, v := range windowed {
		perWeek[weekKey(time.Unix(v.CreatedAt, 0).UTC())]++
	}

	counts := make([]float64, 0, len(perWeek))
	for _, n := range perWeek {
		counts = append(counts, float64(n))
	}
	c.WeeklyStd = Std(counts)

	missing := expectedWeeks - len(perWeek)
	if missing < 0 {
		missing = 0
	}
	c.MissingWeekRate = float64(missing) / float64(expectedWeeks)
	return c
}

// weekKey returns the ISO week bucket for t. Weeks start on Monday and the
// year is the one containing that week's Thursday, so year boundaries bucket
// consistently.
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}
