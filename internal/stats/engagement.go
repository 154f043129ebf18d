package stats

import "github.com/halcyonlab/creatorlens/internal/tiktok"

// EngagementRate returns interactions/plays for a single video.
// A video with zero plays has a rate of exactly 0, never NaN.
func EngagementRate(v tiktok.Video) float64 {
	if v.Stats.PlayCount == 0 {
		return 0
	}
	return float64(v.Interactions()) / float64(v.Stats.PlayCount)
}

// AggregateEngagementRate returns the population-weighted engagement rate:
// total interactions over total plays across all videos. This answers
// "overall audience engagement", unlike the mean of per-video rates which
// feeds distribution statistics.
func AggregateEngagementRate(videos []tiktok.Video) float64 {
	var interactions, plays int64
	for _, v := range videos {
		interactions += v.Interactions()
		plays += v.Stats.PlayCount
	}
	if plays == 0 {
		return 0
	}
	return float64(interactions) / float64(plays)
}
