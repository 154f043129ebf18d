package analyze

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/halcyonlab/creatorlens/internal/stats"
	"github.com/halcyonlab/creatorlens/internal/tiktok"
)

// ErrNoVideos is returned when an analysis is requested with zero input
// records. It is the only fatal condition in the aggregation stage.
var ErrNoVideos = errors.New("no videos to analyze")

// DefaultMinSample is the sample size below which dispersion and trend
// statistics are flagged as unreliable.
const DefaultMinSample = 5

const (
	shortWindowDays  = 30
	longWindowDays   = 90
	topTokenCount    = 10
	topSubCategories = 3
	minTokenRepeats  = 3
	minTokenRunes    = 3
)

// Aggregator composes the metric primitives into a statistics bundle
// comparing a category subset against the full population.
type Aggregator struct {
	now       time.Time
	minSample int
}

// NewAggregator creates an aggregator anchored at now. A zero now uses the
// wall clock; minSample <= 0 uses the default.
func NewAggregator(now time.Time, minSample int) *Aggregator {
	if now.IsZero() {
		now = time.Now()
	}
	if minSample <= 0 {
		minSample = DefaultMinSample
	}
	return &Aggregator{now: now, minSample: minSample}
}

// Build computes the full statistics bundle. It never mutates its inputs and
// always returns a complete bundle for non-empty input.
func (a *Aggregator) Build(all, category []tiktok.Video) (*Bundle, error) {
	if len(all) == 0 {
		return nil, ErrNoVideos
	}

	b := &Bundle{
		Overview: Overview{
			TotalVideos:    len(all),
			CategoryVideos: len(category),
			CategoryShare:  ratio(len(category), len(all)),
		},
		Cadence: CadenceBlock{
			Overall30:  stats.WeeklyCadence(all, shortWindowDays, a.now),
			Overall90:  stats.WeeklyCadence(all, longWindowDays, a.now),
			Category30: stats.WeeklyCadence(category, shortWindowDays, a.now),
			Category90: stats.WeeklyCadence(category, longWindowDays, a.now),
		},
	}

	a.buildPerformance(b, all, category)
	a.buildStability(b, category)
	a.buildTrend(b, all)
	b.SubCategories = subCategoryBreakdown(category)
	b.CTARate = ctaRate(category)
	b.RepeatedTokens = repeatedTokens(category, a.now)

	return b, nil
}

func (a *Aggregator) buildPerformance(b *Bundle, all, category []tiktok.Video) {
	allPlays := playCounts(all)
	catPlays := playCounts(category)

	b.Performance.PlaysOverall = distribution(allPlays)
	b.Performance.PlaysCategory = distribution(catPlays)
	b.Performance.EngagementOverall = stats.AggregateEngagementRate(all)
	b.Performance.EngagementCategory = stats.AggregateEngagementRate(category)

	// uplift of the category over the whole account, 0-guarded
	if b.Performance.EngagementOverall > 0 {
		b.Performance.EngagementUplift = b.Performance.EngagementCategory/b.Performance.EngagementOverall - 1
	}

	// A video only counts as explosive when it clears both the rank-based
	// and the distribution-based bar; with few records P90 alone is noisy.
	sorted := append([]float64(nil), allPlays...)
	sort.Float64s(sorted)
	q := stats.Quantile(sorted)
	bar := stats.Mean(allPlays) + 2*stats.Std(allPlays)
	if q.P90 > bar {
		bar = q.P90
	}
	b.Performance.ExplosiveThreshold = bar

	explosive := 0
	for _, p := range catPlays {
		if p > bar {
			explosive++
		}
	}
	b.Performance.ExplosiveRate = ratio(explosive, len(catPlays))
}

func (a *Aggregator) buildStability(b *Bundle, category []tiktok.Video) {
	b.Stability.SampleSize = len(category)
	if len(category) < a.minSample {
		b.Stability.InsufficientSample = true
		return
	}

	plays := playCounts(category)
	b.Stability.PlayCV = cv(plays)

	rates := make([]float64, len(category))
	for i, v := range category {
		rates[i] = stats.EngagementRate(v)
	}
	b.Stability.EngagementCV = cv(rates)
}

// buildTrend estimates the play-count trajectory over the trailing window,
// in posting order.
func (a *Aggregator) buildTrend(b *Bundle, all []tiktok.Video) {
	windowed := stats.FilterByDays(all, longWindowDays, a.now)
	sort.SliceStable(windowed, func(i, j int) bool {
		return windowed[i].CreatedAt < windowed[j].CreatedAt
	})

	plays := playCounts(windowed)
	b.Trend = Trend{
		WindowDays:  longWindowDays,
		Slope:       stats.LinearTrendSlope(plays),
		SpearmanRho: stats.SpearmanRho(plays),
		SampleSize:  len(plays),
	}
	if len(plays) < a.minSample {
		b.Trend.InsufficientSample = true
	}
}

func subCategoryBreakdown(category []tiktok.Video) []SubCategoryStat {
	var out []SubCategoryStat
	for _, group := range subCategoryGroups {
		var members []tiktok.Video
		for _, v := range category {
			desc := strings.ToLower(v.Description)
			for _, kw := range group.Keywords {
				if strings.Contains(desc, kw) {
					members = append(members, v)
					break
				}
			}
		}
		if len(members) == 0 {
			continue
		}
		out = append(out, SubCategoryStat{
			Name:           group.Name,
			Count:          len(members),
			Share:          ratio(len(members), len(category)),
			MeanPlays:      stats.Mean(playCounts(members)),
			MeanEngagement: stats.AggregateEngagementRate(members),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > topSubCategories {
		out = out[:topSubCategories]
	}
	return out
}

func ctaRate(category []tiktok.Video) float64 {
	matched := 0
	for _, v := range category {
		desc := strings.ToLower(v.Description)
		for _, phrase := range ctaPhrases {
			if strings.Contains(desc, phrase) {
				matched++
				break
			}
		}
	}
	return ratio(matched, len(category))
}

// repeatedTokens surfaces recurring description tokens from the trailing
// 90-day category window. Three mentions of the same product name is a
// high-momentum signal for brand deals.
func repeatedTokens(category []tiktok.Video, now time.Time) []TokenCount {
	windowed := stats.FilterByDays(category, longWindowDays, now)

	counts := make(map[string]int)
	for _, v := range windowed {
		for _, tok := range stats.Tokenize(v.Description) {
			if len([]rune(tok)) < minTokenRunes {
				continue
			}
			counts[tok]++
		}
	}

	var out []TokenCount
	for tok, n := range counts {
		if n >= minTokenRepeats {
			out = append(out, TokenCount{Token: tok, Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Token < out[j].Token
	})
	if len(out) > topTokenCount {
		out = out[:topTokenCount]
	}
	return out
}

func playCounts(videos []tiktok.Video) []float64 {
	out := make([]float64, len(videos))
	for i, v := range videos {
		out[i] = float64(v.Stats.PlayCount)
	}
	return out
}

func distribution(xs []float64) Distribution {
	if len(xs) == 0 {
		return Distribution{}
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	q := stats.Quantile(sorted)
	return Distribution{
		Mean:   stats.Mean(xs),
		Median: q.Median,
		P90:    q.P90,
		Std:    stats.Std(xs),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
}

// cv is the coefficient of variation, 0 when the mean is 0.
func cv(xs []float64) float64 {
	m := stats.Mean(xs)
	if m == 0 {
		return 0
	}
	return stats.Std(xs) / m
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
