package analyze

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/halcyonlab/creatorlens/internal/tiktok"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func vid(id string, daysAgo int, plays, likes int64, desc string) tiktok.Video {
	return tiktok.Video{
		ID:          id,
		Description: desc,
		CreatedAt:   testNow.AddDate(0, 0, -daysAgo).Unix(),
		Stats:       tiktok.Stats{PlayCount: plays, LikeCount: likes},
	}
}

func TestBuildEmptyInput(t *testing.T) {
	agg := NewAggregator(testNow, 5)
	_, err := agg.Build(nil, nil)
	if !errors.Is(err, ErrNoVideos) {
		t.Fatalf("expected ErrNoVideos, got %v", err)
	}
}

func TestBuildOverview(t *testing.T) {
	all := []tiktok.Video{
		vid("1", 1, 100, 10, "skincare"),
		vid("2", 2, 200, 20, "vlog"),
		vid("3", 3, 300, 30, "serum"),
		vid("4", 4, 400, 40, "gaming"),
	}
	category := []tiktok.Video{all[0], all[2]}

	agg := NewAggregator(testNow, 5)
	b, err := agg.Build(all, category)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if b.Overview.TotalVideos != 4 || b.Overview.CategoryVideos != 2 {
		t.Errorf("expected 4/2 videos, got %d/%d", b.Overview.TotalVideos, b.Overview.CategoryVideos)
	}
	if !almostEqual(b.Overview.CategoryShare, 0.5) {
		t.Errorf("expected share 0.5, got %v", b.Overview.CategoryShare)
	}
}

func TestBuildPerformanceDistribution(t *testing.T) {
	all := []tiktok.Video{
		vid("1", 1, 100, 10, ""),
		vid("2", 2, 200, 20, ""),
		vid("3", 3, 300, 30, ""),
		vid("4", 4, 400, 40, ""),
	}

	agg := NewAggregator(testNow, 5)
	b, _ := agg.Build(all, nil)

	d := b.Performance.PlaysOverall
	if !almostEqual(d.Mean, 250) {
		t.Errorf("expected mean 250, got %v", d.Mean)
	}
	if !almostEqual(d.Median, 250) {
		t.Errorf("expected median 250, got %v", d.Median)
	}
	if !almostEqual(d.Min, 100) || !almostEqual(d.Max, 400) {
		t.Errorf("expected min/max 100/400, got %v/%v", d.Min, d.Max)
	}
}

func TestBuildEngagementUplift(t *testing.T) {
	// Overall: (10+20+30+60)/(100+200+300+400) = 120/1000 = 0.12
	// Category: (30+60)/(300+400) = 90/700 ~= 0.12857 -> uplift ~ +7.14%
	all := []tiktok.Video{
		vid("1", 1, 100, 10, ""),
		vid("2", 2, 200, 20, ""),
		vid("3", 3, 300, 30, "serum"),
		vid("4", 4, 400, 60, "skincare"),
	}
	category := []tiktok.Video{all[2], all[3]}

	agg := NewAggregator(testNow, 5)
	b, _ := agg.Build(all, category)

	if !almostEqual(b.Performance.EngagementOverall, 0.12) {
		t.Errorf("expected overall ER 0.12, got %v", b.Performance.EngagementOverall)
	}
	wantCat := 90.0 / 700.0
	if !almostEqual(b.Performance.EngagementCategory, wantCat) {
		t.Errorf("expected category ER %v, got %v", wantCat, b.Performance.EngagementCategory)
	}
	wantUplift := wantCat/0.12 - 1
	if !almostEqual(b.Performance.EngagementUplift, wantUplift) {
		t.Errorf("expected uplift %v, got %v", wantUplift, b.Performance.EngagementUplift)
	}
}

func TestBuildEngagementUpliftZeroGuard(t *testing.T) {
	// No plays anywhere: rates and uplift all zero, never NaN.
	all := []tiktok.Video{
		{ID: "1", Stats: tiktok.Stats{LikeCount: 5}},
		{ID: "2", Stats: tiktok.Stats{LikeCount: 3}},
	}

	agg := NewAggregator(testNow, 5)
	b, _ := agg.Build(all, all)

	if b.Performance.EngagementOverall != 0 || b.Performance.EngagementUplift != 0 {
		t.Errorf("expected zero-guarded rates, got %v uplift %v",
			b.Performance.EngagementOverall, b.Performance.EngagementUplift)
	}
	if math.IsNaN(b.Performance.ExplosiveThreshold) {
		t.Error("expected finite explosive threshold")
	}
}

func TestExplosiveThresholdTakesMax(t *testing.T) {
	// One outlier pushes mean+2std above P90; the higher bar wins.
	all := []tiktok.Video{
		vid("1", 1, 100, 0, ""),
		vid("2", 2, 100, 0, ""),
		vid("3", 3, 100, 0, ""),
		vid("4", 4, 100, 0, ""),
		vid("5", 5, 10000, 0, ""),
	}

	agg := NewAggregator(testNow, 5)
	b, _ := agg.Build(all, all)

	// mean = 2080, std = sqrt(((100-2080)^2*4 + (10000-2080)^2)/5) = 3960
	// mean+2std = 10000, P90 = 10000 -> bar = 10000; nothing strictly above.
	if !almostEqual(b.Performance.ExplosiveThreshold, 10000) {
		t.Errorf("expected threshold 10000, got %v", b.Performance.ExplosiveThreshold)
	}
	if b.Performance.ExplosiveRate != 0 {
		t.Errorf("expected no video strictly above the bar, got rate %v", b.Performance.ExplosiveRate)
	}
}

func TestExplosiveRateMonotonic(t *testing.T) {
	// Adding a category video far above the bar, with the population held
	// fixed, must never lower the explosive rate.
	all := []tiktok.Video{
		vid("1", 1, 100, 0, ""),
		vid("2", 2, 120, 0, ""),
		vid("3", 3, 90, 0, ""),
		vid("4", 4, 110, 0, ""),
		vid("5", 5, 2000, 0, ""),
	}
	category := []tiktok.Video{all[0], all[1], all[4]}

	agg := NewAggregator(testNow, 5)
	before, _ := agg.Build(all, category)

	hot := vid("6", 6, 50000, 0, "")
	after, _ := agg.Build(all, append(category, hot))

	if after.Performance.ExplosiveRate < before.Performance.ExplosiveRate {
		t.Errorf("rate decreased from %v to %v after adding an above-bar video",
			before.Performance.ExplosiveRate, after.Performance.ExplosiveRate)
	}
	if after.Performance.ExplosiveRate <= 0 {
		t.Errorf("expected a positive rate with an above-bar video, got %v",
			after.Performance.ExplosiveRate)
	}
}

func TestStabilityInsufficientSample(t *testing.T) {
	all := []tiktok.Video{
		vid("1", 1, 100, 10, "skincare"),
		vid("2", 2, 200, 20, "serum"),
	}

	agg := NewAggregator(testNow, 5)
	b, _ := agg.Build(all, all)

	if !b.Stability.InsufficientSample {
		t.Error("expected insufficient sample flag for n=2 < 5")
	}
	if b.Stability.PlayCV != 0 || b.Stability.EngagementCV != 0 {
		t.Error("expected zero CVs when flagged insufficient")
	}
	if b.Stability.SampleSize != 2 {
		t.Errorf("expected sample size 2, got %d", b.Stability.SampleSize)
	}
}

func TestStabilityComputedAtThreshold(t *testing.T) {
	var all []tiktok.Video
	for i := 0; i < 5; i++ {
		all = append(all, vid(string(rune('a'+i)), i+1, int64(100*(i+1)), 10, "skincare"))
	}

	agg := NewAggregator(testNow, 5)
	b, _ := agg.Build(all, all)

	if b.Stability.InsufficientSample {
		t.Error("expected stability computed at exactly minSample")
	}
	if b.Stability.PlayCV <= 0 {
		t.Errorf("expected positive play CV, got %v", b.Stability.PlayCV)
	}
}

func TestTrendIncreasingSeries(t *testing.T) {
	// Posting order oldest-to-newest with rising plays: positive slope and
	// rho = 1.
	var all []tiktok.Video
	for i := 0; i < 6; i++ {
		all = append(all, vid(string(rune('a'+i)), 60-10*i, int64(100*(i+1)), 0, ""))
	}

	agg := NewAggregator(testNow, 5)
	b, _ := agg.Build(all, nil)

	if b.Trend.Slope <= 0 {
		t.Errorf("expected positive slope, got %v", b.Trend.Slope)
	}
	if !almostEqual(b.Trend.SpearmanRho, 1) {
		t.Errorf("expected rho 1, got %v", b.Trend.SpearmanRho)
	}
	if b.Trend.InsufficientSample {
		t.Error("expected sufficient sample for n=6")
	}
	if b.Trend.WindowDays != 90 {
		t.Errorf("expected 90-day window, got %d", b.Trend.WindowDays)
	}
}

func TestTrendExcludesOldVideos(t *testing.T) {
	all := []tiktok.Video{
		vid("old", 200, 999, 0, ""),
		vid("a", 10, 100, 0, ""),
		vid("b", 5, 200, 0, ""),
	}

	agg := NewAggregator(testNow, 5)
	b, _ := agg.Build(all, nil)

	if b.Trend.SampleSize != 2 {
		t.Errorf("expected 2 videos in trend window, got %d", b.Trend.SampleSize)
	}
	if !b.Trend.InsufficientSample {
		t.Error("expected insufficient sample flag for n=2")
	}
}

func TestSubCategoryBreakdown(t *testing.T) {
	category := []tiktok.Video{
		vid("1", 1, 100, 0, "my skincare serum routine"),
		vid("2", 2, 200, 0, "new lipstick makeup look"),
		vid("3", 3, 300, 0, "sunscreen spf50 review"),
		vid("4", 4, 400, 0, "moisturizer for dry skin"),
	}

	agg := NewAggregator(testNow, 5)
	b, _ := agg.Build(category, category)

	if len(b.SubCategories) == 0 {
		t.Fatal("expected sub-category stats")
	}
	if len(b.SubCategories) > 3 {
		t.Errorf("expected at most 3 sub-categories, got %d", len(b.SubCategories))
	}
	// Sorted by count descending.
	for i := 1; i < len(b.SubCategories); i++ {
		if b.SubCategories[i].Count > b.SubCategories[i-1].Count {
			t.Error("expected sub-categories sorted by count desc")
		}
	}
}

func TestCTARate(t *testing.T) {
	category := []tiktok.Video{
		vid("1", 1, 100, 0, "serum review, link in bio!"),
		vid("2", 2, 200, 0, "skincare tips"),
	}

	agg := NewAggregator(testNow, 5)
	b, _ := agg.Build(category, category)

	if !almostEqual(b.CTARate, 0.5) {
		t.Errorf("expected CTA rate 0.5, got %v", b.CTARate)
	}
}

func TestRepeatedTokens(t *testing.T) {
	category := []tiktok.Video{
		vid("1", 1, 100, 0, "glowlab serum day one"),
		vid("2", 5, 200, 0, "glowlab serum results"),
		vid("3", 10, 300, 0, "final glowlab verdict"),
		vid("4", 200, 400, 0, "glowlab from last year"), // outside 90-day window
	}

	agg := NewAggregator(testNow, 5)
	b, _ := agg.Build(category, category)

	var found *TokenCount
	for i := range b.RepeatedTokens {
		if b.RepeatedTokens[i].Token == "glowlab" {
			found = &b.RepeatedTokens[i]
		}
	}
	if found == nil {
		t.Fatal("expected 'glowlab' among repeated tokens")
	}
	if found.Count != 3 {
		t.Errorf("expected count 3 inside the window, got %d", found.Count)
	}
	// Short tokens like "day" or "one" need 3+ repeats too.
	for _, tc := range b.RepeatedTokens {
		if tc.Count < 3 {
			t.Errorf("token %q below repeat threshold", tc.Token)
		}
	}
}

func TestBuildDoesNotMutateInput(t *testing.T) {
	all := []tiktok.Video{
		vid("b", 5, 200, 0, ""),
		vid("a", 10, 100, 0, ""),
	}

	agg := NewAggregator(testNow, 5)
	agg.Build(all, nil)

	if all[0].ID != "b" || all[1].ID != "a" {
		t.Error("expected input order untouched")
	}
}
