package analyze

import (
	"github.com/halcyonlab/creatorlens/internal/stats"
)

// Bundle is the complete statistics output for one analysis run. Every ratio
// in it is denominator-guarded: degraded inputs produce zeros and empty
// lists, never NaN or missing sections.
type Bundle struct {
	Overview       Overview          `json:"overview"`
	Cadence        CadenceBlock      `json:"cadence"`
	Performance    Performance       `json:"performance"`
	Stability      Stability         `json:"stability"`
	Trend          Trend             `json:"trend"`
	SubCategories  []SubCategoryStat `json:"sub_categories"`
	CTARate        float64           `json:"cta_rate"`
	RepeatedTokens []TokenCount      `json:"repeated_tokens"`
}

// Overview compares the category subset against the full population.
type Overview struct {
	TotalVideos    int     `json:"total_videos"`
	CategoryVideos int     `json:"category_videos"`
	CategoryShare  float64 `json:"category_share"`
}

// CadenceBlock holds posting-cadence metrics for the 30 and 90 day windows,
// overall and category-scoped.
type CadenceBlock struct {
	Overall30  stats.Cadence `json:"overall_30"`
	Overall90  stats.Cadence `json:"overall_90"`
	Category30 stats.Cadence `json:"category_30"`
	Category90 stats.Cadence `json:"category_90"`
}

// Distribution summarizes a numeric sample.
type Distribution struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Performance holds play-count and engagement-rate statistics.
type Performance struct {
	PlaysOverall       Distribution `json:"plays_overall"`
	PlaysCategory      Distribution `json:"plays_category"`
	EngagementOverall  float64      `json:"engagement_overall"`
	EngagementCategory float64      `json:"engagement_category"`
	EngagementUplift   float64      `json:"engagement_uplift"`
	ExplosiveThreshold float64      `json:"explosive_threshold"`
	ExplosiveRate      float64      `json:"explosive_rate"`
}

// Stability holds category-scoped coefficients of variation. When the sample
// is below the minimum, the coefficients are zero and flagged rather than
// presented as reliable.
type Stability struct {
	PlayCV             float64 `json:"play_cv"`
	EngagementCV       float64 `json:"engagement_cv"`
	SampleSize         int     `json:"sample_size"`
	InsufficientSample bool    `json:"insufficient_sample"`
}

// Trend holds the posting-order trend of play counts over the trailing
// window.
type Trend struct {
	WindowDays         int     `json:"window_days"`
	Slope              float64 `json:"slope"`
	SpearmanRho        float64 `json:"spearman_rho"`
	SampleSize         int     `json:"sample_size"`
	InsufficientSample bool    `json:"insufficient_sample"`
}

// SubCategoryStat describes one keyword sub-group within the category subset.
type SubCategoryStat struct {
	Name           string  `json:"name"`
	Count          int     `json:"count"`
	Share          float64 `json:"share"`
	MeanPlays      float64 `json:"mean_plays"`
	MeanEngagement float64 `json:"mean_engagement"`
}

// TokenCount is a description token with its occurrence count.
type TokenCount struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}
