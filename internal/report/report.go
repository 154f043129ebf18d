package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/halcyonlab/creatorlens/internal/analyze"
	"github.com/halcyonlab/creatorlens/internal/llm"
	"github.com/halcyonlab/creatorlens/internal/tiktok"
)

const separator = "---SEPARATOR---"

// Verdicts are the allowed review opinions, matching the options of the
// record-store review field.
var Verdicts = []string{"强烈推荐", "值得考虑", "建议观望", "不推荐"}

// DefaultVerdict is used when the oracle response cannot be resolved to one
// of the allowed opinions.
const DefaultVerdict = "建议观望"

const reportPrompt = `You are a short-video content strategy and brand partnership analyst. Using the creator's commercial record and the precomputed content statistics below, write a creator capability and partnership assessment.

Commercial record (from the partner spreadsheet; these figures describe the creator's overall platform performance, not prior deals with our brand):
%s

Precomputed content statistics (means, medians, posting cadence, category engagement uplift, explosive rate, stability, trend, sub-categories, call-to-action rate, recurring product mentions):
%s

Representative videos selected for review (target-category videos first, ranked by play count):
%s

Notes for interpretation:
- Our brand operates in the %s category, so weigh the category-scoped statistics heavily.
- A 30-day GMV below 10000 THB is a weak signal; an expected publish rate below 85%% indicates fulfillment risk.
- Three or more videos mentioning the same product (see recurring tokens) is a high-momentum indicator.
- Statistics flagged insufficient_sample must be described as tentative, not as findings.

Produce two outputs in order, separated by the exact line %s:

First, a structured markdown report titled "# 创作者能力与商业化价值分析报告" covering: data overview, posting cadence, category performance versus the whole account, stability and trend, representative video commentary, and partnership recommendation with risks.

Second, exactly one of the following review opinions and nothing else: 强烈推荐, 值得考虑, 建议观望, 不推荐.`

// Commercial carries the spreadsheet fields embedded in the prompt.
type Commercial struct {
	Handle      string `json:"creator_handle"`
	Name        string `json:"creator_name,omitempty"`
	Followers   string `json:"followers,omitempty"`
	PublishRate string `json:"expected_publish_rate,omitempty"`
	GMV30d      string `json:"gmv_30d,omitempty"`
	AvgViews    string `json:"avg_video_views,omitempty"`
	Product     string `json:"product_name,omitempty"`
}

// Output is a generated report plus the review verdict.
type Output struct {
	Markdown string
	Verdict  string
	// Degraded reports that the summarization oracle was unavailable and
	// the report only restates the computed statistics.
	Degraded bool
}

// Generator produces the partnership report via the summarization oracle.
type Generator struct {
	provider       llm.Provider
	targetCategory string
}

// NewGenerator creates a report generator.
func NewGenerator(provider llm.Provider, targetCategory string) *Generator {
	return &Generator{provider: provider, targetCategory: targetCategory}
}

// Generate asks the oracle for the report and verdict. Oracle failure
// degrades to a metadata-only report with the default verdict; it never
// fails the run.
func (g *Generator) Generate(ctx context.Context, commercial Commercial, bundle *analyze.Bundle, selected []tiktok.Video) *Output {
	if g.provider == nil {
		log.Println("No LLM provider available for report generation, writing metadata-only report")
		return fallbackOutput(commercial, bundle, selected)
	}

	prompt := g.buildPrompt(commercial, bundle, selected)
	responseText, err := g.provider.Generate(ctx, prompt, 8192)
	if err != nil {
		log.Printf("Summarization oracle unavailable: %v", err)
		return fallbackOutput(commercial, bundle, selected)
	}

	markdown, verdict := splitResponse(responseText)
	return &Output{Markdown: markdown, Verdict: verdict}
}

func (g *Generator) buildPrompt(commercial Commercial, bundle *analyze.Bundle, selected []tiktok.Video) string {
	commercialJSON, _ := json.MarshalIndent(commercial, "", "  ")
	bundleJSON, _ := json.MarshalIndent(bundle, "", "  ")

	var vids []string
	for i, v := range selected {
		vids = append(vids, fmt.Sprintf("[%d] id=%s plays=%d er=%.4f desc=%s",
			i+1, v.ID, v.Stats.PlayCount, perVideoER(v), truncate(v.Description, 120)))
	}
	videosText := strings.Join(vids, "\n")
	if videosText == "" {
		videosText = "(none)"
	}

	return fmt.Sprintf(reportPrompt,
		string(commercialJSON), string(bundleJSON), videosText, g.targetCategory, separator)
}

// splitResponse separates the report body from the review verdict. The
// separator line is tried first, then known alternates, then a scan for the
// first verdict keyword; the last resort keeps the whole response as the
// report with the default verdict.
func splitResponse(text string) (markdown, verdict string) {
	separators := []string{separator, "--- SEPARATOR ---", "SEPARATOR"}
	for _, sep := range separators {
		if idx := strings.Index(text, sep); idx != -1 {
			markdown = strings.TrimSpace(text[:idx])
			verdict = normalizeVerdict(text[idx+len(sep):])
			return markdown, verdict
		}
	}

	// no separator: look for the earliest verdict keyword
	earliest := -1
	found := ""
	for _, v := range Verdicts {
		if idx := strings.Index(text, v); idx != -1 && (earliest == -1 || idx < earliest) {
			earliest = idx
			found = v
		}
	}
	if found != "" {
		return strings.TrimSpace(text[:earliest]), found
	}

	log.Println("Report response had no separator or verdict, keeping full text with default verdict")
	return strings.TrimSpace(text), DefaultVerdict
}

// normalizeVerdict maps the trailing response section onto one of the
// allowed opinions.
func normalizeVerdict(tail string) string {
	tail = strings.TrimSpace(tail)
	for _, v := range Verdicts {
		if strings.Contains(tail, v) {
			return v
		}
	}
	return DefaultVerdict
}

// fallbackOutput writes a metadata-only report straight from the bundle.
func fallbackOutput(commercial Commercial, bundle *analyze.Bundle, selected []tiktok.Video) *Output {
	var sb strings.Builder
	sb.WriteString("# 创作者能力与商业化价值分析报告\n\n")
	sb.WriteString("## 注意\n\n")
	sb.WriteString("本报告由统计数据自动生成，未经过模型深度分析。\n\n")

	sb.WriteString("## 数据概览\n\n")
	fmt.Fprintf(&sb, "- **创作者 Handle:** @%s\n", commercial.Handle)
	if commercial.Product != "" {
		fmt.Fprintf(&sb, "- **合作产品:** %s\n", commercial.Product)
	}
	fmt.Fprintf(&sb, "- **分析视频总数:** %d 条（目标类目 %d 条）\n",
		bundle.Overview.TotalVideos, bundle.Overview.CategoryVideos)
	fmt.Fprintf(&sb, "- **平均播放量:** %.0f\n", bundle.Performance.PlaysOverall.Mean)
	fmt.Fprintf(&sb, "- **播放量中位数:** %.0f\n", bundle.Performance.PlaysOverall.Median)
	fmt.Fprintf(&sb, "- **整体互动率:** %.2f%%\n", bundle.Performance.EngagementOverall*100)
	fmt.Fprintf(&sb, "- **类目互动率:** %.2f%%\n", bundle.Performance.EngagementCategory*100)
	fmt.Fprintf(&sb, "- **近30天发布频率:** %.2f 条/天\n", bundle.Cadence.Overall30.FreqPerDay)

	if len(selected) > 0 {
		sb.WriteString("\n## 代表视频\n\n")
		for i, v := range selected {
			fmt.Fprintf(&sb, "%d. %s（播放 %d）\n", i+1, truncate(v.Description, 50), v.Stats.PlayCount)
		}
	}

	return &Output{
		Markdown: sb.String(),
		Verdict:  DefaultVerdict,
		Degraded: true,
	}
}

func perVideoER(v tiktok.Video) float64 {
	if v.Stats.PlayCount == 0 {
		return 0
	}
	return float64(v.Interactions()) / float64(v.Stats.PlayCount)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
