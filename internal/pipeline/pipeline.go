package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/halcyonlab/creatorlens/internal/analyze"
	"github.com/halcyonlab/creatorlens/internal/classify"
	"github.com/halcyonlab/creatorlens/internal/config"
	"github.com/halcyonlab/creatorlens/internal/database"
	"github.com/halcyonlab/creatorlens/internal/feishu"
	"github.com/halcyonlab/creatorlens/internal/llm"
	"github.com/halcyonlab/creatorlens/internal/report"
	"github.com/halcyonlab/creatorlens/internal/tiktok"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full analysis run.
type Result struct {
	RunID   string
	Handle  string
	Verdict string
	Steps   []StepResult
}

// Pipeline orchestrates the 6-step creator analysis pipeline.
type Pipeline struct {
	cfg      *config.Config
	db       *database.DB
	provider llm.Provider
	tiktok   *tiktok.Client
	feishu   *feishu.Client
}

// New creates a new pipeline.
func New(cfg *config.Config, db *database.DB) *Pipeline {
	provider := llm.CreateProvider(llm.Options{
		Provider:     cfg.LLM.Provider,
		GeminiModel:  cfg.LLM.GeminiModel,
		GeminiKeyEnv: cfg.LLM.GeminiKeyEnv,
		OpenAIModel:  cfg.LLM.OpenAIModel,
		OpenAIKeyEnv: cfg.LLM.OpenAIKeyEnv,
		OllamaModel:  cfg.LLM.OllamaModel,
		OllamaURL:    cfg.LLM.OllamaURL,
	})

	tt := tiktok.NewClient(cfg.TikTok.BaseURL, os.Getenv(cfg.TikTok.APIKeyEnv), 60*time.Second)

	var fs *feishu.Client
	if cfg.Feishu.Enabled {
		fs = feishu.NewClient(
			os.Getenv(cfg.Feishu.AppIDEnv),
			os.Getenv(cfg.Feishu.AppSecretEnv),
			cfg.Feishu.AppToken,
			cfg.Feishu.TableID,
		)
	}

	return &Pipeline{
		cfg:      cfg,
		db:       db,
		provider: provider,
		tiktok:   tt,
		feishu:   fs,
	}
}

// Run executes the full analysis for one creator handle.
func (p *Pipeline) Run(ctx context.Context, handle string, commercial report.Commercial) *Result {
	runID := uuid.NewString()
	r := &Result{RunID: runID, Handle: handle}

	if commercial.Handle == "" {
		commercial.Handle = handle
	}

	if err := p.db.UpsertCreator(handle, optional(commercial.Name), nil); err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Prepare", Err: err})
		return r
	}
	if err := p.db.CreateRun(runID, handle); err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Prepare", Err: err})
		return r
	}

	// Step 1: Fetch
	videos, step := p.runFetch(ctx, handle)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		if err := p.db.FailRun(runID, step.Err.Error()); err != nil {
			log.Printf("Failed to mark run %s as failed: %v", runID, err)
		}
		return r
	}

	// Step 2: Classify
	classified, step := p.runClassify(ctx, videos)
	r.Steps = append(r.Steps, step)

	// Step 3: Analyze
	bundle, step := p.runAnalyze(videos, classified.Videos)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		if err := p.db.FailRun(runID, step.Err.Error()); err != nil {
			log.Printf("Failed to mark run %s as failed: %v", runID, err)
		}
		return r
	}

	// Step 4: Select
	selected, step := p.runSelect(ctx, videos, classified.Videos)
	r.Steps = append(r.Steps, step)

	// Step 5: Report
	out, step := p.runReport(ctx, commercial, bundle, selected)
	r.Steps = append(r.Steps, step)
	r.Verdict = out.Verdict

	// Step 6: Publish
	step = p.runPublish(ctx, runID, handle, commercial, videos, classified, selected, bundle, out)
	r.Steps = append(r.Steps, step)

	return r
}

func (p *Pipeline) runFetch(ctx context.Context, handle string) ([]tiktok.Video, StepResult) {
	log.Println("Step 1/6: Fetching video history...")
	if !p.tiktok.IsConfigured() {
		return nil, StepResult{Name: "Fetch", Err: fmt.Errorf("tiktok API key not set (%s)", p.cfg.TikTok.APIKeyEnv)}
	}
	videos, err := p.tiktok.FetchVideos(ctx, handle)
	if err != nil {
		return nil, StepResult{Name: "Fetch", Err: err}
	}
	if len(videos) == 0 {
		return nil, StepResult{Name: "Fetch", Err: fmt.Errorf("no videos returned for @%s", handle)}
	}
	return videos, StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("Fetched %d videos for @%s", len(videos), handle),
	}
}

func (p *Pipeline) runClassify(ctx context.Context, videos []tiktok.Video) (*classify.Result, StepResult) {
	log.Println("Step 2/6: Classifying videos by category...")
	classifier := classify.NewClassifier(
		p.provider,
		p.cfg.Classification.TargetCategory,
		append(classify.DefaultKeywords, p.cfg.Classification.Keywords...),
		p.cfg.Classification.MinModelMatches,
	)
	result := classifier.Classify(ctx, videos)

	source := "model"
	if result.UsedFallback {
		source = "keyword fallback"
	}
	return result, StepResult{
		Name:    "Classify",
		Summary: fmt.Sprintf("Matched %d of %d videos via %s", len(result.Videos), len(videos), source),
	}
}

func (p *Pipeline) runAnalyze(all, category []tiktok.Video) (*analyze.Bundle, StepResult) {
	log.Println("Step 3/6: Computing statistics...")
	agg := analyze.NewAggregator(time.Now(), p.cfg.Analysis.MinSample)
	bundle, err := agg.Build(all, category)
	if err != nil {
		return nil, StepResult{Name: "Analyze", Err: err}
	}
	return bundle, StepResult{
		Name: "Analyze",
		Summary: fmt.Sprintf("Category share %.1f%%, engagement uplift %+.1f%%",
			bundle.Overview.CategoryShare*100, bundle.Performance.EngagementUplift*100),
	}
}

func (p *Pipeline) runSelect(ctx context.Context, all, category []tiktok.Video) ([]tiktok.Video, StepResult) {
	log.Println("Step 4/6: Selecting representative videos...")
	selected := analyze.SelectRepresentative(all, category, p.cfg.Analysis.TargetCount)
	summary := fmt.Sprintf("Selected %d representative videos", len(selected))

	if p.cfg.Download.Enabled && len(selected) > 0 {
		downloader := tiktok.NewDownloader(120*time.Second, p.cfg.Download.MaxParallel)
		media := downloader.Download(ctx, selected)
		saved := 0
		for _, m := range media {
			if err := p.saveMedia(m); err != nil {
				log.Printf("Saving media for video %s failed: %v", m.VideoID, err)
				continue
			}
			saved++
		}
		summary = fmt.Sprintf("Selected %d representative videos, downloaded %d", len(selected), saved)
	}

	return selected, StepResult{Name: "Select", Summary: summary}
}

// saveMedia writes downloaded video bytes under the data directory.
func (p *Pipeline) saveMedia(m tiktok.Media) error {
	dir := filepath.Join(p.cfg.GetDataDir(), "media")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, m.VideoID+".mp4"), m.Data, 0o644)
}

func (p *Pipeline) runReport(ctx context.Context, commercial report.Commercial, bundle *analyze.Bundle, selected []tiktok.Video) (*report.Output, StepResult) {
	log.Println("Step 5/6: Generating report...")
	gen := report.NewGenerator(p.provider, p.cfg.Classification.TargetCategory)
	out := gen.Generate(ctx, commercial, bundle, selected)

	summary := fmt.Sprintf("Report generated, verdict: %s", out.Verdict)
	if out.Degraded {
		summary = fmt.Sprintf("Metadata-only report (oracle unavailable), verdict: %s", out.Verdict)
	}
	return out, StepResult{Name: "Report", Summary: summary}
}

func (p *Pipeline) runPublish(ctx context.Context, runID, handle string, commercial report.Commercial, videos []tiktok.Video, classified *classify.Result, selected []tiktok.Video, bundle *analyze.Bundle, out *report.Output) StepResult {
	log.Println("Step 6/6: Persisting results...")

	bundleJSON, err := json.Marshal(bundle)
	if err != nil {
		return StepResult{Name: "Publish", Err: fmt.Errorf("marshaling bundle: %w", err)}
	}

	run := &database.AnalysisRun{
		ID:             runID,
		Handle:         handle,
		TotalVideos:    bundle.Overview.TotalVideos,
		CategoryVideos: bundle.Overview.CategoryVideos,
		UsedFallback:   classified.UsedFallback,
		Verdict:        optional(out.Verdict),
		ReportMarkdown: optional(out.Markdown),
		ReportDegraded: out.Degraded,
		BundleJSON:     optional(string(bundleJSON)),
	}
	if err := p.db.CompleteRun(run); err != nil {
		return StepResult{Name: "Publish", Err: err}
	}
	if err := p.db.InsertRunVideos(runID, snapshotVideos(videos, classified, selected)); err != nil {
		return StepResult{Name: "Publish", Err: err}
	}
	if err := p.db.TouchCreator(handle); err != nil {
		return StepResult{Name: "Publish", Err: err}
	}

	summary := "Results saved"
	if p.feishu != nil && p.feishu.IsConfigured() {
		name := commercial.Name
		if name == "" {
			name = handle
		}
		if err := p.feishu.Publish(ctx, "", name, out.Verdict, out.Markdown); err != nil {
			// Writeback failure does not invalidate the stored run.
			log.Printf("Feishu writeback failed: %v", err)
			summary = fmt.Sprintf("Results saved, Feishu writeback failed: %v", err)
		} else {
			summary = "Results saved and written back to Feishu"
		}
	}

	return StepResult{Name: "Publish", Summary: summary}
}

// snapshotVideos converts fetched videos into storage rows, marking
// category and representative membership.
func snapshotVideos(videos []tiktok.Video, classified *classify.Result, selected []tiktok.Video) []database.RunVideo {
	inCategory := make(map[string]bool, len(classified.Videos))
	for _, v := range classified.Videos {
		inCategory[v.ID] = true
	}
	representative := make(map[string]bool, len(selected))
	for _, v := range selected {
		representative[v.ID] = true
	}

	rows := make([]database.RunVideo, 0, len(videos))
	for _, v := range videos {
		row := database.RunVideo{
			VideoID:        v.ID,
			Description:    v.Description,
			CreatedAtUnix:  v.CreatedAt,
			PlayCount:      v.Stats.PlayCount,
			LikeCount:      v.Stats.LikeCount,
			CommentCount:   v.Stats.CommentCount,
			ShareCount:     v.Stats.ShareCount,
			CollectCount:   v.Stats.CollectCount,
			InCategory:     inCategory[v.ID],
			Representative: representative[v.ID],
		}
		if reason, ok := classified.Reasons[v.ID]; ok {
			row.MatchReason = optional(reason)
		}
		rows = append(rows, row)
	}
	return rows
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
