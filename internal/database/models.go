package database

// Run statuses.
const (
	RunPending   = "pending"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Creator represents an analyzed creator account.
type Creator struct {
	Handle         string
	DisplayName    *string
	FeishuRecordID *string
	FirstSeenAt    *string
	LastAnalyzedAt *string
}

// AnalysisRun holds one analysis of a creator's video history.
type AnalysisRun struct {
	ID             string
	Handle         string
	Status         string
	TotalVideos    int
	CategoryVideos int
	UsedFallback   bool
	Verdict        *string
	ReportMarkdown *string
	ReportDegraded bool
	BundleJSON     *string
	Error          *string
	CreatedAt      *string
	FinishedAt     *string
}

// RunVideo is a video snapshot captured during a run.
type RunVideo struct {
	VideoID        string
	Description    string
	CreatedAtUnix  int64
	PlayCount      int64
	LikeCount      int64
	CommentCount   int64
	ShareCount     int64
	CollectCount   int64
	InCategory     bool
	Representative bool
	MatchReason    *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	Creators      int
	Runs          int
	CompletedRuns int
	FailedRuns    int
	StoredVideos  int
}
