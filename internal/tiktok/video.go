package tiktok

// Stats holds the raw interaction counters for a video.
// Missing fields on the wire default to zero.
type Stats struct {
	PlayCount    int64
	LikeCount    int64
	CommentCount int64
	ShareCount   int64
	CollectCount int64
}

// Video represents one published video.
type Video struct {
	ID          string
	Description string
	CreatedAt   int64 // unix seconds; 0 means unknown
	Stats       Stats
	PlayURLs    []string
}

// Interactions returns the sum of all interaction counters.
func (v Video) Interactions() int64 {
	return v.Stats.LikeCount + v.Stats.CommentCount + v.Stats.ShareCount + v.Stats.CollectCount
}
