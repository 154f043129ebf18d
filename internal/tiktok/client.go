package tiktok

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultPostCount = 100

// Client fetches a creator's recent videos from the video data API.
type Client struct {
	BaseURL string
	APIKey  string
	client  *http.Client
}

// NewClient creates a new video data API client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// IsConfigured checks if the client has a base URL and API key.
func (c *Client) IsConfigured() bool {
	return c.BaseURL != "" && c.APIKey != ""
}

// wire types — the API emits ids as either numbers or strings, and omits
// counters that are zero.
type postsResponse struct {
	AwemeList []awemeVideo `json:"aweme_list"`
}

type awemeVideo struct {
	AwemeID     json.Number `json:"aweme_id"`
	Desc        string      `json:"desc"`
	CreateTime  int64       `json:"create_time"`
	Statistics  awemeStats  `json:"statistics"`
	VideoDetail *awemeMedia `json:"video"`
}

type awemeStats struct {
	PlayCount    int64 `json:"play_count"`
	DiggCount    int64 `json:"digg_count"`
	CommentCount int64 `json:"comment_count"`
	ShareCount   int64 `json:"share_count"`
	CollectCount int64 `json:"collect_count"`
}

type awemeMedia struct {
	PlayAddr struct {
		URLList []string `json:"url_list"`
	} `json:"play_addr"`
}

// FetchVideos fetches up to 100 recent videos for a creator handle.
// Duplicate ids are dropped, keeping the first occurrence.
func (c *Client) FetchVideos(ctx context.Context, handle string) ([]Video, error) {
	endpoint := fmt.Sprintf("%s/api/user/posts?handle=%s&count=%d",
		c.BaseURL, url.QueryEscape(handle), defaultPostCount)

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("video API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("video API returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed postsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding video list: %w", err)
	}

	videos := make([]Video, 0, len(parsed.AwemeList))
	seen := make(map[string]struct{}, len(parsed.AwemeList))
	for _, raw := range parsed.AwemeList {
		v := normalizeVideo(raw)
		if v.ID == "" {
			continue
		}
		if _, dup := seen[v.ID]; dup {
			continue
		}
		seen[v.ID] = struct{}{}
		videos = append(videos, v)
	}
	return videos, nil
}

// normalizeVideo maps a wire record onto the canonical Video form.
// Ids are normalized to strings so numeric and string sources compare equal.
func normalizeVideo(raw awemeVideo) Video {
	v := Video{
		ID:          NormalizeID(raw.AwemeID.String()),
		Description: raw.Desc,
		CreatedAt:   raw.CreateTime,
		Stats: Stats{
			PlayCount:    raw.Statistics.PlayCount,
			LikeCount:    raw.Statistics.DiggCount,
			CommentCount: raw.Statistics.CommentCount,
			ShareCount:   raw.Statistics.ShareCount,
			CollectCount: raw.Statistics.CollectCount,
		},
	}
	if v.CreatedAt < 0 {
		v.CreatedAt = 0
	}
	clampStats(&v.Stats)
	if raw.VideoDetail != nil {
		v.PlayURLs = raw.VideoDetail.PlayAddr.URLList
	}
	return v
}

func clampStats(s *Stats) {
	if s.PlayCount < 0 {
		s.PlayCount = 0
	}
	if s.LikeCount < 0 {
		s.LikeCount = 0
	}
	if s.CommentCount < 0 {
		s.CommentCount = 0
	}
	if s.ShareCount < 0 {
		s.ShareCount = 0
	}
	if s.CollectCount < 0 {
		s.CollectCount = 0
	}
}

// NormalizeID canonicalizes a video id to its string form.
// Plain integer ids pass through untouched: aweme ids are 19-digit
// integers, above float64's exact range, so they must never round-trip
// through a float. Only float formatting artifacts ("123.0") are rewritten.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	digits := true
	for _, r := range id {
		if r < '0' || r > '9' {
			digits = false
			break
		}
	}
	if digits {
		return id
	}
	if f, err := strconv.ParseFloat(id, 64); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return id
}
