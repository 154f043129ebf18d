package tiktok

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNormalizeID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"7234567890123456789", "7234567890123456789"},
		{"123.0", "123"},
		{" 456 ", "456"},
		{"abc-def", "abc-def"},
		{"12.5", "12.5"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeID(c.in); got != c.want {
			t.Errorf("NormalizeID(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeIDPreservesFullPrecision(t *testing.T) {
	// Aweme ids are 19-digit integers; a float64 round-trip would corrupt
	// the low digits and collide nearby ids.
	a := NormalizeID("7234567890123456789")
	b := NormalizeID("7234567890123456770")
	if a != "7234567890123456789" {
		t.Errorf("id corrupted to %q", a)
	}
	if b != "7234567890123456770" {
		t.Errorf("id corrupted to %q", b)
	}
	if a == b {
		t.Error("distinct ids collided after normalization")
	}
}

func TestFetchVideosNormalizesWire(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("expected bearer auth, got %q", r.Header.Get("Authorization"))
		}
		if r.URL.Query().Get("handle") != "beautygirl" {
			t.Errorf("expected handle param, got %q", r.URL.Query().Get("handle"))
		}
		// Mixed-type ids, a negative counter, and a duplicate.
		fmt.Fprint(w, `{"aweme_list":[
			{"aweme_id":7001,"desc":"first","create_time":1700000000,
			 "statistics":{"play_count":1000,"digg_count":80,"comment_count":-3}},
			{"aweme_id":"7002","desc":"second","create_time":1700000100,
			 "statistics":{"play_count":500,"share_count":5}},
			{"aweme_id":"7001","desc":"dup of first",
			 "statistics":{"play_count":9}}
		]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", 5*time.Second)
	videos, err := c.FetchVideos(context.Background(), "beautygirl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(videos) != 2 {
		t.Fatalf("expected 2 videos after dedup, got %d", len(videos))
	}
	if videos[0].ID != "7001" || videos[1].ID != "7002" {
		t.Errorf("expected ids 7001/7002, got %s/%s", videos[0].ID, videos[1].ID)
	}
	if videos[0].Description != "first" {
		t.Error("expected first occurrence kept on duplicate id")
	}
	// digg_count maps to LikeCount; negative counters clamp to zero.
	if videos[0].Stats.LikeCount != 80 {
		t.Errorf("expected like count 80, got %d", videos[0].Stats.LikeCount)
	}
	if videos[0].Stats.CommentCount != 0 {
		t.Errorf("expected negative comment count clamped, got %d", videos[0].Stats.CommentCount)
	}
	if videos[1].Stats.ShareCount != 5 {
		t.Errorf("expected share count 5, got %d", videos[1].Stats.ShareCount)
	}
}

func TestFetchVideosAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)
	if _, err := c.FetchVideos(context.Background(), "someone"); err == nil {
		t.Error("expected error on non-200 response")
	}
}

func TestInteractions(t *testing.T) {
	v := Video{Stats: Stats{LikeCount: 10, CommentCount: 5, ShareCount: 3, CollectCount: 2}}
	if got := v.Interactions(); got != 20 {
		t.Errorf("expected 20, got %d", got)
	}
}

func TestIsConfigured(t *testing.T) {
	if NewClient("https://api.example.com", "", 0).IsConfigured() {
		t.Error("expected unconfigured without API key")
	}
	if !NewClient("https://api.example.com", "key", 0).IsConfigured() {
		t.Error("expected configured with base URL and key")
	}
}
