package tiktok

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPlayURLRewritesWatermark(t *testing.T) {
	v := Video{PlayURLs: []string{"https://cdn.example.com/video/playwm/?id=7001"}}
	got := PlayURL(v)
	if got != "https://cdn.example.com/video/play/?id=7001" {
		t.Errorf("expected playwm rewritten, got %q", got)
	}
}

func TestPlayURLSkipsNonHTTP(t *testing.T) {
	v := Video{PlayURLs: []string{"ftp://bad", "https://cdn.example.com/play/1"}}
	if got := PlayURL(v); got != "https://cdn.example.com/play/1" {
		t.Errorf("expected first http URL, got %q", got)
	}
	if got := PlayURL(Video{}); got != "" {
		t.Errorf("expected empty for no URLs, got %q", got)
	}
}

func TestDownloadPreservesOrderAndSkipsFailures(t *testing.T) {
	payload := strings.Repeat("v", 2000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "bad"):
			http.Error(w, "not found", http.StatusNotFound)
		case strings.Contains(r.URL.Path, "tiny"):
			w.Write([]byte("err")) // too small, looks like an error page
		default:
			w.Write([]byte(payload))
		}
	}))
	defer srv.Close()

	videos := []Video{
		{ID: "1", PlayURLs: []string{srv.URL + "/ok/1"}},
		{ID: "2", PlayURLs: []string{srv.URL + "/bad/2"}},
		{ID: "3", PlayURLs: []string{srv.URL + "/tiny/3"}},
		{ID: "4", PlayURLs: []string{srv.URL + "/ok/4"}},
		{ID: "5"}, // no media URL at all
	}

	d := NewDownloader(5*time.Second, 2)
	media := d.Download(context.Background(), videos)

	if len(media) != 2 {
		t.Fatalf("expected 2 downloads, got %d", len(media))
	}
	if media[0].VideoID != "1" || media[1].VideoID != "4" {
		t.Errorf("expected input order preserved, got %s/%s", media[0].VideoID, media[1].VideoID)
	}
	if len(media[0].Data) != len(payload) {
		t.Errorf("expected %d bytes, got %d", len(payload), len(media[0].Data))
	}
}
