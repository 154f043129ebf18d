package tiktok

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	minMediaBytes = 1000
	maxMediaBytes = 50 * 1024 * 1024
	userAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// Media holds a downloaded video file.
type Media struct {
	VideoID string
	Data    []byte
}

// Downloader fetches video media files with bounded parallelism.
type Downloader struct {
	client      *http.Client
	maxParallel int
}

// NewDownloader creates a new media downloader.
func NewDownloader(timeout time.Duration, maxParallel int) *Downloader {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if maxParallel <= 0 {
		maxParallel = 3
	}
	return &Downloader{
		client:      &http.Client{Timeout: timeout},
		maxParallel: maxParallel,
	}
}

// Download fetches the media for each video in parallel. Videos whose
// download fails or looks wrong (error page, oversized file) are skipped, not
// fatal — the analysis can proceed on metadata alone.
func (d *Downloader) Download(ctx context.Context, videos []Video) []Media {
	sem := make(chan struct{}, d.maxParallel)
	results := make([]*Media, len(videos))

	var wg sync.WaitGroup
	for i, v := range videos {
		mediaURL := PlayURL(v)
		if mediaURL == "" {
			continue
		}
		wg.Add(1)
		go func(i int, id, mediaURL string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			data, err := d.fetchMedia(ctx, mediaURL)
			if err != nil {
				log.Printf("Failed to download media for video %s: %v", id, err)
				return
			}
			results[i] = &Media{VideoID: id, Data: data}
		}(i, v.ID, mediaURL)
	}
	wg.Wait()

	// preserve input order
	var media []Media
	for _, m := range results {
		if m != nil {
			media = append(media, *m)
		}
	}
	log.Printf("Media download complete: %d/%d succeeded", len(media), len(videos))
	return media
}

// PlayURL returns the first usable media locator for a video, rewriting
// watermarked endpoints to their clean variant.
func PlayURL(v Video) string {
	for _, u := range v.PlayURLs {
		if !strings.HasPrefix(u, "http") {
			continue
		}
		return strings.Replace(u, "playwm", "play", 1)
	}
	return ""
}

func (d *Downloader) fetchMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", mediaURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) < minMediaBytes {
		return nil, fmt.Errorf("file too small (%d bytes), likely an error page", len(data))
	}
	if len(data) > maxMediaBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", maxMediaBytes)
	}
	return data, nil
}
