package refprice

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"
)

// HTTPSource fetches the price table as JSON over HTTP. The endpoint serves
// a multi-megabyte document, so fetches are rate limited well below the
// staleness cadence and compressed transfer is requested explicitly.
type HTTPSource struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		url: url,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		// One fetch per minute with no burst headroom.
		limiter: rate.NewLimiter(rate.Every(time.Minute), 1),
	}
}

func (s *HTTPSource) Fetch(ctx context.Context) (map[string]Entry, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching price table: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	reader, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}

	var entries map[string]Entry
	if err := json.NewDecoder(reader).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding price table: %w", err)
	}
	return entries, nil
}

func decodeBody(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		reader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		return reader, nil
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}
