package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	validationTimeout     = 10 * time.Second
	maxConcurrentChecks   = 5
	maxValidationRedirect = 5
)

// ValidationResult is the reachability verdict for one URL.
type ValidationResult struct {
	URL        string `json:"url"`
	Valid      bool   `json:"valid"`
	StatusCode int    `json:"status_code,omitempty"`
	FinalURL   string `json:"final_url,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ReferenceValidator checks that article reference URLs resolve.
type ReferenceValidator struct {
	client    *http.Client
	userAgent string
}

// NewReferenceValidator creates a validator with bounded redirects and
// per-request timeout.
func NewReferenceValidator(userAgent string) *ReferenceValidator {
	return &ReferenceValidator{
		client: &http.Client{
			Timeout: validationTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxValidationRedirect {
					return fmt.Errorf("stopped after %d redirects", maxValidationRedirect)
				}
				return nil
			},
		},
		userAgent: userAgent,
	}
}

// SetClient replaces the HTTP client, used by tests.
func (v *ReferenceValidator) SetClient(client *http.Client) {
	v.client = client
}

// ValidateAll checks every URL concurrently, at most
// maxConcurrentChecks requests in flight. Result order matches the
// input order.
func (v *ReferenceValidator) ValidateAll(ctx context.Context, urls []string) []ValidationResult {
	results := make([]ValidationResult, len(urls))
	sem := make(chan struct{}, maxConcurrentChecks)
	var wg sync.WaitGroup

	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = ValidationResult{URL: u, Error: "cancelled"}
				return
			}
			results[i] = v.Validate(ctx, u)
		}(i, u)
	}
	wg.Wait()

	return results
}

// Validate checks one URL with a HEAD request, falling back to GET for
// servers that reject HEAD. Any 2xx or 3xx terminal status counts as
// reachable.
func (v *ReferenceValidator) Validate(ctx context.Context, rawURL string) ValidationResult {
	result := ValidationResult{URL: rawURL}

	resp, err := v.request(ctx, http.MethodHead, rawURL)
	if err == nil && resp.StatusCode >= 400 {
		// Some servers 403/405 HEAD but serve GET fine.
		resp.Body.Close()
		resp, err = v.request(ctx, http.MethodGet, rawURL)
	}
	if err != nil {
		result.Error = categorizeError(err)
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.FinalURL = resp.Request.URL.String()
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Valid = true
	} else {
		result.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return result
}

func (v *ReferenceValidator) request(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if v.userAgent != "" {
		req.Header.Set("User-Agent", v.userAgent)
	}
	return v.client.Do(req)
}

func categorizeError(err error) string {
	msg := err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(msg, "Client.Timeout"):
		return "timeout"
	case strings.Contains(msg, "stopped after"):
		return "too many redirects"
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host"):
		return "connection failed"
	default:
		return msg
	}
}
