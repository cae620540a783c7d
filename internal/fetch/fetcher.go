package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single fetch so a stalled monitored
// application cannot block the poll loop indefinitely.
const DefaultTimeout = 5 * time.Second

// NetworkError reports a failed or timed-out fetch. The poll loop
// treats it as a cycle with zero trees.
type NetworkError struct {
	Address string
	Err     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetch from %s: %v", e.Address, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Fetcher performs single-shot reads of /call_tree documents.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher whose requests time out after the given
// duration. timeout <= 0 uses DefaultTimeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch performs one GET against http://{address}/call_tree and returns
// the raw response body. Every failure, timeouts included, is reported
// as a *NetworkError.
func (f *Fetcher) Fetch(ctx context.Context, address string) ([]byte, error) {
	url := fmt.Sprintf("http://%s/call_tree", address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{Address: address, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Address: address, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &NetworkError{Address: address, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Address: address, Err: err}
	}
	return body, nil
}
