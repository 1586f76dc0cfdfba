package bucket

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPNotifier posts newly-seen principals to a router endpoint over
// plain HTTP/JSON, the host's real stand-in for what would be an
// inter-canister call in the original runtime.
type HTTPNotifier struct {
	routerURL  string
	httpClient *http.Client
}

// NewHTTPNotifier returns a Notifier that POSTs to
// routerURL+"/api/v1/new-users" with the given timeout.
func NewHTTPNotifier(routerURL string, timeout time.Duration) *HTTPNotifier {
	return &HTTPNotifier{
		routerURL:  routerURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type newUsersRequest struct {
	Principals []string `json:"principals"`
}

// NotifyNewUsers implements Notifier.
func (n *HTTPNotifier) NotifyNewUsers(ctx context.Context, users []Principal) error {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = hex.EncodeToString(u.Bytes())
	}
	body, err := json.Marshal(newUsersRequest{Principals: ids})
	if err != nil {
		return fmt.Errorf("bucket: marshal notify request: %w", err)
	}

	url := n.routerURL + "/api/v1/new-users"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("bucket: create notify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bucket: notify request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bucket: router returned status %d", resp.StatusCode)
	}
	return nil
}
