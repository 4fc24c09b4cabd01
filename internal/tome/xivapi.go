package tome

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// XIVAPI resolves actions against the XIVAPI Action sheet.
type XIVAPI struct {
	baseURL    string
	httpClient *http.Client
}

var _ Resolver = (*XIVAPI)(nil)

// XIVAPIOption configures an XIVAPI client.
type XIVAPIOption func(*XIVAPI)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) XIVAPIOption {
	return func(x *XIVAPI) {
		if client != nil {
			x.httpClient = client
		}
	}
}

// NewXIVAPI creates a resolver for baseURL (e.g. https://xivapi.com).
func NewXIVAPI(baseURL string, opts ...XIVAPIOption) (*XIVAPI, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tome: xivapi base url required")
	}
	x := &XIVAPI{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(x)
	}
	return x, nil
}

type actionRow struct {
	ID          int    `json:"ID"`
	Name        string `json:"Name"`
	Icon        string `json:"Icon"`
	Recast100ms int    `json:"Recast100ms"`
}

// Resolve fetches the action whose hexadecimal log-line id is id.
func (x *XIVAPI) Resolve(ctx context.Context, id string) (Action, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(id), 16, 32)
	if err != nil {
		return Action{}, fmt.Errorf("tome: action id %q: %w", id, ErrUnknownAction)
	}

	endpoint := fmt.Sprintf("%s/Action/%d?%s", x.baseURL, n, url.Values{
		"columns": {"ID,Name,Icon,Recast100ms"},
	}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Action{}, fmt.Errorf("tome: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return Action{}, fmt.Errorf("tome: fetch action %s: %w", id, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Action{}, fmt.Errorf("tome: action %s: %w", id, ErrUnknownAction)
	case resp.StatusCode != http.StatusOK:
		return Action{}, fmt.Errorf("tome: fetch action %s: unexpected status %s", id, resp.Status)
	}

	var row actionRow
	if err := json.NewDecoder(resp.Body).Decode(&row); err != nil {
		return Action{}, fmt.Errorf("tome: decode action %s: %w", id, err)
	}

	icon := row.Icon
	if icon != "" && !strings.HasPrefix(icon, "http") {
		icon = x.baseURL + "/" + strings.TrimLeft(icon, "/")
	}
	return Action{
		ID:     id,
		Name:   row.Name,
		Icon:   icon,
		Recast: time.Duration(row.Recast100ms) * 100 * time.Millisecond,
	}, nil
}
