package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultJupiterURL is the Jupiter price API base.
const DefaultJupiterURL = "https://price.jup.ag/v4"

// Quoter returns USD prices keyed by mint. Mints without a quote are omitted.
type Quoter interface {
	Prices(ctx context.Context, mints []string) (map[string]float64, error)
}

// JupiterClient queries GET {base}/price?ids=a,b.
type JupiterClient struct {
	baseURL string
	client  *http.Client
}

// NewJupiterClient creates a price client. Empty baseURL selects DefaultJupiterURL.
func NewJupiterClient(baseURL string, timeout time.Duration) *JupiterClient {
	if baseURL == "" {
		baseURL = DefaultJupiterURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &JupiterClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type jupiterResponse struct {
	Data map[string]jupiterQuote `json:"data"`
}

type jupiterQuote struct {
	ID    string    `json:"id"`
	Price flexFloat `json:"price"`
}

// flexFloat accepts a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse price %q: %w", s, err)
	}
	*f = flexFloat(v)
	return nil
}

// Prices fetches quotes for mints in one request.
func (c *JupiterClient) Prices(ctx context.Context, mints []string) (map[string]float64, error) {
	if len(mints) == 0 {
		return map[string]float64{}, nil
	}

	ids := append([]string(nil), mints...)
	sort.Strings(ids)
	endpoint := c.baseURL + "/price?ids=" + url.QueryEscape(strings.Join(ids, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jupiter price api: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var parsed jupiterResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	out := make(map[string]float64, len(parsed.Data))
	for _, mint := range mints {
		q, ok := parsed.Data[mint]
		if !ok || q.Price <= 0 {
			continue
		}
		out[mint] = float64(q.Price)
	}
	return out, nil
}

var _ Quoter = (*JupiterClient)(nil)
