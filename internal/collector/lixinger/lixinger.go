package lixinger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/intrinsic/internal/core"
)

const DefaultBaseURL = "https://open.lixinger.com/api"

// Lixinger implements QuoteSource for the Lixinger open API
type Lixinger struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// New creates a new Lixinger client. An empty baseURL uses the public API.
func New(apiKey, baseURL string) *Lixinger {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Lixinger{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (l *Lixinger) Name() string { return "lixinger" }

// HasAPIKey returns true if the client has an API key configured
func (l *Lixinger) HasAPIKey() bool {
	return l.apiKey != ""
}

// Quote fetches the real-time quote for one stock
func (l *Lixinger) Quote(ctx context.Context, code string) (*core.Quote, error) {
	if l.apiKey == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("lixinger: api_key is required"))
	}

	payload := map[string]any{
		"token":      l.apiKey,
		"stockCodes": []string{code},
	}

	var result struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    []struct {
			StockCode string  `json:"stockCode"`
			Close     float64 `json:"close"`
			Open      float64 `json:"open"`
			High      float64 `json:"high"`
			Low       float64 `json:"low"`
			Volume    float64 `json:"volume"`
			Amount    float64 `json:"amount"`
			PreClose  float64 `json:"preClose"`
			Change    float64 `json:"change"`
			PctChange float64 `json:"pctChange"`
		} `json:"data"`
	}

	if err := l.postJSON(ctx, l.baseURL+"/cn/stock/real-time", payload, &result); err != nil {
		return nil, err
	}

	if result.Code != 0 {
		return nil, core.WrapError(core.ErrProviderUnavailable,
			fmt.Errorf("lixinger: API error: %s", result.Message))
	}

	if len(result.Data) == 0 {
		return nil, core.WrapError(core.ErrNotFound, fmt.Errorf("lixinger: no quote data for %s", code))
	}

	d := result.Data[0]
	return &core.Quote{
		Code:          code,
		Price:         d.Close,
		Open:          d.Open,
		High:          d.High,
		Low:           d.Low,
		PrevClose:     d.PreClose,
		Change:        d.Change,
		ChangePercent: d.PctChange,
		Volume:        d.Volume,
		Turnover:      d.Amount,
		Time:          time.Now(),
		Source:        "lixinger",
	}, nil
}

func (l *Lixinger) postJSON(ctx context.Context, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return core.WrapError(core.ErrProviderUnavailable, fmt.Errorf("lixinger: request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.WrapError(core.ErrProviderUnavailable,
			fmt.Errorf("lixinger: unexpected status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.WrapError(core.ErrProviderUnavailable, fmt.Errorf("lixinger: decode response failed: %w", err))
	}
	return nil
}
