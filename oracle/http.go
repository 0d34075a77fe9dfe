package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/fundme/meta"
)

// 读取 mockserver 提供的喂价接口
type HTTPFeed struct {
	baseURL string
	client  *http.Client
}

func NewHTTPFeed(baseURL string, client *http.Client) *HTTPFeed {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFeed{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (f *HTTPFeed) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return unavailable(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: GET %s: %s", ErrOracleUnavailable, path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrOracleUnavailable, path, err)
	}
	return nil
}

func (f *HTTPFeed) Decimals(ctx context.Context) (uint8, error) {
	var out struct {
		Decimals uint8 `json:"decimals"`
	}
	err := f.get(ctx, "/decimals", &out)
	return out.Decimals, err
}

func (f *HTTPFeed) LatestRoundData(ctx context.Context) (meta.RoundData, error) {
	var out meta.RoundData
	err := f.get(ctx, "/latestRoundData", &out)
	return out, err
}
