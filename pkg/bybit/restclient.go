package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"volumebot/pkg/exchange"

	"github.com/shopspring/decimal"
)

// klineLimit is the largest page /v5/market/kline serves.
const klineLimit = 1000

type RESTClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewRESTClient(baseURL string, timeout time.Duration) *RESTClient {
	return &RESTClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// get performs a GET on a V5 endpoint and decodes the result payload into out.
func (c *RESTClient) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	// Construct the GET request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("bybit error: status %d: %s", resp.StatusCode, body)
	}

	var rawResp BybitResponse
	if err := json.NewDecoder(resp.Body).Decode(&rawResp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if rawResp.RetCode != 0 {
		return fmt.Errorf("bybit error: code %d: %s", rawResp.RetCode, rawResp.RetMsg)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rawResp.Result, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

// GetKlines fetches candles opened in [start, end].
func (c *RESTClient) GetKlines(ctx context.Context, category, symbol string, interval KlineInterval,
	start, end time.Time) ([]exchange.Kline, error) {
	query := url.Values{}
	query.Set("category", category)
	query.Set("symbol", symbol)
	query.Set("interval", string(interval))
	query.Set("start", strconv.FormatInt(start.UnixMilli(), 10))
	query.Set("end", strconv.FormatInt(end.UnixMilli(), 10))
	query.Set("limit", strconv.Itoa(klineLimit))

	var result KlinesResponse
	if err := c.get(ctx, "/v5/market/kline", query, &result); err != nil {
		return nil, err
	}
	return ParseKlineList(result.List), nil
}

// GetLastPrice returns the last traded price of symbol; Valid is false when
// Bybit lists no price.
func (c *RESTClient) GetLastPrice(ctx context.Context, category, symbol string) (decimal.NullDecimal, error) {
	query := url.Values{}
	query.Set("category", category)
	query.Set("symbol", symbol)

	var result TickersResponse
	if err := c.get(ctx, "/v5/market/tickers", query, &result); err != nil {
		return decimal.NullDecimal{}, err
	}
	if len(result.List) == 0 || result.List[0].LastPrice == "" {
		return decimal.NullDecimal{}, nil
	}

	price, err := decimal.NewFromString(result.List[0].LastPrice)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("parse last price %q: %w", result.List[0].LastPrice, err)
	}
	return decimal.NewNullDecimal(price), nil
}

func (c *RESTClient) GetServerTime(ctx context.Context) (time.Time, error) {
	var result ServerTimeResponse
	if err := c.get(ctx, "/v5/market/time", nil, &result); err != nil {
		return time.Time{}, err
	}
	sec, err := strconv.ParseInt(result.TimeSecond, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse server time %q: %w", result.TimeSecond, err)
	}
	return time.Unix(sec, 0), nil
}
