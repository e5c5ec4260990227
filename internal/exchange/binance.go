package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"spot_bot/internal/models"
)

// Client — Binance spot REST клиент (testnet по умолчанию).
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	http      *http.Client
	wsDialer  *websocket.Dialer
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		wsDialer: &websocket.Dialer{},
	}
}

func (c *Client) SetCreds(key, secret string) { c.apiKey, c.apiSecret = key, secret }

func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v3/ping", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		rb, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(rb))
	}
	return nil
}

func (c *Client) GetPrice(ctx context.Context, symbol string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v3/ticker/price?symbol="+url.QueryEscape(symbol), nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	rb, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return 0, fmt.Errorf("http %d: %s", resp.StatusCode, string(rb))
	}
	var payload struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(rb, &payload); err != nil {
		return 0, err
	}
	px, err := strconv.ParseFloat(payload.Price, 64)
	if err != nil || px <= 0 {
		return 0, fmt.Errorf("bad ticker price %q: %v", payload.Price, err)
	}
	return px, nil
}

func (c *Client) GetBalance(ctx context.Context, asset string) (float64, error) {
	rb, err := c.signedCall(ctx, http.MethodGet, "/api/v3/account", url.Values{})
	if err != nil {
		return 0, err
	}
	var payload struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(rb, &payload); err != nil {
		return 0, err
	}
	for _, b := range payload.Balances {
		if b.Asset == asset {
			v, err := strconv.ParseFloat(b.Free, 64)
			if err != nil {
				return 0, fmt.Errorf("parse %s free %q: %w", asset, b.Free, err)
			}
			return v, nil
		}
	}
	return 0, nil
}

func (c *Client) GetSymbolConstraints(ctx context.Context, symbol string) (models.SymbolConstraints, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v3/exchangeInfo?symbol="+url.QueryEscape(symbol), nil)
	if err != nil {
		return models.SymbolConstraints{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return models.SymbolConstraints{}, err
	}
	defer resp.Body.Close()

	rb, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return models.SymbolConstraints{}, fmt.Errorf("http %d: %s", resp.StatusCode, string(rb))
	}
	var payload struct {
		Symbols []struct {
			Symbol  string `json:"symbol"`
			Filters []struct {
				FilterType string `json:"filterType"`
				TickSize   string `json:"tickSize"`
				MinPrice   string `json:"minPrice"`
				MaxPrice   string `json:"maxPrice"`
			} `json:"filters"`
		} `json:"symbols"`
	}
	if err := json.Unmarshal(rb, &payload); err != nil {
		return models.SymbolConstraints{}, err
	}
	if len(payload.Symbols) == 0 {
		return models.SymbolConstraints{}, fmt.Errorf("symbol %s not found", symbol)
	}

	parsePos := func(name, s string) (float64, error) {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			return 0, fmt.Errorf("%s parse: %v (%q)", name, err, s)
		}
		return v, nil
	}
	for _, f := range payload.Symbols[0].Filters {
		if f.FilterType != "PRICE_FILTER" {
			continue
		}
		tick, err := parsePos("tickSize", f.TickSize)
		if err != nil {
			return models.SymbolConstraints{}, err
		}
		minPx, err := parsePos("minPrice", f.MinPrice)
		if err != nil {
			return models.SymbolConstraints{}, err
		}
		maxPx, err := parsePos("maxPrice", f.MaxPrice)
		if err != nil {
			return models.SymbolConstraints{}, err
		}
		return models.SymbolConstraints{TickSize: tick, MinPrice: minPx, MaxPrice: maxPx}, nil
	}
	return models.SymbolConstraints{}, fmt.Errorf("symbol %s has no PRICE_FILTER", symbol)
}

func (c *Client) SubmitOrder(ctx context.Context, intent models.TradeIntent, tif models.TimeInForce) (models.OrderReceipt, error) {
	params := url.Values{}
	params.Set("symbol", intent.Symbol)
	params.Set("side", string(intent.Side))
	params.Set("type", string(intent.Kind))
	params.Set("quantity", strconv.FormatFloat(intent.Quantity, 'f', -1, 64))
	if intent.Kind == models.KindLimit {
		params.Set("price", strconv.FormatFloat(intent.LimitPrice, 'f', -1, 64))
		if tif == "" {
			tif = models.TifGTC
		}
		params.Set("timeInForce", string(tif))
	}

	rb, err := c.signedCall(ctx, http.MethodPost, "/api/v3/order", params)
	if err != nil {
		return models.OrderReceipt{}, err
	}

	var payload struct {
		OrderID      int64  `json:"orderId"`
		Status       string `json:"status"`
		TransactTime int64  `json:"transactTime"`
		ExecutedQty  string `json:"executedQty"`
		Fills        []struct {
			Price string `json:"price"`
			Qty   string `json:"qty"`
		} `json:"fills"`
	}
	if err := json.Unmarshal(rb, &payload); err != nil {
		return models.OrderReceipt{}, err
	}

	// средневзвешенная цена по fills; для лежащей лимитки fills пуст
	var fillQty, notional float64
	for _, f := range payload.Fills {
		px, _ := strconv.ParseFloat(f.Price, 64)
		qty, _ := strconv.ParseFloat(f.Qty, 64)
		fillQty += qty
		notional += px * qty
	}
	var fillPx float64
	if fillQty > 0 {
		fillPx = notional / fillQty
	}
	return models.OrderReceipt{
		OrderID:   payload.OrderID,
		Status:    payload.Status,
		FillPrice: fillPx,
		FillQty:   fillQty,
		Created:   time.UnixMilli(payload.TransactTime),
	}, nil
}

// signedCall подписывает запрос как требует Binance: query+timestamp, HMAC-SHA256 hex.
func (c *Client) signedCall(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	query := params.Encode()

	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(query))
	query += "&signature=" + hex.EncodeToString(h.Sum(nil))

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+query, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	rb, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		var apiErr struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		if json.Unmarshal(rb, &apiErr) == nil && apiErr.Msg != "" {
			return nil, fmt.Errorf("binance error %d: %s", apiErr.Code, apiErr.Msg)
		}
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(rb))
	}
	return rb, nil
}
