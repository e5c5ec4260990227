package exchange

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"strings"
	"time"
)

const wsBase = "wss://stream.binance.com:9443/ws"

type PriceTick struct {
	Symbol string
	Price  float64
}

// StreamPrices — live поток последних цен через miniTicker-стрим.
// Используется для интерактивного watch, стратегия ходит по REST.
func (c *Client) StreamPrices(ctx context.Context, symbol string) <-chan PriceTick {
	ch := make(chan PriceTick)
	go func() {
		defer close(ch)
		url := wsBase + "/" + strings.ToLower(symbol) + "@miniTicker"
		retry := 0
		for {
			conn, _, err := c.wsDialer.Dial(url, nil)
			if err != nil {
				retry++
				if retry > 8 {
					log.Printf("[WS] %s: giving up after %d dial errors: %v", symbol, retry, err)
					return
				}
				time.Sleep(time.Duration(300*retry) * time.Millisecond)
				continue
			}
			retry = 0

			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					_ = conn.Close()
					break
				}
				var frame struct {
					EventType string `json:"e"`
					Symbol    string `json:"s"`
					Close     string `json:"c"`
				}
				if err := json.Unmarshal(msg, &frame); err != nil || frame.EventType != "24hrMiniTicker" {
					continue
				}
				px, err := strconv.ParseFloat(frame.Close, 64)
				if err != nil || px <= 0 {
					continue
				}
				select {
				case ch <- PriceTick{Symbol: frame.Symbol, Price: px}:
				case <-ctx.Done():
					_ = conn.Close()
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			default:
				time.Sleep(1 * time.Second)
			}
		}
	}()
	return ch
}
