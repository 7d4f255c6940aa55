package feed

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
	"github.com/yanun0323/pkg/ws"

	"main/internal/model"
)

const _binanceFuturesWsUrl = "wss://fstream.binance.com/ws"

// BinancePub streams live observations from binance usd-m futures.
type BinancePub struct {
	wss     *ws.WebSocket
	symbols []string

	funding map[string]float64 // symbol -> latest funding rate
}

// NewBinancePub creates a client for the futures stream endpoint.
func NewBinancePub(ctx context.Context, symbols ...string) *BinancePub {
	return &BinancePub{
		wss:     ws.New(ctx, _binanceFuturesWsUrl),
		symbols: symbols,
		funding: make(map[string]float64),
	}
}

// Start opens the websocket connection and subscribes the configured
// symbols.
func (repo *BinancePub) Start(ctx context.Context) error {
	if err := repo.wss.Start(ctx); err != nil {
		return errors.Wrap(err, "start wss")
	}
	for _, symbol := range repo.symbols {
		if err := repo.Subscribe(ctx, symbol); err != nil {
			return errors.Wrap(err, "subscribe "+symbol)
		}
	}
	return nil
}

// Close drops the connection.
func (repo *BinancePub) Close() {
	repo.wss.Close()
}

type binanceSubscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

type binanceSubscribeResponse struct {
	ID     int64 `json:"id"`
	Result any   `json:"result"`
}

// Subscribe registers the 24h ticker and mark price streams for the symbol.
func (repo *BinancePub) Subscribe(ctx context.Context, symbol string) error {
	lower := strings.ToLower(symbol)
	reqID := time.Now().UnixNano()
	if err := repo.wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, client *ws.WebSocket) error {
			payload := binanceSubscribeRequest{
				Method: "SUBSCRIBE",
				Params: []string{
					fmt.Sprintf("%s@ticker", lower),
					fmt.Sprintf("%s@markPrice", lower),
				},
				ID: reqID,
			}
			if err := client.WriteJSON(payload); err != nil {
				return errors.Wrap(err, "write subscribe payload").With("payload", payload)
			}
			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			var resp binanceSubscribeResponse
			if err := m.Unmarshal(&resp); err != nil || resp.ID != reqID {
				return false, nil
			}
			if resp.Result != nil {
				return false, errors.Errorf("subscribe, err: %+v", resp.Result)
			}
			return true, nil
		},
	}); err != nil {
		return errors.Wrap(err, "send and wait")
	}
	return nil
}

type binanceTicker struct {
	EventType   string          `json:"e"`
	EventTime   int64           `json:"E"`
	Symbol      string          `json:"s"`
	Last        decimal.Decimal `json:"c"`
	ChangePct   decimal.Decimal `json:"P"`
	QuoteVolume decimal.Decimal `json:"q"`
}

type binanceMarkPrice struct {
	EventType   string          `json:"e"`
	EventTime   int64           `json:"E"`
	Symbol      string          `json:"s"`
	MarkPrice   decimal.Decimal `json:"p"`
	FundingRate decimal.Decimal `json:"r"`
}

// Observe converts incoming stream events into observations. Funding rates
// arrive on their own stream and ride along with the next ticker event.
func (repo *BinancePub) Observe(ctx context.Context, handler func(model.Observation)) (unsubscribe func()) {
	ch, cancel := repo.wss.Subscribe()
	go func() {
		defer cancel()
		for {
			select {
			case <-sys.Shutdown():
				return
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}

				if mark, ok := ws.ReadMessage[binanceMarkPrice](m); ok && mark.EventType == "markPriceUpdate" {
					repo.funding[mark.Symbol] = toFloat(mark.FundingRate)
					continue
				}

				ticker, ok := ws.ReadMessage[binanceTicker](m)
				if !ok || ticker.EventType != "24hrTicker" {
					continue
				}

				obs := model.Observation{
					Symbol:       ticker.Symbol,
					Price:        toFloat(ticker.Last),
					Volume24h:    toFloat(ticker.QuoteVolume),
					Change24hPct: toFloat(ticker.ChangePct),
					FundingRate:  repo.funding[ticker.Symbol],
					Timestamp:    time.UnixMilli(ticker.EventTime),
				}
				if obs.Price <= 0 {
					logs.Warnf("drop ticker with non-positive price, symbol: %s", obs.Symbol)
					continue
				}
				handler(obs)
			}
		}
	}()

	return cancel
}

// toFloat converts an exact decimal payload field once, at the boundary.
func toFloat(d decimal.Decimal) float64 {
	f, err := strconv.ParseFloat(fmt.Sprint(d), 64)
	if err != nil {
		return 0
	}
	return f
}
