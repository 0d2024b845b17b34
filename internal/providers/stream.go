package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"MarketScan/internal/domain/models"
	"MarketScan/pkg/cache"
	"MarketScan/pkg/logger"
)

const streamQuoteTTL = 2 * time.Minute

// QuoteStream keeps a websocket open to Finnhub and warms the quote cache
// with live trade prints, so scan cycles for watched symbols skip the REST
// quote call entirely.
type QuoteStream struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	cache cache.Service
	log   *logger.Logger

	conn      *websocket.Conn
	connected bool
}

func NewQuoteStream(apiKey, websocketURL string, symbols []string,
	reconnectDelay, pingInterval time.Duration, c cache.Service, log *logger.Logger) *QuoteStream {
	return &QuoteStream{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		cache:          c,
		log:            log,
	}
}

// Connect establishes the websocket connection.
func (s *QuoteStream) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", s.websocketURL, s.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("quote stream connect: %w", err)
	}
	s.conn = conn
	s.connected = true
	s.log.Info("quote stream connected")
	return nil
}

// Subscribe registers the watched symbols.
func (s *QuoteStream) Subscribe(ctx context.Context) error {
	if s.conn == nil || !s.connected {
		return fmt.Errorf("quote stream not connected")
	}
	for _, sym := range s.symbols {
		msg := map[string]string{"type": "subscribe", "symbol": sym}
		if err := s.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", sym, err)
		}
	}
	s.log.Info("quote stream subscribed", logger.Int("symbols", len(s.symbols)))
	return nil
}

type streamTrade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"` // ms
}

type streamMessage struct {
	Type string        `json:"type"`
	Data []streamTrade `json:"data"`
}

// Run consumes trade frames until the context is cancelled, writing each
// print to the quote cache and reconnecting on read failures.
func (s *QuoteStream) Run(ctx context.Context) {
	go s.pingLoop(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !s.connected {
			if err := s.reconnect(ctx); err != nil {
				s.log.Warn("quote stream reconnect failed", logger.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(s.reconnectDelay):
				}
				continue
			}
		}

		_, b, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("quote stream read failed", logger.Error(err))
			s.connected = false
			continue
		}

		var m streamMessage
		if err := json.Unmarshal(b, &m); err != nil || m.Type != "trade" {
			continue
		}
		for _, d := range m.Data {
			s.warm(ctx, d)
		}
	}
}

func (s *QuoteStream) warm(ctx context.Context, t streamTrade) {
	quote := &models.Quote{Price: t.P, Volume: t.V}
	key := cache.ProviderKey("stream", t.S, "quote")
	if err := s.cache.Set(ctx, key, quote, streamQuoteTTL); err != nil {
		s.log.Debug("quote cache write failed", logger.String("symbol", t.S), logger.Error(err))
	}
}

func (s *QuoteStream) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.conn != nil && s.connected {
				_ = s.conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}
}

func (s *QuoteStream) reconnect(ctx context.Context) error {
	_ = s.Close()
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close tears down the websocket.
func (s *QuoteStream) Close() error {
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected reports connection status.
func (s *QuoteStream) IsConnected() bool { return s.connected }
