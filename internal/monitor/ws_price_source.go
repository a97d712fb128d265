package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/DoctorKnockers/ag-trading-bot/internal/market"
	"github.com/DoctorKnockers/ag-trading-bot/internal/observability"
)

// WSPriceConfig configures WebSocket price stream behavior.
type WSPriceConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// StaleAfter bounds how old a cached price may be and still serve.
	StaleAfter time.Duration
}

// DefaultWSPriceConfig returns default stream configuration.
func DefaultWSPriceConfig() WSPriceConfig {
	return WSPriceConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		StaleAfter:        2 * time.Minute,
	}
}

// WSPriceSource keeps a live price cache fed by a WebSocket stream and
// serves it through the market.PriceSource interface. The runner reads
// it exactly like the polling source; only freshness differs.
type WSPriceSource struct {
	endpoint string
	config   WSPriceConfig

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	// subscribed mints, resubscribed after reconnect
	mints   map[string]bool
	mintsMu sync.Mutex

	// latest price per mint
	cache   map[string]*market.TokenStats
	cacheMu sync.RWMutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// priceUpdate is one stream message.
type priceUpdate struct {
	Mint         string  `json:"mint"`
	PriceUSD     float64 `json:"priceUsd"`
	LiquidityUSD float64 `json:"liquidityUsd"`
	TsMs         int64   `json:"ts"`
}

// subscribeMsg is the outbound subscription frame.
type subscribeMsg struct {
	Op   string `json:"op"`
	Mint string `json:"mint"`
}

// NewWSPriceSource connects to the stream endpoint.
func NewWSPriceSource(ctx context.Context, endpoint string, config *WSPriceConfig) (*WSPriceSource, error) {
	cfg := DefaultWSPriceConfig()
	if config != nil {
		cfg = *config
	}

	s := &WSPriceSource{
		endpoint: endpoint,
		config:   cfg,
		mints:    make(map[string]bool),
		cache:    make(map[string]*market.TokenStats),
		done:     make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.readLoop()

	s.wg.Add(1)
	go s.pingLoop()

	return s, nil
}

var _ market.PriceSource = (*WSPriceSource)(nil)

// connect establishes the WebSocket connection.
func (s *WSPriceSource) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.conn = conn
	return nil
}

// Subscribe starts streaming prices for a mint.
func (s *WSPriceSource) Subscribe(mint string) error {
	if s.closed.Load() {
		return fmt.Errorf("source closed")
	}

	s.mintsMu.Lock()
	s.mints[mint] = true
	s.mintsMu.Unlock()

	return s.writeSubscribe(mint)
}

// Unsubscribe stops streaming a mint and drops its cached price.
func (s *WSPriceSource) Unsubscribe(mint string) {
	s.mintsMu.Lock()
	delete(s.mints, mint)
	s.mintsMu.Unlock()

	s.cacheMu.Lock()
	delete(s.cache, mint)
	s.cacheMu.Unlock()
}

// TokenStats serves the latest streamed price for a mint. A mint with no
// fresh price yet reports market.ErrNoPair, same as an unlisted token on
// the polling source.
func (s *WSPriceSource) TokenStats(_ context.Context, mint string) (*market.TokenStats, error) {
	s.cacheMu.RLock()
	stats, ok := s.cache[mint]
	s.cacheMu.RUnlock()

	if !ok {
		return nil, market.ErrNoPair
	}
	if s.config.StaleAfter > 0 && time.Since(stats.ObservedAt) > s.config.StaleAfter {
		return nil, market.ErrNoPair
	}

	statsCopy := *stats
	return &statsCopy, nil
}

// Close shuts down the stream.
func (s *WSPriceSource) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *WSPriceSource) writeSubscribe(mint string) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return fmt.Errorf("not connected")
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteJSON(subscribeMsg{Op: "subscribe", Mint: mint}); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// readLoop reads stream messages and maintains the cache.
func (s *WSPriceSource) readLoop() {
	defer s.wg.Done()

	reconnectDelay := s.config.ReconnectDelay

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}

			if !s.reconnecting.Swap(true) {
				go s.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > s.config.MaxReconnectDelay {
				reconnectDelay = s.config.MaxReconnectDelay
			}

			select {
			case <-s.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = s.config.ReconnectDelay

		s.handleMessage(message)
	}
}

func (s *WSPriceSource) handleMessage(message []byte) {
	var update priceUpdate
	if err := json.Unmarshal(message, &update); err != nil {
		return
	}
	if update.Mint == "" || update.PriceUSD <= 0 {
		return
	}

	observed := time.Now().UTC()
	if update.TsMs > 0 {
		observed = time.UnixMilli(update.TsMs).UTC()
		if delay := time.Since(observed); delay > 0 {
			observability.DefaultMetrics.WSMessageLatency.Observe(delay.Seconds())
		}
	}

	s.cacheMu.Lock()
	s.cache[update.Mint] = &market.TokenStats{
		Mint:         update.Mint,
		PriceUSD:     update.PriceUSD,
		LiquidityUSD: update.LiquidityUSD,
		ObservedAt:   observed,
	}
	s.cacheMu.Unlock()
}

// reconnect attempts to reconnect and resubscribe.
func (s *WSPriceSource) reconnect(delay time.Duration) {
	defer s.reconnecting.Store(false)

	if s.closed.Load() {
		return
	}

	select {
	case <-s.done:
		return
	case <-time.After(delay):
	}

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.connect(ctx); err != nil {
		// Will retry on next read error
		return
	}

	s.mintsMu.Lock()
	mints := make([]string, 0, len(s.mints))
	for mint := range s.mints {
		mints = append(mints, mint)
	}
	s.mintsMu.Unlock()

	for _, mint := range mints {
		s.writeSubscribe(mint)
	}
}

// pingLoop sends periodic pings to keep the connection alive.
func (s *WSPriceSource) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				s.conn.WriteMessage(websocket.PingMessage, nil)
			}
			s.connMu.Unlock()
		}
	}
}
