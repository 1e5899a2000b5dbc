package rpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"cryptoscore-client/internal/pubkey"
)

// WSConfig configures the WebSocket transport.
type WSConfig struct {
	// HandshakeTimeout bounds the initial dial.
	HandshakeTimeout time.Duration
	// SubscribeTimeout bounds the wait for a subscription confirmation.
	SubscribeTimeout time.Duration
	// PingInterval is the interval for keep-alive ping frames.
	PingInterval time.Duration
	// ReadTimeout is the per-message read deadline.
	ReadTimeout time.Duration
	// WriteTimeout is the per-message write deadline.
	WriteTimeout time.Duration
	// ChannelBuffer sizes each subscription's notification channel.
	ChannelBuffer int
}

// DefaultWSConfig returns the default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		HandshakeTimeout: 10 * time.Second,
		SubscribeTimeout: 30 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		ChannelBuffer:    256,
	}
}

// WSConn is one WebSocket connection carrying account subscriptions.
// It does not reconnect: when the connection dies, Done is closed, every
// subscription channel is closed, and the owner dials a fresh connection.
// Reconnect policy (backoff, resubscribe) lives in the subscription
// manager, which owns the retry state machine.
type WSConn struct {
	endpoint string
	config   WSConfig

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	subs   map[int64]chan AccountUpdate
	subsMu sync.Mutex

	pendingSubs   map[uint64]chan subResult
	pendingSubsMu sync.Mutex

	done     chan struct{}
	doneOnce sync.Once
	wg       sync.WaitGroup
}

type subResult struct {
	id  int64
	err error
}

// DialAccountStream connects to the endpoint and starts the reader and
// ping goroutines.
func DialAccountStream(ctx context.Context, endpoint string, config *WSConfig) (*WSConn, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: websocket dial: %v", ErrConnectionLost, err)
	}

	c := &WSConn{
		endpoint:    endpoint,
		config:      cfg,
		conn:        conn,
		subs:        make(map[int64]chan AccountUpdate),
		pendingSubs: make(map[uint64]chan subResult),
		done:        make(chan struct{}),
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	return c, nil
}

var _ AccountStream = (*WSConn)(nil)

// Done is closed when the connection is lost or Close is called.
func (c *WSConn) Done() <-chan struct{} {
	return c.done
}

// markDone closes the done channel and every open subscription channel.
// A partially-established subscription is released through the pending
// map, so no channel leaks from a mid-setup failure.
func (c *WSConn) markDone() {
	c.doneOnce.Do(func() {
		close(c.done)

		c.subsMu.Lock()
		for id, ch := range c.subs {
			close(ch)
			delete(c.subs, id)
		}
		c.subsMu.Unlock()

		c.pendingSubsMu.Lock()
		for id, ch := range c.pendingSubs {
			close(ch)
			delete(c.pendingSubs, id)
		}
		c.pendingSubsMu.Unlock()
	})
}

// SubscribeAccount opens a push subscription for one address.
func (c *WSConn) SubscribeAccount(ctx context.Context, pk pubkey.PublicKey, commitment Commitment) (int64, <-chan AccountUpdate, error) {
	if c.closed.Load() {
		return 0, nil, ErrClosed
	}

	reqID := c.requestID.Add(1)
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "accountSubscribe",
		Params: []interface{}{
			pk.String(),
			map[string]string{
				"encoding":   "base64",
				"commitment": string(commitment),
			},
		},
	}

	confirmCh := make(chan subResult, 1)
	c.pendingSubsMu.Lock()
	c.pendingSubs[reqID] = confirmCh
	c.pendingSubsMu.Unlock()

	cancelPending := func() {
		c.pendingSubsMu.Lock()
		delete(c.pendingSubs, reqID)
		c.pendingSubsMu.Unlock()
	}

	if err := c.writeJSON(req); err != nil {
		cancelPending()
		return 0, nil, fmt.Errorf("%w: write subscribe: %v", ErrSubscriptionFailed, err)
	}

	select {
	case res, ok := <-confirmCh:
		if !ok {
			return 0, nil, ErrConnectionLost
		}
		if res.err != nil {
			return 0, nil, res.err
		}
		ch := make(chan AccountUpdate, c.config.ChannelBuffer)
		c.subsMu.Lock()
		c.subs[res.id] = ch
		c.subsMu.Unlock()
		return res.id, ch, nil
	case <-time.After(c.config.SubscribeTimeout):
		cancelPending()
		return 0, nil, fmt.Errorf("%w: confirmation timeout", ErrSubscriptionFailed)
	case <-c.done:
		return 0, nil, ErrConnectionLost
	case <-ctx.Done():
		cancelPending()
		return 0, nil, ctx.Err()
	}
}

// UnsubscribeAccount releases one subscription and closes its channel.
// Unknown ids are a no-op.
func (c *WSConn) UnsubscribeAccount(ctx context.Context, id int64) error {
	c.subsMu.Lock()
	ch, ok := c.subs[id]
	if ok {
		delete(c.subs, id)
		close(ch)
	}
	c.subsMu.Unlock()
	if !ok {
		return nil
	}

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  "accountUnsubscribe",
		Params:  []interface{}{id},
	}
	if err := c.writeJSON(req); err != nil {
		// The channel is already released locally; a write failure here
		// means the connection is dying and the server side goes with it.
		return fmt.Errorf("%w: write unsubscribe: %v", ErrConnectionLost, err)
	}
	return nil
}

// Close tears down the connection and every open subscription.
func (c *WSConn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.markDone()
	c.wg.Wait()
	return nil
}

func (c *WSConn) writeJSON(v interface{}) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return ErrConnectionLost
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(v)
}

// readLoop reads messages and dispatches them until the connection dies.
func (c *WSConn) readLoop() {
	defer c.wg.Done()
	defer c.markDone()

	for {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleMessage(message)
	}
}

// pingLoop sends periodic keep-alive frames.
func (c *WSConn) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				// A failed ping surfaces as a read error in readLoop.
				c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

// handleMessage classifies and dispatches one incoming message.
func (c *WSConn) handleMessage(message []byte) {
	var probe struct {
		ID     uint64          `json:"id"`
		Method string          `json:"method"`
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.Unmarshal(message, &probe); err != nil {
		return
	}

	switch {
	case probe.Method == "accountNotification":
		c.handleNotification(message)
	case probe.ID != 0:
		c.handleReply(probe.ID, probe.Result, probe.Error)
	}
}

// handleReply resolves a pending subscribe request.
func (c *WSConn) handleReply(reqID uint64, result json.RawMessage, rpcErr *rpcError) {
	c.pendingSubsMu.Lock()
	ch, ok := c.pendingSubs[reqID]
	if ok {
		delete(c.pendingSubs, reqID)
	}
	c.pendingSubsMu.Unlock()
	if !ok {
		// Unsubscribe acks land here; nothing waits on them.
		return
	}

	if rpcErr != nil {
		ch <- subResult{err: fmt.Errorf("%w: %v", ErrSubscriptionFailed, classifyRPCError(rpcErr))}
		return
	}
	var subID int64
	if err := json.Unmarshal(result, &subID); err != nil {
		ch <- subResult{err: fmt.Errorf("%w: bad confirmation: %v", ErrSubscriptionFailed, err)}
		return
	}
	ch <- subResult{id: subID}
}

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsAccountNotification struct {
	Params struct {
		Subscription int64 `json:"subscription"`
		Result       struct {
			Context rpcContext   `json:"context"`
			Value   accountValue `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

// handleNotification dispatches one account update to its subscriber.
// Delivery per subscription is in arrival order.
func (c *WSConn) handleNotification(message []byte) {
	var notif wsAccountNotification
	if err := json.Unmarshal(message, &notif); err != nil {
		return
	}

	value := notif.Params.Result.Value
	update := AccountUpdate{
		Slot:     notif.Params.Result.Context.Slot,
		Lamports: value.Lamports,
	}
	if owner, err := pubkey.FromBase58(value.Owner); err == nil {
		update.Owner = owner
	}
	if len(value.Data) >= 1 && value.Data[0] != "" {
		data, err := base64.StdEncoding.DecodeString(value.Data[0])
		if err != nil {
			return
		}
		update.Data = data
	}

	// The send happens under subsMu so an unsubscribe cannot close the
	// channel mid-send. It is non-blocking: account state is latest-wins,
	// and a consumer slower than the buffer gets healed by the next
	// update or the staleness check upstream.
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	ch, ok := c.subs[notif.Params.Subscription]
	if !ok {
		return
	}
	select {
	case ch <- update:
	default:
	}
}
