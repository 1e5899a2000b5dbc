package rpc

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsFixture runs a WebSocket server whose handler drives one connection.
func wsFixture(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func confirmSubscribe(t *testing.T, conn *websocket.Conn, subID int64) uint64 {
	t.Helper()
	var req wsRequest
	if err := conn.ReadJSON(&req); err != nil {
		t.Errorf("read subscribe: %v", err)
		return 0
	}
	if req.Method != "accountSubscribe" {
		t.Errorf("expected accountSubscribe, got %s", req.Method)
	}
	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": subID}
	if err := conn.WriteJSON(resp); err != nil {
		t.Errorf("write confirmation: %v", err)
	}
	return req.ID
}

func TestWSConn_SubscribeAndNotify(t *testing.T) {
	data := []byte{0x01, 0xAB}
	url := wsFixture(t, func(conn *websocket.Conn) {
		confirmSubscribe(t, conn, 77)

		notif := map[string]interface{}{
			"jsonrpc": "2.0",
			"method":  "accountNotification",
			"params": map[string]interface{}{
				"subscription": 77,
				"result": map[string]interface{}{
					"context": map[string]interface{}{"slot": 1234},
					"value": map[string]interface{}{
						"lamports": 99,
						"owner":    testAddr.String(),
						"data":     []string{base64.StdEncoding.EncodeToString(data), "base64"},
					},
				},
			},
		}
		if err := conn.WriteJSON(notif); err != nil {
			t.Errorf("write notification: %v", err)
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	c, err := DialAccountStream(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("DialAccountStream: %v", err)
	}
	defer c.Close()

	id, updates, err := c.SubscribeAccount(context.Background(), testAddr, CommitmentConfirmed)
	if err != nil {
		t.Fatalf("SubscribeAccount: %v", err)
	}
	if id != 77 {
		t.Errorf("subscription id: got %d", id)
	}

	select {
	case update := <-updates:
		if update.Slot != 1234 || update.Lamports != 99 {
			t.Errorf("update metadata: %+v", update)
		}
		if string(update.Data) != string(data) {
			t.Errorf("update data: %x", update.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestWSConn_SubscribeError(t *testing.T) {
	url := wsFixture(t, func(conn *websocket.Conn) {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		conn.WriteJSON(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": -32602, "message": "invalid pubkey"},
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	c, err := DialAccountStream(context.Background(), url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	_, _, err = c.SubscribeAccount(context.Background(), testAddr, CommitmentConfirmed)
	if err == nil {
		t.Fatal("expected subscription failure")
	}
}

func TestWSConn_DoneOnServerClose(t *testing.T) {
	url := wsFixture(t, func(conn *websocket.Conn) {
		confirmSubscribe(t, conn, 5)
		// Drop the connection abruptly.
		conn.Close()
	})

	c, err := DialAccountStream(context.Background(), url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	_, updates, err := c.SubscribeAccount(context.Background(), testAddr, CommitmentConfirmed)
	if err != nil {
		t.Fatal(err)
	}

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done not closed after server dropped the connection")
	}

	// The subscription channel must be closed, not leaked.
	select {
	case _, ok := <-updates:
		if ok {
			t.Error("expected closed channel, got update")
		}
	case <-time.After(time.Second):
		t.Error("subscription channel not closed")
	}
}

func TestWSConn_UnsubscribeUnknownIsNoop(t *testing.T) {
	url := wsFixture(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	c, err := DialAccountStream(context.Background(), url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.UnsubscribeAccount(context.Background(), 999); err != nil {
		t.Errorf("unsubscribing an unknown id must be a no-op, got %v", err)
	}
}

func TestWSConn_SubscribeAfterClose(t *testing.T) {
	url := wsFixture(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	c, err := DialAccountStream(context.Background(), url, nil)
	if err != nil {
		t.Fatal(err)
	}
	c.Close()

	if _, _, err := c.SubscribeAccount(context.Background(), testAddr, CommitmentConfirmed); err == nil {
		t.Error("subscribe on a closed client must fail")
	}
}

func TestWSConn_SubscribeTimeout(t *testing.T) {
	url := wsFixture(t, func(conn *websocket.Conn) {
		// Swallow the request, never confirm.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	cfg := DefaultWSConfig()
	cfg.SubscribeTimeout = 50 * time.Millisecond
	c, err := DialAccountStream(context.Background(), url, &cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	_, _, err = c.SubscribeAccount(context.Background(), testAddr, CommitmentConfirmed)
	if err == nil {
		t.Fatal("expected confirmation timeout")
	}
}
