package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// SnapshotReason marks the first message on a connection: the wallet as it
// stood when the client subscribed.
const SnapshotReason = "snapshot"

const (
	sendBuffer   = 16
	readLimit    = 512
	pongWait     = 60 * time.Second
	pingInterval = 50 * time.Second
	writeWait    = 10 * time.Second
)

// Client is one connection subscribed to a single wallet owner.
type Client struct {
	owner int64
	conn  *websocket.Conn
	send  chan []byte
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWallet subscribes the connection to owner's wallet updates. A non-nil
// snapshot is queued ahead of any broadcast, so the client never has to
// fetch the wallet separately.
func ServeWallet(w http.ResponseWriter, r *http.Request, hub *Hub, owner int64, snapshot *WalletUpdate) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).WithField("owner", owner).Debug("wallet subscription upgrade failed")
		return
	}
	client := &Client{owner: owner, conn: conn, send: make(chan []byte, sendBuffer)}
	if snapshot != nil {
		first := *snapshot
		first.Owner = owner
		first.Delta = 0
		first.Reason = SnapshotReason
		first.TransferID = ""
		client.deliver(encode(first))
	}
	hub.Register(owner, client)
	log.WithFields(log.Fields{
		"owner":       owner,
		"connections": hub.Connections(owner),
	}).Debug("wallet subscriber connected")
	go client.writePump(hub)
	client.readPump(hub)
}

// deliver queues payload without blocking and reports whether it fit.
func (c *Client) deliver(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// readPump only keeps the read deadline alive; subscribers send nothing.
func (c *Client) readPump(hub *Hub) {
	defer func() {
		hub.Unregister(c.owner, c)
		_ = c.conn.Close()
		log.WithField("owner", c.owner).Debug("wallet subscriber disconnected")
	}()
	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump(hub *Hub) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		hub.Unregister(c.owner, c)
		_ = c.conn.Close()
	}()
	for {
		select {
		case update, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, update); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
