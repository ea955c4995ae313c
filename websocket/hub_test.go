package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestHub(t *testing.T, hub *Hub) (*websocket.Conn, func()) {
	t.Helper()

	e := echo.New()
	e.GET("/ws", func(c echo.Context) error {
		return HandleWebSocket(c, hub)
	})
	server := httptest.NewServer(e)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func TestHubDeliversBroadcasts(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn, cleanup := dialTestHub(t, hub)
	defer cleanup()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var welcome Event
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.Equal(t, "connected", welcome.Type)

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, 5*time.Second, 10*time.Millisecond)

	hub.Broadcast(Event{Type: EventPostCreated, Data: map[string]string{"title": "Hello"}})

	var event Event
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, EventPostCreated, event.Type)
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn, cleanup := dialTestHub(t, hub)
	defer cleanup()

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, 5*time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestBroadcastDropsDeadClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	serverConns := make(chan *websocket.Conn, 1)
	e := echo.New()
	e.GET("/ws", func(c echo.Context) error {
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return err
		}
		serverConns <- conn
		return nil
	})
	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	peer, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer peer.Close()

	conn := <-serverConns
	hub.register <- &Client{Conn: conn}
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, 5*time.Second, 10*time.Millisecond)

	// Writing to a closed connection fails and must evict the client
	conn.Close()
	hub.Broadcast(Event{Type: EventPostDeleted})

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestBroadcastNeverBlocksWithoutListeners(t *testing.T) {
	hub := NewHub()
	// No Run loop: the buffered channel fills and further events are dropped
	for i := 0; i < 100; i++ {
		hub.Broadcast(Event{Type: EventCommentCreated})
	}
	assert.Equal(t, 0, hub.ClientCount())
}
