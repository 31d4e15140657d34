package stream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// WebsocketConnector opens the provider's streaming gateway over a websocket
// and pumps decoded events into the lifecycle manager.
type WebsocketConnector struct {
	url    string
	token  string
	logger *slog.Logger
}

// NewWebsocketConnector creates a connector for the given gateway URL and
// bearer token.
func NewWebsocketConnector(gatewayURL, token string, logger *slog.Logger) *WebsocketConnector {
	return &WebsocketConnector{url: gatewayURL, token: token, logger: logger}
}

// Open implements Connector. The source id set is passed as a follow list in
// the query string; the read loop runs until the connection drops or ctx is
// cancelled.
func (c *WebsocketConnector) Open(ctx context.Context, sourceIDs []string, events Events) (io.Closer, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, fmt.Errorf("parse gateway url: %w", err)
	}
	q := u.Query()
	q.Set("follow", strings.Join(sourceIDs, ","))
	u.RawQuery = q.Encode()

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("dial stream gateway: %w", err)
	}

	go c.readLoop(ctx, conn, events)
	return conn, nil
}

func (c *WebsocketConnector) readLoop(ctx context.Context, conn *websocket.Conn, events Events) {
	events.OnStart()

	for {
		select {
		case <-ctx.Done():
			conn.Close()
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("stream read failed", "error", err)
				events.OnEnd()
			}
			return
		}

		event, err := parseEvent(message)
		if err != nil {
			c.logger.Error("failed to parse stream event", "error", err)
			continue
		}

		if len(event.Errors) > 0 {
			e := event.Errors[0]
			// Fatal errors terminate the process from the handler; transient
			// ones schedule a reconnect. Either way this connection is done.
			events.OnError(&Error{Title: e.Title, Detail: e.Detail, Type: e.Type, Code: e.Code})
			conn.Close()
			return
		}

		if event.Data == nil {
			continue
		}
		events.OnData(event.Data.toDomain(), event.toLookup())
	}
}
