package gallery

import (
	"context"
	"net/http"
	"strings"

	"github.com/fasthttp/websocket"
	"github.com/fathima-sithara/mycloud/internal/events"
)

// EventsURL turns the API base URL into the websocket address of /events.
func EventsURL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/") + "/events"
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

// Watch subscribes to the caller's media events and publishes on bus for each
// one, so changes made from another session refresh local views too. It returns
// when ctx is done or the connection drops.
func Watch(ctx context.Context, c *Client, bus *Bus, onEvent func(events.Event)) error {
	header := http.Header{}
	if tok := c.Token(); tok != "" {
		header.Set("Authorization", "Bearer "+tok)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, EventsURL(c.BaseURL()), header)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		var ev events.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if onEvent != nil {
			onEvent(ev)
		}
		bus.Publish()
	}
}
