package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirechat-presence/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	token := flag.String("token", os.Getenv("WIRECHAT_TOKEN"), "session token (see `wirechat-presence token`)")
	cookie := flag.String("cookie", "token", "name of the session cookie")
	info := flag.String("info", "", "email to look up with users.info")
	timeout := flag.Duration("timeout", 10*time.Second, "how long to watch presence events")
	flag.Parse()

	if *token == "" {
		return errors.New("-token is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	header := http.Header{}
	header.Set("Cookie", (&http.Cookie{Name: *cookie, Value: *token}).String())

	conn, resp, err := websocket.Dial(ctx, *addr, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial: %s: %w", resp.Status, err)
		}
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := wsjson.Write(ctx, conn, proto.Inbound{Event: proto.EventUsersList}); err != nil {
		return fmt.Errorf("send users.list: %w", err)
	}

	if *info != "" {
		raw, err := json.Marshal(*info)
		if err != nil {
			return fmt.Errorf("marshal email: %w", err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Event: proto.EventUsersInfo, Data: raw}); err != nil {
			return fmt.Errorf("send users.info: %w", err)
		}
	}

	for {
		var outbound struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error,omitempty"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		if outbound.Error != nil {
			fmt.Printf("Error: %s %s\n", outbound.Error.Code, outbound.Error.Msg)
			continue
		}

		switch outbound.Event {
		case proto.EventUsersList:
			var ids []proto.Identity
			if err := json.Unmarshal(outbound.Data, &ids); err != nil {
				return fmt.Errorf("unmarshal users.list: %w", err)
			}
			fmt.Printf("Online (%d):\n", len(ids))
			for _, id := range ids {
				fmt.Printf("  %s %s <%s>\n", id.Firstname, id.Lastname, id.Email)
			}
		case proto.EventUsersConnection, proto.EventUsersDisconnection, proto.EventUsersInfo:
			fmt.Printf("%s: %s\n", outbound.Event, outbound.Data)
		default:
			fmt.Printf("event=%s data=%s\n", outbound.Event, outbound.Data)
		}
	}
}
