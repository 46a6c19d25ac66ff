package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newEventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "observe events on a running system's bus",
	}
	cmd.AddCommand(newEventStreamCmd())
	return cmd
}

type streamedEvent struct {
	Category   string          `json:"category"`
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters"`
	Timestamp  time.Time       `json:"timestamp"`
}

// newEventStreamCmd dials the system's websocket event stream and
// prints each event as it arrives, with a humanized time-since-start
// column so a long-running watch session reads at a glance.
func newEventStreamCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stream",
		Short: "stream every event published on the bus until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := wsURL("/v1/events")
			if err != nil {
				return err
			}
			conn, _, err := websocket.DefaultDialer.Dial(target, nil)
			if err != nil {
				return fmt.Errorf("dial %s: %w", target, err)
			}
			defer conn.Close()

			started := time.Now()
			for {
				var ev streamedEvent
				if err := conn.ReadJSON(&ev); err != nil {
					return nil
				}
				fmt.Printf("[%s] %s.%s %s\n", humanize.RelTime(started, time.Now(), "", ""), ev.Category, ev.Name, string(ev.Parameters))
			}
		},
	}
}
