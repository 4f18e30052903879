package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/subseaworks/corridor-simulator/core"
)

func TestEventStreamReplayAndLive(t *testing.T) {
	sim, r := newTestRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	// An event recorded before the client connects arrives as replay.
	if _, err := sim.InjectHazard("anchor_drag", "power", 800, "moderate"); err != nil {
		t.Fatal(err)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var replay core.Event
	if err := conn.ReadJSON(&replay); err != nil {
		t.Fatal(err)
	}
	if replay.Category != "hazard" || replay.AssetID != "power" {
		t.Errorf("replayed event = %+v", replay)
	}

	// A later event arrives live.
	if _, err := sim.InjectHazard("cable_fault", "fiber", 40, "low"); err != nil {
		t.Fatal(err)
	}
	var live core.Event
	if err := conn.ReadJSON(&live); err != nil {
		t.Fatal(err)
	}
	if live.AssetID != "fiber" || live.Seq <= replay.Seq {
		t.Errorf("live event = %+v after seq %d", live, replay.Seq)
	}
}
