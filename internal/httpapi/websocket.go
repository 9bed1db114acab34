package httpapi

import (
	"net/http"
	"time"

	"github.com/gavargas22/cascabel/internal/sim"
	"github.com/gorilla/websocket"
)

// wsUpdate is the documented envelope every websocket frame is sent in --
// Type lets a client dispatch on message kind before decoding the rest, with
// the snapshot's own fields promoted alongside it.
type wsUpdate struct {
	Type string `json:"type"`
	sim.Snapshot
}

func newWSUpdate(snap sim.Snapshot) wsUpdate {
	return wsUpdate{Type: "simulation_update", Snapshot: snap}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const wsWriteTimeout = 5 * time.Second

// handleWebSocket streams every published snapshot for one simulation to a
// connected client until either side closes the connection. It never reads
// simulation state itself -- it subscribes to the same broadcaster the
// status/state endpoints cache from.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(r.PathValue("id"))
	if !ok {
		http.Error(w, sim404, http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	subID, ch := e.broadcaster.Subscribe()
	defer e.broadcaster.Unsubscribe(subID)

	go s.drainClientReads(conn)

	if err := conn.WriteJSON(newWSUpdate(e.latest.Load().(sim.Snapshot))); err != nil {
		return
	}
	for snap := range ch {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(newWSUpdate(snap)); err != nil {
			return
		}
	}
}

// drainClientReads discards inbound frames so the connection's read
// deadline never trips and close/ping control frames are still processed.
// This endpoint is publish-only; clients have nothing to send.
func (s *Server) drainClientReads(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

const sim404 = "simulation not found"
