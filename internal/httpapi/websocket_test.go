package httpapi

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gavargas22/cascabel/internal/config"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestWebSocketFramesAreWrappedInSimulationUpdateEnvelope(t *testing.T) {
	srv := testServer(t)
	mux := srv.Routes()
	httpSrv := httptest.NewServer(mux)
	defer httpSrv.Close()

	created := createSimulation(t, mux, config.DefaultSimulationConfig())
	id := created["simulation_id"].(string)

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/ws/" + id
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	require.Equal(t, "simulation_update", msg["type"])
	require.Equal(t, id, msg["simulation_id"])
	require.Contains(t, msg, "sim_time_s")
	require.Contains(t, msg, "status")
	require.Contains(t, msg, "stats")
}
