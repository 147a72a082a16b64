package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oszuidwest/zwfm-screenrecorder/internal/types"
)

func TestServerBroadcast(t *testing.T) {
	srv, err := Start("127.0.0.1:0")
	require.NoError(t, err)

	srv.Publish(types.Progress{Frame: 120, FPS: 60, Time: "00:00:02.00"})

	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr()+"/ws", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "progress", msg.Type)
	require.NotNil(t, msg.Progress)
	assert.Equal(t, int64(120), msg.Progress.Frame)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Close(ctx, 0))

	msg = Message{}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "done", msg.Type)
	require.NotNil(t, msg.ExitCode)
	assert.Equal(t, 0, *msg.ExitCode)

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	assert.NoError(t, srv.Close(ctx, 0), "second close is a no-op")
}

func TestStartInvalidAddr(t *testing.T) {
	_, err := Start("not-an-address")
	assert.Error(t, err)
}

func TestCheckOrigin(t *testing.T) {
	cases := map[string]bool{
		"":                         true,
		"http://localhost:3000":    true,
		"http://127.0.0.1":         true,
		"http://192.168.1.20":      true,
		"http://recorder.lan:9090": true,
		"https://evil.example.com": false,
		"://bad":                   false,
	}
	for origin, want := range cases {
		r := httptest.NewRequest(http.MethodGet, "http://recorder.lan:9090/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		assert.Equal(t, want, checkOrigin(r), origin)
	}
}
