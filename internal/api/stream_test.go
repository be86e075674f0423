package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentstudio/internal/progress"
)

var testUpgrader = websocket.Upgrader{}

// eventServer upgrades each connection and hands it to onConn along
// with the 1-based connection ordinal.
func eventServer(onConn func(n int, conn *websocket.Conn)) *httptest.Server {
	var mu sync.Mutex
	conns := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		conns++
		n := conns
		mu.Unlock()

		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		onConn(n, conn)
	}))
}

func drainSnapshots(t *testing.T, sub *Subscription) []progress.TaskSnapshot {
	t.Helper()
	var out []progress.TaskSnapshot
	timeout := time.After(5 * time.Second)
	for {
		select {
		case snap, ok := <-sub.Snapshots():
			if !ok {
				return out
			}
			out = append(out, snap)
		case <-timeout:
			t.Fatal("timed out waiting for the stream to close")
		}
	}
}

func TestSubscribe(t *testing.T) {
	t.Run("Should stream snapshots until the terminal event", func(t *testing.T) {
		var gotPath, gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")

			conn, err := testUpgrader.Upgrade(w, r, nil)
			require.NoError(t, err)
			defer conn.Close()

			conn.WriteJSON(progress.TaskSnapshot{Status: progress.TaskRunning, Progress: 20, StepsCompleted: 0, TotalSteps: 4})
			conn.WriteJSON(progress.TaskSnapshot{Status: progress.TaskRunning, Progress: 70, StepsCompleted: 2, TotalSteps: 4})
			conn.WriteJSON(progress.TaskSnapshot{Status: progress.TaskCompleted, Progress: 100, StepsCompleted: 4, TotalSteps: 4})
		}))
		defer server.Close()

		client := NewClient(server.URL, "token-1")
		sub, err := client.Subscribe(context.Background(), "task-1")
		require.NoError(t, err)
		defer sub.Close()

		snaps := drainSnapshots(t, sub)

		require.Len(t, snaps, 3)
		assert.Equal(t, progress.TaskCompleted, snaps[2].Status)
		assert.Equal(t, "task-1", snaps[0].TaskID)
		assert.Equal(t, "/tasks/task-1/events", gotPath)
		assert.Equal(t, "Bearer token-1", gotAuth)
	})

	t.Run("Should resubscribe after an interrupted stream", func(t *testing.T) {
		server := eventServer(func(n int, conn *websocket.Conn) {
			if n == 1 {
				conn.WriteJSON(progress.TaskSnapshot{Status: progress.TaskRunning, Progress: 30, StepsCompleted: 1, TotalSteps: 4})
				conn.Close() // drop the connection mid-task
				return
			}
			conn.WriteJSON(progress.TaskSnapshot{Status: progress.TaskCompleted, Progress: 100, StepsCompleted: 4, TotalSteps: 4})
		})
		defer server.Close()

		client := NewClient(server.URL, "t")
		sub, err := client.Subscribe(context.Background(), "task-1")
		require.NoError(t, err)
		defer sub.Close()

		snaps := drainSnapshots(t, sub)

		require.Len(t, snaps, 2)
		assert.Equal(t, progress.TaskRunning, snaps[0].Status)
		assert.Equal(t, progress.TaskCompleted, snaps[1].Status)
	})

	t.Run("Should close idempotently while the stream is open", func(t *testing.T) {
		server := eventServer(func(n int, conn *websocket.Conn) {
			conn.WriteJSON(progress.TaskSnapshot{Status: progress.TaskRunning, Progress: 10})
			time.Sleep(2 * time.Second)
		})
		defer server.Close()

		client := NewClient(server.URL, "t")
		sub, err := client.Subscribe(context.Background(), "task-1")
		require.NoError(t, err)

		sub.Close()
		sub.Close()

		timeout := time.After(2 * time.Second)
		for {
			select {
			case _, ok := <-sub.Snapshots():
				if !ok {
					return
				}
			case <-timeout:
				t.Fatal("snapshot channel was not closed")
			}
		}
	})

	t.Run("Should fail fast when the endpoint is not a stream", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"running"}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, "t")
		_, err := client.Subscribe(context.Background(), "task-1")

		assert.Error(t, err)
	})
}

func TestOpenPush(t *testing.T) {
	t.Run("Should select push delivery when the stream is available", func(t *testing.T) {
		server := eventServer(func(n int, conn *websocket.Conn) {
			conn.WriteJSON(progress.TaskSnapshot{Status: progress.TaskRunning, Progress: 50, StepsCompleted: 1, TotalSteps: 4})
			conn.WriteJSON(progress.TaskSnapshot{Status: progress.TaskCompleted, Progress: 100, StepsCompleted: 4, TotalSteps: 4})
		})
		defer server.Close()

		client := NewClient(server.URL, "t")
		sink := newSnapshotSink()

		ch, err := Open(context.Background(), client, "task-1", sink.collect)
		require.NoError(t, err)
		defer ch.Close()

		assert.Equal(t, ModePush, ch.Mode())
		sink.wait(t)

		snaps := sink.all()
		require.Len(t, snaps, 2)
		assert.Equal(t, progress.TaskCompleted, snaps[1].Status)
	})
}
