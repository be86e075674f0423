package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"contentstudio/internal/progress"
)

const (
	streamHandshakeTimeout = 10 * time.Second
	streamBufferSize       = 16

	resubscribeInitialWait = 500 * time.Millisecond
	resubscribeMaxWait     = 5 * time.Second
	resubscribeMaxElapsed  = 30 * time.Second
)

// Subscription is a live event stream for one task (the push path).
// Snapshots arrive on the channel returned by Snapshots. When the
// connection drops mid-task the subscription redials with capped
// exponential backoff; the channel is closed once a terminal snapshot
// arrives, the context ends, Close is called, or backoff gives up.
type Subscription struct {
	taskID string
	url    string
	header http.Header

	ctx    context.Context
	cancel context.CancelFunc

	snapshots chan progress.TaskSnapshot

	mu   sync.Mutex
	conn *websocket.Conn

	closeOnce sync.Once
}

// Subscribe opens the task-scoped event stream. It fails fast when the
// endpoint cannot be dialed so callers can fall back to polling.
func (c *Client) Subscribe(ctx context.Context, taskID string) (*Subscription, error) {
	endpoint, err := c.EventsEndpoint(taskID)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		taskID:    taskID,
		url:       endpoint,
		header:    header,
		ctx:       subCtx,
		cancel:    cancel,
		snapshots: make(chan progress.TaskSnapshot, streamBufferSize),
	}

	conn, err := sub.dial()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to task events: %w", err)
	}
	sub.setConn(conn)

	// Unblock a pending read when the caller's context ends without an
	// explicit Close.
	go func() {
		<-subCtx.Done()
		if conn := sub.currentConn(); conn != nil {
			conn.Close()
		}
	}()

	go sub.readLoop()

	return sub, nil
}

// Snapshots returns the event channel. It is closed when the stream
// ends for any reason.
func (s *Subscription) Snapshots() <-chan progress.TaskSnapshot {
	return s.snapshots
}

// Close tears down the subscription. It is safe to call multiple times
// and safe to call concurrently with channel reads.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		if conn := s.currentConn(); conn != nil {
			conn.Close()
		}
	})
}

func (s *Subscription) readLoop() {
	defer close(s.snapshots)

	for {
		var snap progress.TaskSnapshot
		if err := s.currentConn().ReadJSON(&snap); err != nil {
			if s.ctx.Err() != nil {
				return
			}
			log.Printf("WARNING: event stream for task %s interrupted: %v", s.taskID, err)
			if err := s.resubscribe(); err != nil {
				if s.ctx.Err() == nil {
					log.Printf("ERROR: event stream for task %s lost: %v", s.taskID, err)
				}
				return
			}
			continue
		}

		if snap.TaskID == "" {
			snap.TaskID = s.taskID
		}

		select {
		case s.snapshots <- snap:
		case <-s.ctx.Done():
			return
		}

		// The backend closes the stream after a terminal event; end the
		// loop proactively so consumers see the channel close.
		if snap.Terminal() {
			return
		}
	}
}

func (s *Subscription) resubscribe() error {
	if conn := s.currentConn(); conn != nil {
		conn.Close()
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = resubscribeInitialWait
	bo.MaxInterval = resubscribeMaxWait
	bo.MaxElapsedTime = resubscribeMaxElapsed

	var conn *websocket.Conn
	operation := func() error {
		var err error
		conn, err = s.dial()
		return err
	}

	if err := backoff.Retry(operation, backoff.WithContext(bo, s.ctx)); err != nil {
		return err
	}

	s.setConn(conn)
	return nil
}

func (s *Subscription) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: streamHandshakeTimeout}

	conn, resp, err := dialer.DialContext(s.ctx, s.url, s.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", s.url, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", s.url, err)
	}
	return conn, nil
}

func (s *Subscription) setConn(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
	// A dial can complete just as the subscription is torn down; close
	// immediately so the read loop cannot block on a live connection.
	if s.ctx.Err() != nil {
		conn.Close()
	}
}

func (s *Subscription) currentConn() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}
