package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
)

var errConnClosed = errors.New("mpv ipc connection closed")

type ipcCommand struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

// ipcMessage is either a reply (RequestID set) or an event (Event set).
type ipcMessage struct {
	RequestID int64           `json:"request_id"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`

	Event  string `json:"event"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
	// FileError is set on end-file events with reason "error".
	FileError string `json:"file_error"`
}

// client multiplexes commands and events over one persistent IPC connection.
type client struct {
	conn    net.Conn
	onEvent func(ipcMessage)

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan ipcMessage
	closed  bool
	done    chan struct{}
}

func newClient(conn net.Conn, onEvent func(ipcMessage)) *client {
	c := &client{
		conn:    conn,
		onEvent: onEvent,
		pending: make(map[int64]chan ipcMessage),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// readLoop reads newline-delimited JSON until the connection fails.
func (c *client) readLoop() {
	defer c.shutdown()
	sc := bufio.NewScanner(c.conn)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		var msg ipcMessage
		if err := json.Unmarshal(sc.Bytes(), &msg); err != nil {
			continue
		}
		if msg.Event != "" {
			if c.onEvent != nil {
				c.onEvent(msg)
			}
			continue
		}
		c.mu.Lock()
		ch := c.pending[msg.RequestID]
		delete(c.pending, msg.RequestID)
		c.mu.Unlock()
		if ch != nil {
			ch <- msg
		}
	}
}

func (c *client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	close(c.done)
}

// call sends one command and waits for its reply.
func (c *client) call(ctx context.Context, args ...any) (json.RawMessage, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errConnClosed
	}
	c.nextID++
	id := c.nextID
	ch := make(chan ipcMessage, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	payload, err := json.Marshal(ipcCommand{Command: args, RequestID: id})
	if err != nil {
		c.forget(id)
		return nil, fmt.Errorf("marshal: %w", err)
	}
	c.writeMu.Lock()
	_, err = c.conn.Write(append(payload, '\n'))
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		return nil, fmt.Errorf("write: %w", err)
	}

	select {
	case msg, ok := <-ch:
		if !ok {
			return nil, errConnClosed
		}
		if msg.Error != "" && msg.Error != "success" {
			return nil, fmt.Errorf("mpv %v: %s", args[0], msg.Error)
		}
		return msg.Data, nil
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	}
}

func (c *client) forget(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

func (c *client) close() error {
	err := c.conn.Close()
	<-c.done
	return err
}
