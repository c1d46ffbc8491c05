package mpv

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// request is one line of mpv's JSON IPC protocol.
type request struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

// message is any line mpv writes back: a reply (request_id set) or an event.
type message struct {
	RequestID *int64          `json:"request_id,omitempty"`
	Error     string          `json:"error,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Event     string          `json:"event,omitempty"`
	Name      string          `json:"name,omitempty"`
}

type reply struct {
	data json.RawMessage
	err  error
}

// ipc multiplexes requests and events over one mpv IPC connection.
type ipc struct {
	rw      io.ReadWriteCloser
	timeout time.Duration
	onEvent func(message)

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan reply
	closed  bool
	done    chan struct{}
}

func newIPC(rw io.ReadWriteCloser, timeout time.Duration, onEvent func(message)) *ipc {
	c := &ipc{
		rw:      rw,
		timeout: timeout,
		onEvent: onEvent,
		pending: make(map[int64]chan reply),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *ipc) readLoop() {
	defer close(c.done)
	defer c.failPending(fmt.Errorf("mpv connection closed"))

	scanner := bufio.NewScanner(c.rw)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var msg message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}
		if msg.RequestID != nil && msg.Event == "" {
			c.resolve(*msg.RequestID, msg)
			continue
		}
		if msg.Event != "" && c.onEvent != nil {
			c.onEvent(msg)
		}
	}
}

func (c *ipc) resolve(id int64, msg message) {
	c.mu.Lock()
	ch, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()
	if !ok {
		return
	}

	r := reply{data: msg.Data}
	if msg.Error != "" && msg.Error != "success" {
		r.err = fmt.Errorf("mpv: %s", msg.Error)
	}
	ch <- r
}

func (c *ipc) failPending(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, ch := range c.pending {
		ch <- reply{err: err}
		delete(c.pending, id)
	}
}

// call sends a command and waits for its reply.
func (c *ipc) call(args ...any) (json.RawMessage, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("mpv connection closed")
	}
	c.nextID++
	id := c.nextID
	ch := make(chan reply, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.send(request{Command: args, RequestID: id}); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, err
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case r := <-ch:
		return r.data, r.err
	case <-timer.C:
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("mpv: %v timed out", args[0])
	}
}

// notify sends a command without waiting for the reply.
func (c *ipc) notify(args ...any) error {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.mu.Unlock()
	return c.send(request{Command: args, RequestID: id})
}

func (c *ipc) send(req request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err = c.rw.Write(data)
	return err
}

// close shuts the connection and waits for the reader to stop.
func (c *ipc) close() error {
	err := c.rw.Close()
	<-c.done
	return err
}
