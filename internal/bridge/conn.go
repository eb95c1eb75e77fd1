package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"pkt.systems/pslog"
	"pkt.systems/webshell/internal/logx"
	"pkt.systems/webshell/schema"
)

// EventFunc handles an inbound fire-and-forget message.
type EventFunc func(ctx context.Context, payload json.RawMessage)

// InvokeFunc answers an inbound request. The result is marshalled into the
// reply payload.
type InvokeFunc func(ctx context.Context, payload json.RawMessage) (any, error)

const outboundDepth = 256

// Conn is one end of a bridge. Events are dispatched in stream order on the
// read goroutine; invokes are answered on their own goroutines. Writes are
// queued so a handler may send while the peer is busy writing to us.
type Conn struct {
	reader  *jsonlReader
	writer  io.Writer
	closers []io.Closer
	log     pslog.Logger

	out     chan Message
	nextID  atomic.Uint64
	mu      sync.Mutex
	pending map[uint64]chan Message
	events  map[schema.Channel]EventFunc
	invokes map[schema.Channel]InvokeFunc

	done      chan struct{}
	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
}

// NewConn wraps a reader/writer pair. Readers and writers that implement
// io.Closer are closed by Close.
func NewConn(r io.Reader, w io.Writer, logger pslog.Logger) *Conn {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	c := &Conn{
		reader:  newJSONLReader(r),
		writer:  w,
		log:     logger,
		out:     make(chan Message, outboundDepth),
		pending: make(map[uint64]chan Message),
		events:  make(map[schema.Channel]EventFunc),
		invokes: make(map[schema.Channel]InvokeFunc),
		done:    make(chan struct{}),
	}
	if closer, ok := r.(io.Closer); ok {
		c.closers = append(c.closers, closer)
	}
	if closer, ok := w.(io.Closer); ok {
		c.closers = append(c.closers, closer)
	}
	go c.writeLoop()
	return c
}

// Pipe returns two connected in-process ends.
func Pipe(logger pslog.Logger) (*Conn, *Conn) {
	aReader, bWriter := io.Pipe()
	bReader, aWriter := io.Pipe()
	return NewConn(aReader, aWriter, logger), NewConn(bReader, bWriter, logger)
}

// On registers the handler for an inbound event channel.
func (c *Conn) On(channel schema.Channel, fn EventFunc) {
	c.mu.Lock()
	c.events[channel] = fn
	c.mu.Unlock()
}

// Handle registers the handler for an inbound invoke channel.
func (c *Conn) Handle(channel schema.Channel, fn InvokeFunc) {
	c.mu.Lock()
	c.invokes[channel] = fn
	c.mu.Unlock()
}

// Send emits a fire-and-forget message.
func (c *Conn) Send(ctx context.Context, channel schema.Channel, payload any) error {
	data, err := marshalPayload(payload)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, Message{Kind: KindEvent, Channel: channel, Payload: data})
}

// Invoke sends a request and waits for its reply. A non-nil out receives the
// decoded reply payload.
func (c *Conn) Invoke(ctx context.Context, channel schema.Channel, payload any, out any) error {
	data, err := marshalPayload(payload)
	if err != nil {
		return err
	}
	id := c.nextID.Add(1)
	replyCh := make(chan Message, 1)
	c.mu.Lock()
	c.pending[id] = replyCh
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.enqueue(ctx, Message{Kind: KindInvoke, ID: id, Channel: channel, Payload: data}); err != nil {
		return err
	}
	select {
	case reply := <-replyCh:
		if reply.Error != "" {
			return &RemoteError{Channel: channel, Message: reply.Error}
		}
		if out != nil && len(reply.Payload) > 0 {
			if err := json.Unmarshal(reply.Payload, out); err != nil {
				return err
			}
		}
		return nil
	case <-c.done:
		return schema.ErrBridgeClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Serve reads the stream until EOF, Close or ctx cancellation.
func (c *Conn) Serve(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-c.done:
		}
	}()
	for {
		msg, err := c.reader.Next()
		if err != nil {
			var decodeErr *decodeError
			if errors.As(err, &decodeErr) {
				c.log.Warn("bridge decode failed", "err", err, "line", string(decodeErr.Line()))
				continue
			}
			if c.isClosed() {
				return c.Err()
			}
			_ = c.Close()
			if errors.Is(err, io.EOF) {
				c.log.Debug("bridge peer closed")
				return nil
			}
			c.setErr(err)
			c.log.Warn("bridge read failed", "err", err)
			return err
		}
		c.dispatch(ctx, msg)
	}
}

// Done is closed once the connection shuts down.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that stopped the connection, if any.
func (c *Conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Close stops the connection and closes the underlying streams.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		for _, closer := range c.closers {
			if closeErr := closer.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}
	})
	return err
}

func (c *Conn) dispatch(ctx context.Context, msg Message) {
	log := logx.WithChannel(ctx, msg.Channel)
	switch msg.Kind {
	case KindEvent:
		c.mu.Lock()
		fn := c.events[msg.Channel]
		c.mu.Unlock()
		if fn == nil {
			log.Debug("bridge event ignored", "err", schema.ErrUnknownChannel)
			return
		}
		log.Trace("bridge event")
		fn(logx.ContextWithChannelLogger(ctx, log, msg.Channel), msg.Payload)
	case KindInvoke:
		c.mu.Lock()
		fn := c.invokes[msg.Channel]
		c.mu.Unlock()
		go c.answer(logx.ContextWithChannelLogger(ctx, log, msg.Channel), msg, fn)
	case KindReply:
		c.mu.Lock()
		replyCh := c.pending[msg.ID]
		c.mu.Unlock()
		if replyCh == nil {
			log.Debug("bridge reply unmatched", "id", msg.ID)
			return
		}
		replyCh <- msg
	}
}

func (c *Conn) answer(ctx context.Context, msg Message, fn InvokeFunc) {
	log := pslog.Ctx(ctx)
	reply := Message{Kind: KindReply, ID: msg.ID, Channel: msg.Channel}
	if fn == nil {
		reply.Error = schema.ErrUnknownChannel.Error()
	} else {
		result, err := fn(ctx, msg.Payload)
		if err == nil {
			reply.Payload, err = marshalPayload(result)
		}
		if err != nil {
			reply.Error = err.Error()
			reply.Payload = nil
		}
	}
	if reply.Error != "" {
		log.Debug("bridge invoke failed", "id", msg.ID, "err", reply.Error)
	}
	if err := c.enqueue(ctx, reply); err != nil {
		log.Warn("bridge reply failed", "id", msg.ID, "err", err)
	}
}

func (c *Conn) enqueue(ctx context.Context, msg Message) error {
	if c.isClosed() {
		return schema.ErrBridgeClosed
	}
	select {
	case c.out <- msg:
		return nil
	case <-c.done:
		return schema.ErrBridgeClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Conn) writeLoop() {
	for {
		select {
		case msg := <-c.out:
			data, err := encodeMessage(msg)
			if err != nil {
				c.log.Warn("bridge encode failed", "channel", msg.Channel, "err", err)
				continue
			}
			if _, err := c.writer.Write(data); err != nil {
				if !c.isClosed() {
					c.setErr(err)
					c.log.Warn("bridge write failed", "channel", msg.Channel, "err", err)
					_ = c.Close()
				}
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Conn) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Conn) setErr(err error) {
	c.errMu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.errMu.Unlock()
}
