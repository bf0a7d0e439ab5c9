package messaging

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// ErrDeliveryFailure is returned when a message cannot be handed to its recipient:
// the context is unknown, its mailbox is full, or it has been closed.
var ErrDeliveryFailure = errors.New("message delivery failed")

// DefaultMailboxSize is the number of messages a context can have queued.
const DefaultMailboxSize = 32

// Handler processes messages for one context.
type Handler interface {
	Handle(ctx context.Context, msg Message) Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg Message) Response

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, msg Message) Response {
	return f(ctx, msg)
}

type envelope struct {
	ctx   context.Context
	msg   Message
	reply chan Response
}

// mailbox serialises delivery to one context on a single goroutine.
type mailbox struct {
	id      string
	handler Handler
	queue   chan envelope
	done    chan struct{}
	stopped chan struct{}
}

// Bus routes messages between registered contexts. Delivery is at most once and never retried.
type Bus struct {
	mu     sync.RWMutex
	boxes  map[string]*mailbox
	size   int
	closed bool
	logger hclog.Logger
}

// NewBus creates a bus whose mailboxes hold size queued messages.
func NewBus(logger hclog.Logger, size int) *Bus {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if size <= 0 {
		size = DefaultMailboxSize
	}
	return &Bus{boxes: map[string]*mailbox{}, size: size, logger: logger}
}

// Register starts a mailbox for id.
func (b *Bus) Register(id string, h Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("register %s: bus closed", id)
	}
	if _, exists := b.boxes[id]; exists {
		return fmt.Errorf("register %s: already registered", id)
	}

	box := &mailbox{
		id:      id,
		handler: h,
		queue:   make(chan envelope, b.size),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	b.boxes[id] = box
	go b.drain(box)
	b.logger.Trace("context registered", "id", id)
	return nil
}

// Unregister stops id's mailbox and waits for any in-flight message to finish.
// Queued messages are dropped.
func (b *Bus) Unregister(id string) {
	b.mu.Lock()
	box, ok := b.boxes[id]
	delete(b.boxes, id)
	b.mu.Unlock()
	if !ok {
		return
	}
	close(box.done)
	<-box.stopped
	b.logger.Trace("context unregistered", "id", id)
}

// Registered reports whether id has a mailbox.
func (b *Bus) Registered(id string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.boxes[id]
	return ok
}

// IDs lists registered contexts in sorted order.
func (b *Bus) IDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.boxes))
	for id := range b.boxes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Send delivers msg to id and waits for the response or ctx cancellation.
func (b *Bus) Send(ctx context.Context, to string, msg Message) (Response, error) {
	reply := make(chan Response, 1)
	box, err := b.enqueue(to, envelope{ctx: ctx, msg: msg, reply: reply})
	if err != nil {
		return Response{}, err
	}

	select {
	case resp := <-reply:
		return resp, nil
	case <-box.stopped:
		return Response{}, fmt.Errorf("%w: %s closed before replying", ErrDeliveryFailure, to)
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Post delivers msg to id without waiting. Failures are logged at debug level and returned
// so callers may ignore them.
func (b *Bus) Post(to string, msg Message) error {
	_, err := b.enqueue(to, envelope{ctx: context.Background(), msg: msg})
	if err != nil {
		b.logger.Debug("message dropped", "to", to, "action", msg.Action, "error", err)
	}
	return err
}

func (b *Bus) enqueue(to string, env envelope) (*mailbox, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	box, ok := b.boxes[to]
	if !ok {
		return nil, fmt.Errorf("%w: no context %q", ErrDeliveryFailure, to)
	}
	select {
	case <-box.done:
		return nil, fmt.Errorf("%w: %s closed", ErrDeliveryFailure, to)
	default:
	}
	select {
	case box.queue <- env:
		return box, nil
	default:
		return nil, fmt.Errorf("%w: %s mailbox full", ErrDeliveryFailure, to)
	}
}

func (b *Bus) drain(box *mailbox) {
	defer close(box.stopped)
	for {
		select {
		case <-box.done:
			return
		case env := <-box.queue:
			resp := b.dispatch(box, env)
			if env.reply != nil {
				env.reply <- resp
			}
		}
	}
}

func (b *Bus) dispatch(box *mailbox, env envelope) (resp Response) {
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("handler panicked", "context", box.id, "action", env.msg.Action, "panic", fmt.Sprint(rec))
			resp = Response{Success: false, Error: fmt.Sprint(rec)}
		}
	}()
	if err := env.ctx.Err(); err != nil {
		return Fail(err)
	}
	return box.handler.Handle(env.ctx, env.msg)
}

// Close unregisters every context. Later registrations fail.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	ids := make([]string, 0, len(b.boxes))
	for id := range b.boxes {
		ids = append(ids, id)
	}
	b.mu.Unlock()

	for _, id := range ids {
		b.Unregister(id)
	}
}
