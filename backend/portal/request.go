package portal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	idbus "github.com/b0bbywan/go-odio-portal/backend/internal/dbus"
	"github.com/b0bbywan/go-odio-portal/logger"
)

// Correlator tracks in-flight portal requests by object path and delivers
// exactly one terminal result to each of them.
type Correlator struct {
	transport Transport
	timeout   time.Duration

	mu       sync.Mutex
	pending  map[dbus.ObjectPath]*Request
	watchers map[dbus.ObjectPath]map[uint64]func()
	watchSeq uint64

	done      chan struct{}
	closeOnce sync.Once
}

// Request is a pending correlated call.
type Request struct {
	c      *Correlator
	method string

	mu   sync.Mutex
	path dbus.ObjectPath

	once    sync.Once
	done    chan struct{}
	results map[string]dbus.Variant
	err     error
}

// NewCorrelator starts dispatching the transport's signals.
// A zero timeout waits for responses until the caller's context ends.
func NewCorrelator(t Transport, timeout time.Duration) *Correlator {
	c := &Correlator{
		transport: t,
		timeout:   timeout,
		pending:   make(map[dbus.ObjectPath]*Request),
		watchers:  make(map[dbus.ObjectPath]map[uint64]func()),
		done:      make(chan struct{}),
	}
	go c.run()
	return c
}

// Submit performs a correlated call. options is the call's vardict, it receives
// the handle token and is appended as the last argument after args.
func (c *Correlator) Submit(ctx context.Context, method string, token HandleToken, options map[string]dbus.Variant, args ...interface{}) (*Request, error) {
	select {
	case <-c.done:
		return nil, &TransportError{Method: method, Err: errCorrelatorClosed}
	default:
	}

	token = token.OrNew()
	if err := token.Validate(); err != nil {
		return nil, err
	}
	if options == nil {
		options = make(map[string]dbus.Variant)
	}
	options[OPTION_HANDLE_TOKEN] = dbus.MakeVariant(string(token))

	expected := RequestPath(c.transport.UniqueName(), token)
	req := &Request{c: c, method: method, path: expected, done: make(chan struct{})}

	c.mu.Lock()
	if _, busy := c.pending[expected]; busy {
		c.mu.Unlock()
		return nil, &InvalidTokenError{Token: string(token), Reason: "token already used by a pending request"}
	}
	c.pending[expected] = req
	c.mu.Unlock()

	// Subscribe before calling: the broker may answer before the call returns.
	if err := c.transport.Subscribe(expected, REQUEST_INTERFACE, REQUEST_RESPONSE_MEMBER); err != nil {
		c.forget(expected)
		return nil, &TransportError{Method: method, Err: err}
	}

	path, err := c.transport.Call(ctx, method, append(args, options)...)
	if err != nil {
		c.release(expected)
		return nil, err
	}

	if path != expected {
		logger.Debug("[portal] %s: broker returned %s, expected %s", method, path, expected)
		if err := c.move(req, expected, path); err != nil {
			req.finish(nil, &TransportError{Method: method, Err: err})
			return nil, err
		}
	}

	logger.Debug("[portal] %s submitted as %s", method, path)
	return req, nil
}

// move re-keys req under the path the broker actually allocated.
func (c *Correlator) move(req *Request, from, to dbus.ObjectPath) error {
	if err := c.transport.Subscribe(to, REQUEST_INTERFACE, REQUEST_RESPONSE_MEMBER); err != nil {
		return &TransportError{Method: req.method, Err: err}
	}
	c.mu.Lock()
	if c.pending[from] == req {
		delete(c.pending, from)
	}
	c.pending[to] = req
	c.mu.Unlock()

	req.mu.Lock()
	req.path = to
	req.mu.Unlock()

	if err := c.transport.Unsubscribe(from, REQUEST_INTERFACE, REQUEST_RESPONSE_MEMBER); err != nil {
		logger.Debug("[portal] failed to remove match for %s: %v", from, err)
	}
	return nil
}

// Watch calls fn when the session object at path emits Closed.
// The returned function removes the watch.
func (c *Correlator) Watch(path dbus.ObjectPath, fn func()) (func(), error) {
	c.mu.Lock()
	first := len(c.watchers[path]) == 0
	c.mu.Unlock()
	if first {
		if err := c.transport.Subscribe(path, SESSION_INTERFACE, SESSION_CLOSED_MEMBER); err != nil {
			return nil, &TransportError{Method: SESSION_CLOSED_SIGNAL, Err: err}
		}
	}

	c.mu.Lock()
	c.watchSeq++
	id := c.watchSeq
	if c.watchers[path] == nil {
		c.watchers[path] = make(map[uint64]func())
	}
	c.watchers[path][id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.watchers[path], id)
			last := len(c.watchers[path]) == 0
			if last {
				delete(c.watchers, path)
			}
			c.mu.Unlock()
			if last {
				if err := c.transport.Unsubscribe(path, SESSION_INTERFACE, SESSION_CLOSED_MEMBER); err != nil {
					logger.Debug("[portal] failed to remove match for %s: %v", path, err)
				}
			}
		})
	}, nil
}

// Pending returns the number of requests awaiting a response.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Transport returns the transport requests are issued on.
func (c *Correlator) Transport() Transport {
	return c.transport
}

// Close stops dispatching and abandons every pending request.
func (c *Correlator) Close() {
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		reqs := make([]*Request, 0, len(c.pending))
		for _, req := range c.pending {
			reqs = append(reqs, req)
		}
		c.mu.Unlock()

		for _, req := range reqs {
			req.Cancel()
		}
		logger.Debug("[portal] correlator stopped, %d request(s) abandoned", len(reqs))
	})
}

func (c *Correlator) run() {
	signals := c.transport.Signals()
	for {
		select {
		case <-c.done:
			return
		case sig, ok := <-signals:
			if !ok {
				logger.Warn("[portal] signal channel closed")
				c.Close()
				return
			}
			c.dispatch(sig)
		}
	}
}

func (c *Correlator) dispatch(sig *dbus.Signal) {
	switch sig.Name {
	case REQUEST_RESPONSE_SIGNAL:
		c.mu.Lock()
		req := c.pending[sig.Path]
		c.mu.Unlock()
		if req == nil {
			logger.Debug("[portal] response for unknown request %s", sig.Path)
			return
		}
		req.complete(sig)
	case SESSION_CLOSED_SIGNAL:
		c.mu.Lock()
		fns := make([]func(), 0, len(c.watchers[sig.Path]))
		for _, fn := range c.watchers[sig.Path] {
			fns = append(fns, fn)
		}
		c.mu.Unlock()
		for _, fn := range fns {
			fn()
		}
	default:
		logger.Debug("[portal] unhandled signal: %s from %s", sig.Name, sig.Path)
	}
}

// forget drops path from the pending table without touching the bus.
func (c *Correlator) forget(path dbus.ObjectPath) {
	c.mu.Lock()
	delete(c.pending, path)
	c.mu.Unlock()
}

// release drops path from the pending table and removes its match rule.
func (c *Correlator) release(path dbus.ObjectPath) {
	c.forget(path)
	if err := c.transport.Unsubscribe(path, REQUEST_INTERFACE, REQUEST_RESPONSE_MEMBER); err != nil {
		logger.Debug("[portal] failed to remove match for %s: %v", path, err)
	}
}

// Path returns the request object path.
func (r *Request) Path() dbus.ObjectPath {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// Done is closed once the request has its terminal result.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Result returns the terminal result. It must only be read after Done is closed.
func (r *Request) Result() (map[string]dbus.Variant, error) {
	return r.results, r.err
}

// Wait blocks until the broker answers, ctx ends or the correlator timeout elapses.
// When ctx ends or the timeout elapses the request is cancelled.
func (r *Request) Wait(ctx context.Context) (map[string]dbus.Variant, error) {
	var timeout <-chan time.Time
	if r.c.timeout > 0 {
		timer := time.NewTimer(r.c.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-r.done:
	case <-ctx.Done():
		r.Cancel()
		<-r.done
		var closed *RequestClosedError
		if errors.As(r.err, &closed) {
			return nil, ctx.Err()
		}
	case <-timeout:
		if r.finish(nil, &TimeoutError{Request: r.Path()}) {
			r.closeRemote()
		}
		<-r.done
	}
	return r.Result()
}

// Cancel abandons the request and asks the broker to close it.
// It is a no-op once a result was delivered.
func (r *Request) Cancel() {
	if r.finish(nil, &RequestClosedError{Request: r.Path()}) {
		r.closeRemote()
	}
}

func (r *Request) closeRemote() {
	if err := r.c.transport.CloseObject(r.Path(), REQUEST_INTERFACE); err != nil {
		logger.Debug("[portal] failed to close request %s: %v", r.Path(), err)
	}
}

func (r *Request) complete(sig *dbus.Signal) {
	var delivered bool
	code, results, err := idbus.ParseResponse(sig)
	switch {
	case err != nil:
		delivered = r.finish(nil, &TransportError{Method: r.method, Err: err})
	case ResponseCode(code) == ResponseSuccess:
		delivered = r.finish(results, nil)
	case ResponseCode(code) == ResponseCancelled:
		delivered = r.finish(nil, &CancelledError{Request: sig.Path})
	default:
		delivered = r.finish(nil, &ResponseError{Request: sig.Path, Code: ResponseCode(code)})
	}
	if !delivered {
		logger.Warn("[portal] %s: dropping second response for %s", r.method, sig.Path)
	}
}

// finish records the terminal result once and tears the subscription down.
// It reports whether this call delivered the result.
func (r *Request) finish(results map[string]dbus.Variant, err error) bool {
	delivered := false
	r.once.Do(func() {
		r.results, r.err = results, err
		delivered = true
		close(r.done)
	})
	if !delivered {
		return false
	}
	r.c.release(r.Path())
	if err != nil {
		logger.Debug("[portal] %s %s: %v", r.method, r.Path(), err)
	} else {
		logger.Debug("[portal] %s %s: success (%v)", r.method, r.Path(), idbus.Keys(results))
	}
	return true
}
