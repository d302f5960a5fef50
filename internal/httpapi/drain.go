package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
)

// Drainer admits provider-backed requests until shutdown begins, then lets the
// admitted ones finish. Provider calls are detached from client cancellation, so
// shutdown has to wait on these rather than on open connections.
type Drainer struct {
	mu       sync.Mutex
	inFlight int
	draining bool
	idle     chan struct{} // closed once draining with nothing in flight
}

func NewDrainer() *Drainer {
	return &Drainer{idle: make(chan struct{})}
}

// Enter admits a request. ok is false once draining has started; otherwise leave
// must be called when the request is finished. Extra leave calls are ignored.
func (d *Drainer) Enter() (leave func(), ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.draining {
		return nil, false
	}
	d.inFlight++
	var once sync.Once
	return func() { once.Do(d.leave) }, true
}

func (d *Drainer) leave() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inFlight--
	if d.draining && d.inFlight == 0 {
		close(d.idle)
	}
}

// Drain stops admitting requests and waits for the admitted ones, or for ctx.
// It may be called more than once.
func (d *Drainer) Drain(ctx context.Context) error {
	d.mu.Lock()
	if !d.draining {
		d.draining = true
		if d.inFlight == 0 {
			close(d.idle)
		}
	}
	d.mu.Unlock()

	select {
	case <-d.idle:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain: %d requests still running: %w", d.InFlight(), ctx.Err())
	}
}

func (d *Drainer) Draining() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draining
}

func (d *Drainer) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inFlight
}

func (r *Router) admitted(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		leave, ok := r.drainer.Enter()
		if !ok {
			w.Header().Set("Retry-After", "5")
			writeError(w, http.StatusServiceUnavailable, "server is shutting down")
			return
		}
		defer leave()
		next(w, req)
	}
}

func (r *Router) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if r.drainer.Draining() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "draining"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
