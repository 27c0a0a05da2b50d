package router

import "sync"

// Router is an in-memory router. It is safe for concurrent use.
type Router struct {
	mu          sync.Mutex
	path        string
	history     []string
	pending     []string
	dispatching bool
	listeners   map[uint64]func(string)
	nextID      uint64
}

// New returns a Router positioned at initial.
func New(initial string) *Router {
	p := Normalize(initial)
	return &Router{
		path:      p,
		history:   []string{p},
		listeners: make(map[uint64]func(string)),
	}
}

// Path returns the current path.
func (r *Router) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// History returns every path the router has been positioned at, oldest first.
func (r *Router) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.history))
	copy(out, r.history)
	return out
}

// Redirect queues a move to path. Moving to the current path is a no-op.
func (r *Router) Redirect(path string) {
	r.enqueue(path)
}

// Navigate is a user-initiated move. It is delivered exactly like Redirect.
func (r *Router) Navigate(path string) {
	r.enqueue(path)
}

// Subscribe registers fn for path changes and returns a cancel function.
func (r *Router) Subscribe(fn func(path string)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.listeners, id)
			r.mu.Unlock()
		})
	}
}

func (r *Router) enqueue(path string) {
	r.mu.Lock()
	r.pending = append(r.pending, Normalize(path))
	if r.dispatching {
		r.mu.Unlock()
		return
	}
	r.dispatching = true

	for len(r.pending) > 0 {
		next := r.pending[0]
		r.pending = r.pending[1:]
		if next == r.path {
			continue
		}
		r.path = next
		r.history = append(r.history, next)

		fns := make([]func(string), 0, len(r.listeners))
		for _, fn := range r.listeners {
			fns = append(fns, fn)
		}
		r.mu.Unlock()
		for _, fn := range fns {
			fn(next)
		}
		r.mu.Lock()
	}

	r.dispatching = false
	r.mu.Unlock()
}
