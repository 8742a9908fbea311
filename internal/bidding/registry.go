package bidding

import (
	"sync"

	"github.com/ksred/innovest-portal/internal/session"
)

type view interface {
	ID() string
	Close()
	owner() string
}

// Registry tracks open views. A view is only visible to the session that
// opened it and is closed when that session ends.
type Registry struct {
	mu      sync.RWMutex
	views   map[string]view
	cancels map[string]func()
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		views:   make(map[string]view),
		cancels: make(map[string]func()),
	}
}

func (r *Registry) add(sess *session.Session, v view) {
	r.mu.Lock()
	r.views[v.ID()] = v
	r.mu.Unlock()

	cancel := sess.OnTeardown(func() {
		r.remove(v.ID())
		v.Close()
	})

	r.mu.Lock()
	if _, open := r.views[v.ID()]; open {
		r.cancels[v.ID()] = cancel
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	cancel()
}

func (r *Registry) get(sess *session.Session, id string) (view, error) {
	r.mu.RLock()
	v, ok := r.views[id]
	r.mu.RUnlock()
	if !ok || v.owner() != sess.ID {
		return nil, ErrViewNotFound
	}
	return v, nil
}

// remove forgets a view and drops its session teardown hook
func (r *Registry) remove(id string) {
	r.mu.Lock()
	cancel := r.cancels[id]
	delete(r.views, id)
	delete(r.cancels, id)
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// BidView returns an open bid view of the session
func (r *Registry) BidView(sess *session.Session, id string) (*BidView, error) {
	v, err := r.get(sess, id)
	if err != nil {
		return nil, err
	}
	bv, ok := v.(*BidView)
	if !ok {
		return nil, ErrViewNotFound
	}
	return bv, nil
}

// AcceptView returns an open accept view of the session
func (r *Registry) AcceptView(sess *session.Session, id string) (*AcceptView, error) {
	v, err := r.get(sess, id)
	if err != nil {
		return nil, err
	}
	av, ok := v.(*AcceptView)
	if !ok {
		return nil, ErrViewNotFound
	}
	return av, nil
}

// Close closes a view of the session and forgets it
func (r *Registry) Close(sess *session.Session, id string) error {
	v, err := r.get(sess, id)
	if err != nil {
		return err
	}
	r.remove(id)
	v.Close()
	return nil
}

// Len returns the number of open views
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.views)
}
