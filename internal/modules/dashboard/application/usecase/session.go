package usecase

import (
	"errors"
	"log/slog"
	"sync"

	"dashboardWs/internal/modules/dashboard/domain"
)

// ResyncRequester is called when the session can no longer trust its document and
// needs a fresh data snapshot from the server.
type ResyncRequester func(reason error)

// Session mirrors one dashboard on the receiving side. Messages are applied one at a
// time under a write lock; readers observe either the document before a message or
// after it, never a partially applied patch.
type Session struct {
	mu       sync.RWMutex
	name     string
	layout   *domain.Layout
	doc      domain.Document
	synced   bool
	stale    bool
	onResync ResyncRequester
	logger   *slog.Logger

	listenersMu sync.Mutex
	listeners   []func(domain.RxKind)
}

// NewSession builds an empty session. onResync may be nil.
func NewSession(name string, onResync ResyncRequester) *Session {
	return &Session{
		name:     name,
		onResync: onResync,
		logger:   slog.Default().With(slog.String("session", name)),
	}
}

// OnApplied registers a callback fired after each successfully applied message.
func (s *Session) OnApplied(fn func(domain.RxKind)) {
	if fn == nil {
		return
	}
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenersMu.Unlock()
}

// ApplyRaw decodes a frame and applies it. Malformed frames and unknown layout
// versions leave the session untouched.
func (s *Session) ApplyRaw(data []byte) error {
	msg, err := domain.DecodeRx(data)
	if err != nil {
		var verr *domain.UnknownLayoutVersionError
		if errors.As(err, &verr) {
			s.logger.Warn("session layout rejected", slog.String("version", verr.Version))
		} else {
			s.logger.Warn("session frame rejected", slog.Any("error", err))
		}
		return err
	}
	return s.Apply(msg)
}

// Apply applies one message in arrival order.
func (s *Session) Apply(msg domain.DashboardRx) error {
	s.mu.Lock()
	err, resync := s.applyLocked(msg)
	s.mu.Unlock()

	if err != nil {
		if resync && s.onResync != nil {
			s.onResync(err)
		}
		return err
	}
	s.notify(msg.Kind)
	return nil
}

func (s *Session) applyLocked(msg domain.DashboardRx) (error, bool) {
	switch msg.Kind {
	case domain.RxLayout:
		layout := msg.Layout
		s.layout = &layout
		s.logger.Debug("session layout replaced", slog.Int("nodes", len(layout.Nodes)))
		return nil, false
	case domain.RxDataSnapshot:
		s.doc = msg.Snapshot
		s.synced = true
		s.stale = false
		s.logger.Debug("session snapshot applied")
		return nil, false
	case domain.RxDataPatch:
		if !s.synced {
			s.logger.Warn("session patch before snapshot", slog.Int("ops", len(msg.Patch)))
			return &domain.ProtocolOrderingError{Reason: "data patch received before any data snapshot"}, true
		}
		if s.stale {
			s.logger.Debug("session patch dropped while awaiting resync", slog.Int("ops", len(msg.Patch)))
			return &domain.ProtocolOrderingError{Reason: "awaiting data snapshot after a rejected patch"}, false
		}
		next, err := s.doc.Apply(msg.Patch)
		if err != nil {
			s.stale = true
			s.logger.Warn("session patch rejected", slog.Any("error", err))
			return err, true
		}
		s.doc = next
		return nil, false
	default:
		return domain.ErrMalformedMessage, false
	}
}

func (s *Session) notify(kind domain.RxKind) {
	s.listenersMu.Lock()
	listeners := append([]func(domain.RxKind){}, s.listeners...)
	s.listenersMu.Unlock()
	for _, fn := range listeners {
		fn(kind)
	}
}

// Document returns the current document and whether a snapshot has been received.
func (s *Session) Document() (domain.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc, s.synced
}

// Layout returns the current layout, if any.
func (s *Session) Layout() (domain.Layout, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.layout == nil {
		return domain.Layout{}, false
	}
	return *s.layout, true
}

// AwaitingResync reports whether a rejected patch left the session waiting for a snapshot.
func (s *Session) AwaitingResync() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale
}

// Reset discards everything; called when the channel closes. The next connection
// must start from a snapshot.
func (s *Session) Reset() {
	s.mu.Lock()
	s.layout = nil
	s.doc = domain.Document{}
	s.synced = false
	s.stale = false
	s.mu.Unlock()
	s.logger.Debug("session reset")
}
