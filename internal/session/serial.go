package session

import "sync"

// serial runs posted functions one at a time in FIFO order. The goroutine
// that posts into an idle executor drains the queue, so work posted from
// inside a running function is deferred until that function returns.
type serial struct {
	mu      sync.Mutex
	queue   []func()
	running bool
}

func (s *serial) post(fn func()) {
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		next()
	}
}

// call posts fn and waits for its result. It must not be used from inside a
// posted function.
func (s *serial) call(fn func() error) error {
	errc := make(chan error, 1)
	s.post(func() { errc <- fn() })
	return <-errc
}
