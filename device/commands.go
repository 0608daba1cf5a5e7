package device

import "sync"

// Command is a dispatched event waiting to be resolved by the service.
type Command struct {
	Type    string
	Payload any
}

// inbox holds at most one pending command. A newer command replaces the
// pending one; the reader is woken through signal.
type inbox struct {
	mu      sync.Mutex
	pending *Command
	signal  chan struct{}
}

func newInbox() *inbox {
	return &inbox{signal: make(chan struct{}, 1)}
}

// put stores cmd and reports whether it replaced an unread command. It never blocks.
func (b *inbox) put(cmd Command) bool {
	b.mu.Lock()
	replaced := b.pending != nil
	b.pending = &cmd
	b.mu.Unlock()

	select {
	case b.signal <- struct{}{}:
	default:
	}
	return replaced
}

func (b *inbox) take() (Command, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		return Command{}, false
	}
	cmd := *b.pending
	b.pending = nil
	return cmd, true
}

func (b *inbox) drain() {
	b.mu.Lock()
	b.pending = nil
	b.mu.Unlock()
	select {
	case <-b.signal:
	default:
	}
}
