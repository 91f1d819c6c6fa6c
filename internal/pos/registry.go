package pos

import "sync"

// Registry hands out one Terminal per terminal ID, creating sessions on
// first use. Carts live for the duration of the process; a committed or
// cleared cart simply starts the next session empty.
type Registry struct {
	mu        sync.Mutex
	terminals map[string]*Terminal
	factory   func() *Terminal
}

func NewRegistry(factory func() *Terminal) *Registry {
	return &Registry{
		terminals: make(map[string]*Terminal),
		factory:   factory,
	}
}

// Get returns the terminal for the given ID, creating it if needed.
func (r *Registry) Get(id string) *Terminal {
	r.mu.Lock()
	defer r.mu.Unlock()

	terminal, ok := r.terminals[id]
	if !ok {
		terminal = r.factory()
		r.terminals[id] = terminal
	}
	return terminal
}
