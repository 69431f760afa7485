package ecs

// Registry tracks every component store so entity deletion can strip a dead
// entity from all of them in one pass.
type Registry struct {
	stores []Removable
}

func NewRegistry() *Registry {
	return &Registry{
		stores: make([]Removable, 0, 16),
	}
}

// Register adds a component store to the registry.
func (r *Registry) Register(store Removable) {
	r.stores = append(r.stores, store)
}

// RemoveAll clears the given entity from every registered component store.
func (r *Registry) RemoveAll(id EntityID) {
	for _, s := range r.stores {
		s.Remove(id)
	}
}
