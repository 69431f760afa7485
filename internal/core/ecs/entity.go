package ecs

// EntityID encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. Generation increments on destroy to invalidate stale refs.
// The zero value is the null entity and is never allocated.
type EntityID uint64

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == 0 }

// Stage tracks an entity's lifecycle progress. Deletion cascades consult the
// stage before recursing: an entity at StageTerminating is already tearing
// down and must not be deleted a second time.
type Stage uint8

const (
	StageUninitialized Stage = iota
	StageInitializing
	StageInitialized
	StageTerminating
	StageDeleted
)

func (s Stage) String() string {
	switch s {
	case StageUninitialized:
		return "uninitialized"
	case StageInitializing:
		return "initializing"
	case StageInitialized:
		return "initialized"
	case StageTerminating:
		return "terminating"
	case StageDeleted:
		return "deleted"
	}
	return "unknown"
}

// EntityPool manages entity allocation with generational indices and a free
// list. It also records each live entity's lifecycle stage.
type EntityPool struct {
	generations []uint32
	stages      []Stage
	freeList    []uint32
	nextIndex   uint32
}

func NewEntityPool() *EntityPool {
	p := &EntityPool{
		generations: make([]uint32, 0, 1024),
		stages:      make([]Stage, 0, 1024),
		freeList:    make([]uint32, 0, 256),
	}
	// Burn index 0: with generation 1 it can never encode to EntityID 0,
	// which the registries treat as the "no entity" sentinel.
	p.generations = append(p.generations, 1)
	p.stages = append(p.stages, StageDeleted)
	p.nextIndex = 1
	return p
}

func (p *EntityPool) Create() EntityID {
	if len(p.freeList) > 0 {
		idx := p.freeList[len(p.freeList)-1]
		p.freeList = p.freeList[:len(p.freeList)-1]
		p.stages[idx] = StageUninitialized
		return NewEntityID(idx, p.generations[idx])
	}
	idx := p.nextIndex
	p.nextIndex++
	if int(idx) >= len(p.generations) {
		p.generations = append(p.generations, 0)
		p.stages = append(p.stages, StageUninitialized)
	}
	return NewEntityID(idx, p.generations[idx])
}

func (p *EntityPool) Alive(id EntityID) bool {
	idx := id.Index()
	if idx >= p.nextIndex {
		return false
	}
	return p.generations[idx] == id.Generation()
}

// Stage returns the lifecycle stage of id. Destroyed or stale references
// report StageDeleted.
func (p *EntityPool) Stage(id EntityID) Stage {
	if !p.Alive(id) {
		return StageDeleted
	}
	return p.stages[id.Index()]
}

// SetStage advances the lifecycle stage of id. Stages never move backwards;
// a lower stage than the current one is ignored.
func (p *EntityPool) SetStage(id EntityID, s Stage) {
	if !p.Alive(id) {
		return
	}
	if s > p.stages[id.Index()] {
		p.stages[id.Index()] = s
	}
}

func (p *EntityPool) Destroy(id EntityID) {
	idx := id.Index()
	if idx >= p.nextIndex {
		return
	}
	if p.generations[idx] != id.Generation() {
		return // already destroyed (stale reference)
	}
	p.generations[idx]++
	p.stages[idx] = StageDeleted
	p.freeList = append(p.freeList, idx)
}
