package game

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/cellarena/components"
)

// Pool recycles entities of one high-churn kind. Released entities stay in
// the world as dormant (Alive=false, Serial=0) and are handed out again by
// acquire with every component rewritten.
type Pool struct {
	kind    components.Kind
	store   *Store
	free    []ecs.Entity
	created int
}

func newPool(kind components.Kind, store *Store, capacity int) *Pool {
	return &Pool{
		kind:  kind,
		store: store,
		free:  make([]ecs.Entity, 0, capacity),
	}
}

// acquire returns a dormant entity, creating one if the pool is empty.
// The caller must overwrite every component.
func (p *Pool) acquire() (ecs.Entity, bool) {
	if n := len(p.free); n > 0 {
		e := p.free[n-1]
		p.free = p.free[:n-1]
		return e, true
	}
	p.created++
	return ecs.Entity{}, false
}

// Release zeroes every component of e and returns it to the pool.
// Releasing an entity that is already dormant panics.
func (p *Pool) Release(e ecs.Entity) {
	s := p.store
	body := s.bodyMap.Get(e)
	if body.Serial == 0 {
		panic(fmt.Sprintf("pool: double release of %s entity %v", p.kind, e))
	}
	if body.Kind != p.kind {
		panic(fmt.Sprintf("pool: %s entity released to %s pool", body.Kind, p.kind))
	}

	*s.posMap.Get(e) = components.Position{}
	*s.velMap.Get(e) = components.Velocity{}
	*body = components.Body{}
	*s.ownMap.Get(e) = components.Owner{}
	*s.timMap.Get(e) = components.Timers{}
	*s.profMap.Get(e) = components.Profile{}

	p.free = append(p.free, e)
}

// Free returns the number of dormant entities.
func (p *Pool) Free() int {
	return len(p.free)
}

// Created returns how many entities the pool had to allocate.
func (p *Pool) Created() int {
	return p.created
}
