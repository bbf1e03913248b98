package main

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var ErrGrantDenied error = errors.New("grant denied: caller does not hold the creator capability")

// CreatorRegistry is the set of identities whose voucher signatures the engine
// accepts. Membership is the sole basis for trust; everything else is default deny.
type CreatorRegistry struct {
	mu      sync.RWMutex
	members map[common.Address]struct{}
}

func NewCreatorRegistry(initial ...common.Address) *CreatorRegistry {
	registry := &CreatorRegistry{members: make(map[common.Address]struct{})}
	for _, member := range initial {
		registry.members[member] = struct{}{}
	}
	return registry
}

func (registry *CreatorRegistry) IsCreator(identity common.Address) bool {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	_, ok := registry.members[identity]
	return ok
}

// Grant extends the creator capability to a new identity. Only an existing
// member may grant.
func (registry *CreatorRegistry) Grant(caller, identity common.Address) error {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if _, ok := registry.members[caller]; !ok {
		return ErrGrantDenied
	}

	registry.members[identity] = struct{}{}
	return nil
}
