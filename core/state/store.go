// Package state keeps the per-node-instance run state that must survive
// between a bridge's Init and its later operations. The host may recreate
// the adapter object between calls, so the record lives in a store keyed
// by node-instance id rather than in instance fields.
package state

import (
	"sync"

	"github.com/memgate/membridge/pkg/memgate"
)

// Record is the run state written once by initialization and read by
// every subsequent operation of the same node instance.
type Record struct {
	Client         *memgate.Client
	Credentials    memgate.Credentials
	Scope          string
	Tags           []string
	MaxItems       int
	IncludeDeleted bool
}

// Store is a registry of run-state records keyed by node-instance id.
// A re-initialization silently replaces the previous record.
type Store struct {
	mu      sync.RWMutex
	records map[string]*Record
}

func NewStore() *Store {
	return &Store{
		records: make(map[string]*Record),
	}
}

// Get returns the record for a node instance, or nil when the instance
// was never initialized.
func (s *Store) Get(nodeID string) *Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[nodeID]
}

// Set stores the record for a node instance, replacing any previous one.
func (s *Store) Set(nodeID string, record *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[nodeID] = record
}

// Remove drops a node instance's record. The bridge itself never calls
// this; it is for hosts that tear down workflow storage explicitly.
func (s *Store) Remove(nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, nodeID)
}

// List returns the ids of all initialized node instances.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	return ids
}
