package idgen

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindTree   Kind = "tree"
	KindNode   Kind = "node"
	KindBranch Kind = "branch"
)

// Generator hands out identifiers for trees, nodes and branches.
type Generator interface {
	NewID(kind Kind) string
}

// Default is unique for practical purposes within one process: a millisecond
// timestamp followed by a short random uuid fragment.
var Default Generator = timeUUIDGenerator{}

// New returns an id from the Default generator.
func New(kind Kind) string {
	return Default.NewID(kind)
}

type timeUUIDGenerator struct{}

func (timeUUIDGenerator) NewID(kind Kind) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:9]
	return fmt.Sprintf("%s_%d_%s", kind, time.Now().UnixMilli(), suffix)
}

// Sequence produces predictable ids (node_1, node_2, ...), one counter per kind.
type Sequence struct {
	mu       sync.Mutex
	prefix   string
	counters map[Kind]int
}

func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix, counters: make(map[Kind]int)}
}

func (s *Sequence) NewID(kind Kind) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[kind]++
	if s.prefix == "" {
		return fmt.Sprintf("%s_%d", kind, s.counters[kind])
	}
	return fmt.Sprintf("%s_%s_%d", s.prefix, kind, s.counters[kind])
}
