// Package id generates identifiers for events, frames and recordings.
package id

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

// IDGenerator can generate IDs.
type IDGenerator interface {
	Generate() string
}

var (
	generatorMutex sync.Mutex
	generator      IDGenerator
)

// NewIDGenerator returns a generator that produces sequential IDs. Sequential
// IDs keep simulation runs deterministic.
func NewIDGenerator() IDGenerator {
	return &sequentialIDGenerator{}
}

// NewParallelIDGenerator returns a generator backed by globally unique xids.
// The IDs are not deterministic across runs.
func NewParallelIDGenerator() IDGenerator {
	return parallelIDGenerator{}
}

// UseParallelIDGenerator makes Generate return xid based IDs. It panics if an
// ID has already been generated.
func UseParallelIDGenerator() {
	generatorMutex.Lock()
	defer generatorMutex.Unlock()

	if generator != nil {
		panic("cannot change id generator type after using it")
	}

	generator = parallelIDGenerator{}
}

// Generate returns an ID from the process-wide generator.
func Generate() string {
	generatorMutex.Lock()
	if generator == nil {
		generator = &sequentialIDGenerator{}
	}
	g := generator
	generatorMutex.Unlock()

	return g.Generate()
}

type sequentialIDGenerator struct {
	nextID uint64
}

func (g *sequentialIDGenerator) Generate() string {
	idNumber := atomic.AddUint64(&g.nextID, 1)

	return strconv.FormatUint(idNumber, 10)
}

type parallelIDGenerator struct{}

func (g parallelIDGenerator) Generate() string {
	return xid.New().String()
}
