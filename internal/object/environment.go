package object

import (
	"sync"
	"sync/atomic"
)

var nextEnvID atomic.Uint64
var liveEnvCount atomic.Int64

// LiveEnvironmentCount reports how many Environments are currently
// constructed-but-not-yet-dropped. A top-level program that tears down
// cleanly brings this back to zero (testable property 5).
func LiveEnvironmentCount() int64 {
	return liveEnvCount.Load()
}

// Environment is a node in the parent-linked scope tree. It replaces
// general cycle collection for closures with an explicit lock/unlock/
// drop protocol: a closure value locks the environment it captures: a
// dropped closure unlocks it, and an environment only actually releases
// its bindings, and cascades that release to any child also at zero,
// once its lock count reaches zero.
type Environment struct {
	id     uint64
	mu     sync.Mutex
	store  map[string]Value
	parent *Environment

	children  []*Environment
	lockCount int
	dropped   bool
}

// NewRootEnvironment creates the top of the scope tree. It starts
// locked once, standing for "the running program holds the root";
// Teardown releases that hold at the end of a top-level evaluation.
func NewRootEnvironment() *Environment {
	env := newEnvironment(nil)
	env.lockCount = 1
	return env
}

// NewEnclosedEnvironment creates a child scope of parent: entering a
// block, a function call, or a macro expansion.
func NewEnclosedEnvironment(parent *Environment) *Environment {
	env := newEnvironment(parent)
	if parent != nil {
		parent.mu.Lock()
		parent.children = append(parent.children, env)
		parent.mu.Unlock()
	}
	return env
}

func newEnvironment(parent *Environment) *Environment {
	liveEnvCount.Add(1)
	return &Environment{
		id:     nextEnvID.Add(1),
		store:  make(map[string]Value),
		parent: parent,
	}
}

// Get walks the parent chain and returns the nearest binding.
func (e *Environment) Get(name string) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		env.mu.Lock()
		v, ok := env.store[name]
		env.mu.Unlock()
		if ok {
			return v, true
		}
	}
	return nil, false
}

// Set binds name in the current scope, shadowing any ancestor binding.
func (e *Environment) Set(name string, v Value) Value {
	e.mu.Lock()
	e.store[name] = v
	e.mu.Unlock()
	return v
}

// Assign updates an existing binding wherever it was defined in the
// parent chain, rather than shadowing it in the current scope the way
// Set does. Returns false if name is bound nowhere in the chain.
func (e *Environment) Assign(name string, v Value) bool {
	for env := e; env != nil; env = env.parent {
		env.mu.Lock()
		if _, ok := env.store[name]; ok {
			env.store[name] = v
			env.mu.Unlock()
			return true
		}
		env.mu.Unlock()
	}
	return false
}

// Lock increments the live-holder count: a closure has just captured
// this environment, or a frame has just started executing in it.
func (e *Environment) Lock() {
	e.mu.Lock()
	e.lockCount++
	e.mu.Unlock()
}

// Unlock decrements the live-holder count and attempts a drop once it
// reaches zero.
func (e *Environment) Unlock() {
	e.mu.Lock()
	if e.lockCount > 0 {
		e.lockCount--
	}
	count := e.lockCount
	e.mu.Unlock()
	if count == 0 {
		e.Drop()
	}
}

// Drop is idempotent. Called with the lock count at zero, it releases
// this environment's own bindings and recursively drops any child
// that is also at zero; called with a positive lock count, it is a
// no-op (something still holds this scope alive). A binding holding a
// Function is itself a lock on that Function's captured environment,
// so dropping the bindings that reference it releases that lock too -
// this is what lets a closure local to a call frame unwind without
// waiting for Teardown.
func (e *Environment) Drop() {
	e.mu.Lock()
	if e.dropped || e.lockCount > 0 {
		e.mu.Unlock()
		return
	}
	e.dropped = true
	store := e.store
	e.store = nil
	children := e.children
	e.children = nil
	e.mu.Unlock()

	liveEnvCount.Add(-1)

	for _, v := range store {
		if fn, ok := v.(*Function); ok {
			fn.Release()
		}
	}
	for _, c := range children {
		c.Drop()
	}
}

// Teardown forces release of this environment and its whole subtree
// regardless of outstanding lock counts, modeling end-of-program
// cleanup: nothing further will ever run against this scope tree.
func (e *Environment) Teardown() {
	e.mu.Lock()
	if e.dropped {
		e.mu.Unlock()
		return
	}
	e.lockCount = 0
	children := e.children
	e.mu.Unlock()
	for _, c := range children {
		c.Teardown()
	}
	e.Drop()
}

// Parent exposes the enclosing scope; used by Function.Clone to
// manufacture a sibling environment off the same captured parent.
func (e *Environment) Parent() *Environment { return e.parent }
