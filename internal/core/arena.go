package core

import (
	"runtime"
	"sync"
	"weak"

	"github.com/google/uuid"
)

// arena resolves a TensorContent's dependents — stored as uuid.UUID, not
// owning *TensorContent pointers — back to the live content, breaking
// the "A depends on B depends on A" reference cycle a naive
// pointer-based dependents list would create. sync.Map only protects two
// independently-evaluated tensor graphs on separate goroutines from
// corrupting each other's bookkeeping; it is not a claim of
// intra-tensor thread safety.
//
// Entries are weak.Pointer, not *TensorContent: a strong pointer here
// would hold every tensor ever constructed alive for the life of the
// process, so a dropped tensor's last handle would never become
// collectible. register arranges for the entry to remove itself once the
// real content is collected, so the arena never outlives the handles it
// resolves on behalf of.
var arena sync.Map

func register(c *TensorContent) {
	arena.Store(c.id, weak.Make(c))
	runtime.AddCleanup(c, deregister, c.id)
}

func deregister(id uuid.UUID) { arena.Delete(id) }

func lookup(id uuid.UUID) (*TensorContent, bool) {
	v, ok := arena.Load(id)
	if !ok {
		return nil, false
	}
	c := v.(weak.Pointer[TensorContent]).Value()
	if c == nil {
		arena.Delete(id)
		return nil, false
	}
	return c, true
}
