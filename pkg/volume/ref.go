package volume

import (
	"weak"

	"github.com/google/uuid"
)

// Ref is a non-owning handle to a volume. It does not keep the volume
// reachable, and it stops resolving once the volume is destroyed or
// collected.
type Ref struct {
	id  uuid.UUID
	ptr weak.Pointer[Volume]
}

// Ref returns a non-owning handle to v.
func (v *Volume) Ref() Ref {
	return Ref{id: v.id, ptr: weak.Make(v)}
}

// ID returns the identity of the referenced volume, even after it is gone.
func (r Ref) ID() uuid.UUID {
	return r.id
}

// Get returns the volume if it is still alive.
func (r Ref) Get() (*Volume, bool) {
	v := r.ptr.Value()
	if v == nil || !v.Alive() {
		return nil, false
	}
	return v, true
}
