package utils

// Guard runs a cleanup on the failure path of a constructor that acquires resources in steps, such as
// a pipeline opening a source, a base and a recorder in turn.
//
//	guard := NewGuard(func() { src.Close(ctx) })
//	defer guard.OnFail()
//	...
//	guard.Success()
type Guard struct {
	OnFail  func()
	success bool
}

// NewGuard returns a Guard that calls cleanup from OnFail unless Success was called first.
func NewGuard(cleanup func()) *Guard {
	g := &Guard{}
	g.OnFail = func() {
		if !g.success {
			cleanup()
		}
	}
	return g
}

// Success marks the guarded constructor as done; OnFail becomes a no-op.
func (g *Guard) Success() {
	g.success = true
}
