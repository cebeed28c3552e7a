package memutils

// Validatable is implemented by structures that can verify their own invariants. DebugValidate
// runs the check after every mutation in debug_pmm builds.
type Validatable interface {
	Validate() error
}
