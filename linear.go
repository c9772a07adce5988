package linear

// Member is implemented by values that own linear handles: a single handle,
// a composite of handles, or a unit pool. It is the unit of composite
// decomposition.
type Member interface {
	// Abandon forces the abort path for every handle the value still owns
	// and returns the number of abort finalizers that ran. Abandoning an
	// already-finalized member is a no-op returning 0.
	Abandon() int
}
