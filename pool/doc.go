// Package pool provides fixed-capacity pools of interchangeable linear
// unit handles.
//
// The model is a conserved quantity split across named slots - a power bar
// whose units are allocated to subsystems, a budget divided between
// accounts. Every unit is a real linear handle created once at pool
// construction; reallocation moves handles between slots and never copies
// them, so the unit count is conserved by ownership transfer rather than by
// integer arithmetic.
//
//	p, _ := pool.New(reg, "free", make([]Unit, 10), releaseUnit)
//	_ = p.Move("free", "shields", 4)
//	_ = p.Move("free", "engines", 6)
//	_ = p.Move("shields", "engines", 2) // divert power
//
// Take transfers a unit handle out of the pool entirely; Put re-admits it.
// Only handles taken from the pool may come back (conservation), a handle
// already pooled is rejected with duplicate_resource, and a handle consumed
// while outside cannot return.
//
// The pool itself owns linear handles, so it is a linear.Member: Drain
// consumes every pooled unit through the normal path, Abandon aborts them.
package pool
