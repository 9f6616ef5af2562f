// Package engine implements the Memory Engine: the typed write pipeline
// (Remember), hybrid retrieval (Recall), the inline graph overlay, the
// decay-based lifecycle (Reflect/Classify), the rules store, and the
// identity/checkpoint surfaces. Every exported method takes a
// tenant.Context first, matching the engine surface's tenant-scoped
// contract; none of it authenticates the caller.
package engine
