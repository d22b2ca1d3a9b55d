// Package mock provides test doubles for the ai interfaces.
//
// The mock embedder produces deterministic hash-derived vectors so search
// behavior is reproducible without a model server; tests needing semantic
// relationships inject hand-crafted vectors through the function fields.
package mock
