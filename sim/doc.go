// Package sim provides the core deterministic state-evolution engine for
// collapse-sim.
//
// # Reading Guide
//
// Start with these three files to understand the kernel:
//   - dimension.go: BoundedDimension, the irreversible scalar (ceilings only
//     lower, floors only rise) that every law operates on
//   - laws.go: the closed-form irreversibility laws (decay, event impact,
//     future-event probability) applied every tick in a fixed order
//   - engine.go: the orchestrator state machine (Init, Tick, InjectEvent,
//     Observe, ExportArtifacts)
//
// # Architecture
//
// The sim package owns the state model, laws, clock, collapse scheduler,
// dynamics providers, metrics and outcome classification. Supporting
// concerns live in sub-packages:
//   - sim/ledger/: hash-chained, append-only timeline with snapshots and
//     chain-integrity verification
//   - sim/archive/: sqlite-backed archival of exported run artifacts
//
// # Determinism
//
// The engine is single-threaded and fully deterministic: no wall-clock time
// enters engine state, all randomness flows from one seed through a
// PartitionedRNG (rng.go), and event IDs are content-derived. Two engines
// with identical configuration fed identical Tick/InjectEvent sequences
// export byte-identical ledgers; determinism is a tested contract.
package sim
