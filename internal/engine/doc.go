// Package engine contains the tick execution core of the chaos garden.
//
// ARCHITECTURAL RULE: the Orchestrator is the only writer of durable state.
// Species systems mutate entities in memory and report offspring and
// consumed ids; persistence, locking and crash recovery live in the
// orchestrator alone.
package engine
