// Package registry is the central glue between the kind-agnostic graph
// machinery and the operator implementations.
//
// It stores two mappings keyed by operator kind name: Kind (the definition
// plus the pure schema-inference rule, everything the graph layer needs to
// build and validate operators without data) and Kernel (the concrete
// computation the executor dispatches to at evaluation time).
//
// During application startup the registry is populated by the operator
// modules and then validated, so a kind without a kernel, or a kernel
// without a kind, is caught before any graph is built.
package registry
