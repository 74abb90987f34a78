// Package schedule turns a graph plus a concrete (requested outputs,
// available inputs) request into an ordered, minimal execution plan.
//
// Build walks producer links backward from the requested outputs,
// stopping at declared-available nodes and true sources, rejecting
// cycles and unbound sources, and then orders the collected operators
// topologically. Ties between operators with no mutual dependency are
// broken by creation order, so identical requests always produce
// identical plans. Each step also names the nodes whose datasets die
// with it, which is what lets the executor bound peak memory to the
// live set.
//
// Planning is purely sequential and touches no data.
package schedule
