// Package eval executes schedules. It binds input datasets to boundary
// nodes, invokes each planned operator's kernel, frees datasets once
// their last consumer has run and hands back the requested outputs.
//
// Evaluation never mutates input datasets and never blocks on anything
// but kernel work, so a schedule can be evaluated many times, from many
// goroutines, over different inputs.
package eval
