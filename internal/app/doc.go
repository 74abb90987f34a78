// Package app wires the pieces together: it builds the registry from
// the compiled-in operator modules, loads the run file, decodes and
// patches the graph document, plans, evaluates and writes the outputs.
// It is decoupled from any specific entrypoint like a CLI.
package app
