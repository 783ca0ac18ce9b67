// Package recipe implements an input-driven action recognizer: a library of
// declarative recipes (shortcuts, sequences, chords, choices, nested
// sub-recipes) matched frame-by-frame against a stream of cursor, focus, and
// key events, emitting embedder-defined commands on match.
//
// The package is generic over three embedder-supplied types: Target (cursor
// and focus positions), KeyKind (key identities), and Command (what gets
// emitted). Matching is strictly single-threaded and synchronous: ProcessInput
// never blocks, spawns a goroutine, or retains a context.Context.
//
// Construction starts with NewBuilder, which accumulates recipes via
// AddRecipe and is finalized with Build. The resulting Dispatcher is driven
// with ProcessInput/ProcessInputs and drained with CollectCommands.
package recipe
