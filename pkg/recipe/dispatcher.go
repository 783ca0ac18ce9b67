package recipe

import "time"

// validateRecipe catches the recipe-definition mistakes Build must reject
// before any input is processed: an empty compound item, and a root whose
// initial Phase 2 pass could complete without ever requiring an input.
func validateRecipe[T comparable, K comparable, Cmd any](store *itemStore[T, K, Cmd], r *Recipe[T, K, Cmd]) error {
	if err := validateCompoundNonEmpty(store, r.root, r.name); err != nil {
		return err
	}
	if !treeHasInteractive(store, r.root) {
		return &RecipeDefinitionError{Kind: ErrNoInputConsumed, RecipeName: r.name}
	}
	return nil
}

func validateCompoundNonEmpty[T comparable, K comparable, Cmd any](store *itemStore[T, K, Cmd], idx itemIndex, name string) error {
	c, ok := store.get(idx).(compoundItem[T, K, Cmd])
	if !ok {
		return nil
	}
	if len(c.children) == 0 {
		return &RecipeDefinitionError{Kind: ErrEmptyCompound, RecipeName: name}
	}
	for _, child := range c.children {
		if err := validateCompoundNonEmpty(store, child, name); err != nil {
			return err
		}
	}
	return nil
}

func treeHasInteractive[T comparable, K comparable, Cmd any](store *itemStore[T, K, Cmd], idx itemIndex) bool {
	it := store.get(idx)
	if isInteractive[T, K, Cmd](it) {
		return true
	}
	if c, ok := it.(compoundItem[T, K, Cmd]); ok {
		for _, child := range c.children {
			if treeHasInteractive(store, child) {
				return true
			}
		}
	}
	return false
}

// recipeState pairs a recipe with its current in-flight match, if any.
type recipeState[T comparable, K comparable, Cmd any] struct {
	recipe *Recipe[T, K, Cmd]
	ctx    *executionContext[T, K, Cmd]
}

// Metrics is the narrow telemetry hook Dispatcher calls after every
// processed input. pkg/telemetry's RecognizerMetrics satisfies it.
type Metrics interface {
	RecordMatchAttempt(matched bool, duration time.Duration)
}

// Reporter is the narrow diagnostics hook Dispatcher calls before a fatal,
// non-recoverable panic (store corruption) propagates. pkg/diagnostics's
// ErrorReporter satisfies it.
type Reporter interface {
	ReportPanic(value any, context string)
}

// Dispatcher matches a live input stream against a closed set of recipes
// built by ContextBuilder and accumulates the commands they emit. It is not
// safe for concurrent use: feed it inputs from a single goroutine.
type Dispatcher[T comparable, K comparable, Cmd any] struct {
	store    *itemStore[T, K, Cmd]
	states   []recipeState[T, K, Cmd]
	env      *environment[K]
	pending  []Cmd
	metrics  Metrics
	reporter Reporter
}

// ProcessInput feeds one input through every in-flight match, then, unless
// some match just completed, tries to start a fresh match for every
// currently-enabled idle recipe. It reports whether the input produced any
// progress: an in-flight or newly started match consumed it, a match
// completed, or a command (including an effect start/end) was emitted.
func (d *Dispatcher[T, K, Cmd]) ProcessInput(in Input[T, K]) (used bool) {
	if d.reporter != nil {
		defer func() {
			if r := recover(); r != nil {
				d.reporter.ReportPanic(r, "recipe.Dispatcher.ProcessInput")
				panic(r)
			}
		}()
	}

	start := time.Now()
	pendingBefore := len(d.pending)
	if in.Kind == InputKeyDown || in.Kind == InputKeyUp {
		d.env.updateWithKind(in.Kind, in.Key)
	}

	var nestCmds []nestRecipeCommand
	someEffect := false
	someFinished := false

	for i := range d.states {
		st := &d.states[i]
		if st.ctx == nil {
			continue
		}
		switch st.ctx.processInput(in, d.store, &d.pending, &nestCmds, d.env) {
		case resultDone:
			// Left for finishRound: completion teardown must run after every
			// in-flight context has been seen, and must not reverse this
			// context's own NestRecipe contracts (see finishRound).
			someFinished = true
		case resultUsed:
			someEffect = true
		case resultAbort:
			st.ctx.cleanUp(&d.pending, &nestCmds)
			st.ctx = nil
		}
	}

	if someFinished {
		d.finishRound(nestCmds)
		d.recordMetrics(true, time.Since(start))
		return true
	}

	for i := range d.states {
		st := &d.states[i]
		if st.ctx != nil || !st.recipe.isEnabled {
			continue
		}
		result, ctx := startExecutionWithInput(in, d.store, st.recipe, i, &d.pending, &nestCmds, d.env)
		switch result {
		case resultDone:
			someFinished = true
		case resultUsed:
			st.ctx = ctx
			someEffect = true
		}
		if someFinished {
			break
		}
	}

	if someFinished {
		d.finishRound(nestCmds)
	} else {
		d.applyNestCommands(nestCmds)
	}

	result := someEffect || someFinished || len(d.pending) > pendingBefore
	d.recordMetrics(result, time.Since(start))
	return result
}

// ProcessInputs feeds each input through ProcessInput in order, reporting
// whether any of them produced visible progress.
func (d *Dispatcher[T, K, Cmd]) ProcessInputs(inputs []Input[T, K]) bool {
	any := false
	for _, in := range inputs {
		if d.ProcessInput(in) {
			any = true
		}
	}
	return any
}

// CollectCommands drains and returns every command accumulated since the
// last call, in emission order. Returns nil if none are pending.
func (d *Dispatcher[T, K, Cmd]) CollectCommands() []Cmd {
	if len(d.pending) == 0 {
		return nil
	}
	out := d.pending
	d.pending = nil
	return out
}

// finishRound runs when some match reached global completion this round.
// The context that completed (its backtrace is empty) retires its open
// contracts effects-only; every in-flight context it beat to the punch is
// cleaned up as an abort, its nest-recipe reversals joining the round's
// queue. Every recipe's enabled state is then reset to its default
// (top-level recipes enabled, nested recipes disabled) before the queued
// nest-recipe commands are applied on top. That ordering is what lets a
// StartNestRecipe fired by the completing match win: its Enable is applied
// after the reset, rather than being immediately reversed by its own
// contract unwind the way an aborted match's would be.
func (d *Dispatcher[T, K, Cmd]) finishRound(nestCmds []nestRecipeCommand) {
	queue := append([]nestRecipeCommand(nil), nestCmds...)
	for i := range d.states {
		st := &d.states[i]
		if st.ctx != nil {
			if len(st.ctx.backtrace) == 0 {
				st.ctx.cleanUpOnCompletion(&d.pending)
			} else {
				st.ctx.cleanUp(&d.pending, &queue)
			}
			st.ctx = nil
		}
		st.recipe.isEnabled = !st.recipe.isNested
	}
	d.applyNestCommands(queue)
}

// ActiveContexts reports how many recipes currently have an in-flight
// match. Embedders that want telemetry.RecognizerMetrics.RecordActiveContexts
// reported call this after ProcessInput and feed the result in themselves;
// Dispatcher never calls it on its own account, since doing so would widen
// Metrics beyond the single RecordMatchAttempt hook it actually needs.
func (d *Dispatcher[T, K, Cmd]) ActiveContexts() int {
	n := 0
	for i := range d.states {
		if d.states[i].ctx != nil {
			n++
		}
	}
	return n
}

// applyNestCommands drains the nest-recipe command queue to a fixed point:
// aborting a nested recipe's in-flight match can itself unwind contracts
// that queue further commands.
func (d *Dispatcher[T, K, Cmd]) applyNestCommands(initial []nestRecipeCommand) {
	queue := append([]nestRecipeCommand(nil), initial...)
	for i := 0; i < len(queue); i++ {
		cmd := queue[i]
		target := d.resolveNestedRecipe(cmd.parentRecipe, cmd.nestedPos)
		if target < 0 {
			continue
		}
		st := &d.states[target]
		switch cmd.kind {
		case nestRecipeEnable:
			st.recipe.isEnabled = true
		case nestRecipeDisable:
			st.recipe.isEnabled = false
		case nestRecipeAbort:
			st.recipe.isEnabled = false
			if st.ctx != nil {
				st.ctx.cleanUp(&d.pending, &queue)
				st.ctx = nil
			}
		}
	}
}

func (d *Dispatcher[T, K, Cmd]) resolveNestedRecipe(parentRecipe, nestedPos int) int {
	parent := d.states[parentRecipe].recipe
	if nestedPos < 0 || nestedPos >= len(parent.nestedRecipes) {
		return -1
	}
	return parent.nestedRecipes[nestedPos]
}

func (d *Dispatcher[T, K, Cmd]) recordMetrics(matched bool, elapsed time.Duration) {
	if d.metrics != nil {
		d.metrics.RecordMatchAttempt(matched, elapsed)
	}
}
