package recipe

// sequenceBuilder accumulates the children of one compound item (the root
// Sequential of a RecipeBuilder, or an inner Sequential/Unordered/Choice
// block created by addCompoundSequence).
type sequenceBuilder[T comparable, K comparable, Cmd any] struct {
	kind       compoundKind
	ctxBuilder *ContextBuilder[T, K, Cmd]
	items      []itemIndex
}

func newSequenceBuilder[T comparable, K comparable, Cmd any](cb *ContextBuilder[T, K, Cmd], kind compoundKind) *sequenceBuilder[T, K, Cmd] {
	return &sequenceBuilder[T, K, Cmd]{kind: kind, ctxBuilder: cb}
}

func (s *sequenceBuilder[T, K, Cmd]) addItem(idx itemIndex) itemIndex {
	s.items = append(s.items, idx)
	return idx
}

func (s *sequenceBuilder[T, K, Cmd]) register(it item[T, K, Cmd]) itemIndex {
	return s.addItem(s.ctxBuilder.store.register(it))
}

func (s *sequenceBuilder[T, K, Cmd]) addStartInput(in Input[T, K]) itemIndex {
	return s.register(startInputItem[T, K]{expected: in})
}

func (s *sequenceBuilder[T, K, Cmd]) addStartFilteredInput(predicate func(Input[T, K]) matchResult) itemIndex {
	return s.register(startFilteredInputItem[T, K]{predicate: predicate})
}

func (s *sequenceBuilder[T, K, Cmd]) addStartCondition(key K, held bool) itemIndex {
	return s.register(startConditionItem[K]{condition: Condition[K]{Key: key, Held: held}})
}

func (s *sequenceBuilder[T, K, Cmd]) addStartNestRecipe(nestedPos int) itemIndex {
	return s.register(startNestRecipeItem{nestedPos: nestedPos})
}

func (s *sequenceBuilder[T, K, Cmd]) addDisableNestRecipe(nestedPos int) itemIndex {
	return s.register(disableNestRecipeItem{nestedPos: nestedPos})
}

func (s *sequenceBuilder[T, K, Cmd]) addEliminateItem(target itemIndex) itemIndex {
	return s.register(eliminateItem{target: target})
}

func (s *sequenceBuilder[T, K, Cmd]) addIssueCommand(cmd Cmd) itemIndex {
	return s.register(doCommandItem[Cmd]{command: cmd})
}

func (s *sequenceBuilder[T, K, Cmd]) addIssueCommandWith(generate func(ExecutionInfo[T, K, Cmd]) Cmd) itemIndex {
	return s.register(doCommandOfItem[T, K, Cmd]{generate: generate})
}

func (s *sequenceBuilder[T, K, Cmd]) addIssueEffect(start, end Cmd) itemIndex {
	return s.register(startEffectItem[Cmd]{effectStart: start, effectEnd: end})
}

func (s *sequenceBuilder[T, K, Cmd]) addIssueEffectWith(generate func(ExecutionInfo[T, K, Cmd]) (Cmd, Cmd)) itemIndex {
	return s.register(startEffectOfItem[T, K, Cmd]{generate: generate})
}

// addCompoundSequence builds an inner Sequential/Unordered/Choice block via
// fill, registers it as a single compound item, and appends it as a child of
// s. The index it was registered under is returned so callers (the
// multiple-key helpers) can refer back to it.
func (s *sequenceBuilder[T, K, Cmd]) addCompoundSequence(kind compoundKind, fill func(*sequenceBuilder[T, K, Cmd])) itemIndex {
	inner := newSequenceBuilder(s.ctxBuilder, kind)
	fill(inner)
	idx := s.ctxBuilder.store.register(inner.build())
	return s.addItem(idx)
}

func (s *sequenceBuilder[T, K, Cmd]) build() item[T, K, Cmd] {
	return compoundItem[T, K, Cmd]{kind: s.kind, children: s.items}
}

// wrapCursorFilter turns a user predicate over a cursor target into the
// three-way verdict the core matches interactive items with: a cursor move
// to an accepted target is Used, a cursor move to a rejected target is
// Abort (the match fails, exactly as an exact-target mismatch would), and
// any other input kind is Ignore.
func wrapCursorFilter[T comparable, K comparable](filter FilterFunc[T, K]) func(Input[T, K]) matchResult {
	return func(in Input[T, K]) matchResult {
		if in.Kind != InputCursorCoordinate {
			return resultIgnore
		}
		if filter(in) {
			return resultUsed
		}
		return resultAbort
	}
}

// RecipeBuilder assembles one recipe's item tree. Every method returns the
// same builder so calls can be chained; the tree is only registered into
// the owning ContextBuilder's item store when Build is called.
type RecipeBuilder[T comparable, K comparable, Cmd any] struct {
	seq           *sequenceBuilder[T, K, Cmd]
	name          string
	nestedRecipes []*Recipe[T, K, Cmd]
}

func newRecipeBuilder[T comparable, K comparable, Cmd any](cb *ContextBuilder[T, K, Cmd]) *RecipeBuilder[T, K, Cmd] {
	return &RecipeBuilder[T, K, Cmd]{seq: newSequenceBuilder(cb, compoundSequential)}
}

// Named attaches a human-readable name, used only in *RecipeDefinitionError
// messages from Build and in diagnostics/telemetry labels.
func (b *RecipeBuilder[T, K, Cmd]) Named(name string) *RecipeBuilder[T, K, Cmd] {
	b.name = name
	return b
}

// Build finalizes the recipe: registers its root item tree and every
// nested recipe queued by EnableStartingNestRecipe, top-level recipes start
// enabled and nested recipes start disabled (armed only when a parent's
// StartNestRecipe contract fires).
func (b *RecipeBuilder[T, K, Cmd]) Build() *Recipe[T, K, Cmd] {
	rootIdx := b.seq.ctxBuilder.store.register(b.seq.build())

	nested := make([]int, 0, len(b.nestedRecipes))
	for _, nr := range b.nestedRecipes {
		nested = append(nested, b.seq.ctxBuilder.registerNestedRecipe(nr))
	}

	return &Recipe[T, K, Cmd]{
		name:          b.name,
		root:          rootIdx,
		isEnabled:     true,
		isNested:      false,
		nestedRecipes: nested,
	}
}

// KeepCursorCoordinateInput requires the cursor to be (or move to) target.
// The match is held for the lifetime of this recipe's execution: a cursor
// move away from target aborts the match.
func (b *RecipeBuilder[T, K, Cmd]) KeepCursorCoordinateInput(target T) *RecipeBuilder[T, K, Cmd] {
	b.seq.addStartInput(CursorCoordinate[T, K](target))
	return b
}

// KeepCursorCoordinateFilteredInput is KeepCursorCoordinateInput with a
// predicate instead of an exact target. The hold records the exact target
// that matched, so the held match aborts the first time the cursor moves to
// any other target, whether or not the predicate would accept it.
func (b *RecipeBuilder[T, K, Cmd]) KeepCursorCoordinateFilteredInput(filter FilterFunc[T, K]) *RecipeBuilder[T, K, Cmd] {
	b.seq.addStartFilteredInput(wrapCursorFilter[T, K](filter))
	return b
}

// AddCursorCoordinateFilteredInput is a one-shot version of
// KeepCursorCoordinateFilteredInput: the cursor must currently satisfy
// filter, but the recipe does not keep re-checking it afterward.
func (b *RecipeBuilder[T, K, Cmd]) AddCursorCoordinateFilteredInput(filter FilterFunc[T, K]) *RecipeBuilder[T, K, Cmd] {
	idx := b.seq.addStartFilteredInput(wrapCursorFilter[T, K](filter))
	b.seq.addEliminateItem(idx)
	return b
}

// KeepKeyNotPressed requires key to stay unpressed for the lifetime of this
// recipe's execution; key going down aborts the match.
func (b *RecipeBuilder[T, K, Cmd]) KeepKeyNotPressed(key K) *RecipeBuilder[T, K, Cmd] {
	b.seq.addStartCondition(key, false)
	return b
}

// CheckKeyPressed is a one-shot check that key is currently held; unlike
// KeepKeyNotPressed it does not keep monitoring afterward.
func (b *RecipeBuilder[T, K, Cmd]) CheckKeyPressed(key K) *RecipeBuilder[T, K, Cmd] {
	idx := b.seq.addStartCondition(key, true)
	b.seq.addEliminateItem(idx)
	return b
}

// AddKeyDownInput waits for a key-down of key. Key-downs of other keys are
// ignored; a key-up of key aborts the match.
func (b *RecipeBuilder[T, K, Cmd]) AddKeyDownInput(key K) *RecipeBuilder[T, K, Cmd] {
	idx := b.seq.addStartInput(KeyDown[T, K](key))
	b.seq.addEliminateItem(idx)
	return b
}

// AddKeyUpInput waits for a key-up of key. Key-ups of other keys are
// ignored; a key-down of key aborts the match.
func (b *RecipeBuilder[T, K, Cmd]) AddKeyUpInput(key K) *RecipeBuilder[T, K, Cmd] {
	idx := b.seq.addStartInput(KeyUp[T, K](key))
	b.seq.addEliminateItem(idx)
	return b
}

// EnableStartingNestRecipe defines a sub-recipe and places an item that
// arms it when reached. f receives this nested recipe's local position
// (stable for DisableStartingNestRecipe calls later in the same builder)
// and a fresh RecipeBuilder to describe it with.
func (b *RecipeBuilder[T, K, Cmd]) EnableStartingNestRecipe(f func(nestedPos int, nested *RecipeBuilder[T, K, Cmd]) *Recipe[T, K, Cmd]) *RecipeBuilder[T, K, Cmd] {
	nestedPos := len(b.nestedRecipes)
	nestedBuilder := newRecipeBuilder(b.seq.ctxBuilder)
	nested := f(nestedPos, nestedBuilder)
	nested.isNested = true
	nested.isEnabled = false
	b.nestedRecipes = append(b.nestedRecipes, nested)
	b.seq.addStartNestRecipe(nestedPos)
	return b
}

// DisableStartingNestRecipe places an item that disables a previously
// defined nested recipe, identified by the nestedPos an earlier
// EnableStartingNestRecipe call returned via its callback.
func (b *RecipeBuilder[T, K, Cmd]) DisableStartingNestRecipe(nestedPos int) *RecipeBuilder[T, K, Cmd] {
	b.seq.addDisableNestRecipe(nestedPos)
	return b
}

// IssueCommand places a one-shot command with no unwind obligation.
func (b *RecipeBuilder[T, K, Cmd]) IssueCommand(command Cmd) *RecipeBuilder[T, K, Cmd] {
	b.seq.addIssueCommand(command)
	return b
}

// IssueCommandWith is IssueCommand with a generator that receives an
// ExecutionInfo (which exposes the first held cursor coordinate).
func (b *RecipeBuilder[T, K, Cmd]) IssueCommandWith(generate func(ExecutionInfo[T, K, Cmd]) Cmd) *RecipeBuilder[T, K, Cmd] {
	b.seq.addIssueCommandWith(generate)
	return b
}

// IssueEffect emits effectStart immediately and records an obligation to
// emit effectEnd whenever this match unwinds (completes, aborts, or is
// superseded).
func (b *RecipeBuilder[T, K, Cmd]) IssueEffect(effectStart, effectEnd Cmd) *RecipeBuilder[T, K, Cmd] {
	b.seq.addIssueEffect(effectStart, effectEnd)
	return b
}

// IssueEffectWith is IssueEffect with a generator for both commands.
func (b *RecipeBuilder[T, K, Cmd]) IssueEffectWith(generate func(ExecutionInfo[T, K, Cmd]) (Cmd, Cmd)) *RecipeBuilder[T, K, Cmd] {
	b.seq.addIssueEffectWith(generate)
	return b
}

// multipleKeyHelper builds the common two-block shape shared by every
// multiple-key convenience: a compound block of the given kind holding one
// StartInput per key, immediately followed by a trailing Sequential block
// that eliminates every one of those items. The second block always runs
// once the first resolves, regardless of which single item inside it
// actually matched (e.g. in a Choice, only one branch fires, but every
// candidate's leftover contract is retired).
func multipleKeyHelper[T comparable, K comparable, Cmd any](b *RecipeBuilder[T, K, Cmd], kind compoundKind, keys []K, makeInput func(K) Input[T, K]) *RecipeBuilder[T, K, Cmd] {
	var items []itemIndex
	b.seq.addCompoundSequence(kind, func(inner *sequenceBuilder[T, K, Cmd]) {
		for _, k := range keys {
			items = append(items, inner.addStartInput(makeInput(k)))
		}
	})
	b.seq.addCompoundSequence(compoundSequential, func(inner *sequenceBuilder[T, K, Cmd]) {
		for _, idx := range items {
			inner.addEliminateItem(idx)
		}
	})
	return b
}

// AddSequentialMultipleKeyDownInput requires keys to be pressed down in
// exactly the given order (e.g. a "g g" vim-style gesture).
func (b *RecipeBuilder[T, K, Cmd]) AddSequentialMultipleKeyDownInput(keys []K) *RecipeBuilder[T, K, Cmd] {
	return multipleKeyHelper(b, compoundSequential, keys, func(k K) Input[T, K] { return KeyDown[T, K](k) })
}

// AddUnorderedMultipleKeyDownInput requires every key in keys to be pressed
// down, in any order (e.g. a chord).
func (b *RecipeBuilder[T, K, Cmd]) AddUnorderedMultipleKeyDownInput(keys []K) *RecipeBuilder[T, K, Cmd] {
	return multipleKeyHelper(b, compoundUnordered, keys, func(k K) Input[T, K] { return KeyDown[T, K](k) })
}

// AddUnorderedMultipleKeyUpInput requires every key in keys to be released,
// in any order.
func (b *RecipeBuilder[T, K, Cmd]) AddUnorderedMultipleKeyUpInput(keys []K) *RecipeBuilder[T, K, Cmd] {
	return multipleKeyHelper(b, compoundUnordered, keys, func(k K) Input[T, K] { return KeyUp[T, K](k) })
}

// AddOneOfMultipleKeyUpInput requires exactly one of keys to be released.
func (b *RecipeBuilder[T, K, Cmd]) AddOneOfMultipleKeyUpInput(keys []K) *RecipeBuilder[T, K, Cmd] {
	return multipleKeyHelper(b, compoundChoice, keys, func(k K) Input[T, K] { return KeyUp[T, K](k) })
}

// ContextBuilder assembles a closed set of recipes into a Dispatcher. Every
// recipe and nested recipe shares the one item store created here.
type ContextBuilder[T comparable, K comparable, Cmd any] struct {
	store    *itemStore[T, K, Cmd]
	recipes  []*Recipe[T, K, Cmd]
	metrics  Metrics
	reporter Reporter
}

// NewBuilder starts a new, empty ContextBuilder.
func NewBuilder[T comparable, K comparable, Cmd any]() *ContextBuilder[T, K, Cmd] {
	return &ContextBuilder[T, K, Cmd]{store: newItemStore[T, K, Cmd]()}
}

// WithMetrics attaches a telemetry sink the built Dispatcher will report
// every processed input's outcome to. Optional: a Dispatcher with none
// attached simply skips the call.
func (cb *ContextBuilder[T, K, Cmd]) WithMetrics(m Metrics) *ContextBuilder[T, K, Cmd] {
	cb.metrics = m
	return cb
}

// WithReporter attaches a diagnostics sink notified before a fatal,
// non-recoverable panic (store corruption) propagates out of ProcessInput.
func (cb *ContextBuilder[T, K, Cmd]) WithReporter(r Reporter) *ContextBuilder[T, K, Cmd] {
	cb.reporter = r
	return cb
}

// AddRecipe defines one top-level recipe. f receives a fresh RecipeBuilder
// and must return the built Recipe (typically b.Build() chained off the
// last item-adding call).
func (cb *ContextBuilder[T, K, Cmd]) AddRecipe(f func(*RecipeBuilder[T, K, Cmd]) *Recipe[T, K, Cmd]) *ContextBuilder[T, K, Cmd] {
	b := newRecipeBuilder(cb)
	recipe := f(b)
	cb.recipes = append(cb.recipes, recipe)
	return cb
}

// registerNestedRecipe flattens a nested recipe into the same recipe list
// that holds top-level recipes, returning its global index. A recipe's
// nestedRecipes field maps local nest-recipe positions (what
// StartNestRecipe/DisableNestRecipe items carry) to these global indices.
func (cb *ContextBuilder[T, K, Cmd]) registerNestedRecipe(r *Recipe[T, K, Cmd]) int {
	idx := len(cb.recipes)
	cb.recipes = append(cb.recipes, r)
	return idx
}

// Build validates every recipe's item tree and, if all are well-formed,
// returns a ready-to-use Dispatcher. Validation failures are reported as
// *RecipeDefinitionError and never panic: a malformed recipe is an
// embedder mistake caught at startup, not a runtime fault.
func (cb *ContextBuilder[T, K, Cmd]) Build() (*Dispatcher[T, K, Cmd], error) {
	for _, r := range cb.recipes {
		if err := validateRecipe(cb.store, r); err != nil {
			return nil, err
		}
	}

	states := make([]recipeState[T, K, Cmd], len(cb.recipes))
	for i, r := range cb.recipes {
		states[i] = recipeState[T, K, Cmd]{recipe: r}
	}

	return &Dispatcher[T, K, Cmd]{
		store:    cb.store,
		states:   states,
		env:      newEnvironment[K](),
		pending:  nil,
		metrics:  cb.metrics,
		reporter: cb.reporter,
	}, nil
}
