package recipe

import "sort"

// nestRecipeCommandKind distinguishes the three ways one recipe can
// reshape another's enable state.
type nestRecipeCommandKind int

const (
	nestRecipeEnable nestRecipeCommandKind = iota
	nestRecipeDisable
	nestRecipeAbort
)

// nestRecipeCommand is queued by a recipe's non-interactive items and by
// contract unwind, and drained by the dispatcher to a fixed point.
type nestRecipeCommand struct {
	kind         nestRecipeCommandKind
	parentRecipe int
	nestedPos    int
}

// frameKind mirrors the compound kind of the item a frame was pushed for.
type frameKind int

const (
	frameSequential frameKind = iota
	frameUnordered
	frameChoice
)

// frame is the progress state for one entered compound item.
//
//   - Sequential: seqPos is the index of the last completed child, -1 if
//     none consumed yet.
//   - Unordered: pending marks children not yet consumed.
//   - Choice: choicePos is the index of the chosen child, -1 if none yet.
type frame struct {
	itemIdx   itemIndex
	kind      frameKind
	seqPos    int
	choicePos int
	pending   []bool
}

func prepareFrame[T comparable, K comparable, Cmd any](it item[T, K, Cmd], idx itemIndex) frame {
	c, ok := it.(compoundItem[T, K, Cmd])
	if !ok {
		panic("recipe: prepareFrame called on a non-compound item")
	}
	f := frame{itemIdx: idx, seqPos: -1, choicePos: -1}
	switch c.kind {
	case compoundSequential:
		f.kind = frameSequential
	case compoundUnordered:
		f.kind = frameUnordered
		f.pending = make([]bool, len(c.children))
		for i := range f.pending {
			f.pending[i] = true
		}
	case compoundChoice:
		f.kind = frameChoice
	}
	return f
}

// contractKind tags the obligation a contract records.
type contractKind int

const (
	contractInput contractKind = iota
	contractCondition
	contractEffect
	contractNestRecipe
	contractNestRecipeDisable
)

type contract[T comparable, K comparable, Cmd any] struct {
	kind       contractKind
	input      Input[T, K]
	condition  Condition[K]
	effectEnd  Cmd
	nestedPos  int
}

// contractStore is the ordered map from item index to open obligation. Keys
// are iterated in sorted order whenever order is observable (cleanup, and
// the first-in-index-order cursor-coordinate lookup ExecutionInfo exposes).
type contractStore[T comparable, K comparable, Cmd any] struct {
	byItem map[itemIndex]contract[T, K, Cmd]
}

func newContractStore[T comparable, K comparable, Cmd any]() contractStore[T, K, Cmd] {
	return contractStore[T, K, Cmd]{byItem: make(map[itemIndex]contract[T, K, Cmd])}
}

func (s *contractStore[T, K, Cmd]) addInput(idx itemIndex, in Input[T, K]) {
	s.byItem[idx] = contract[T, K, Cmd]{kind: contractInput, input: in}
}

func (s *contractStore[T, K, Cmd]) addCondition(idx itemIndex, c Condition[K]) {
	s.byItem[idx] = contract[T, K, Cmd]{kind: contractCondition, condition: c}
}

func (s *contractStore[T, K, Cmd]) addEffect(idx itemIndex, end Cmd) {
	s.byItem[idx] = contract[T, K, Cmd]{kind: contractEffect, effectEnd: end}
}

func (s *contractStore[T, K, Cmd]) addNestRecipe(idx itemIndex, nestedPos int) {
	s.byItem[idx] = contract[T, K, Cmd]{kind: contractNestRecipe, nestedPos: nestedPos}
}

func (s *contractStore[T, K, Cmd]) addNestRecipeDisabled(idx itemIndex, nestedPos int) {
	s.byItem[idx] = contract[T, K, Cmd]{kind: contractNestRecipeDisable, nestedPos: nestedPos}
}

// sortedKeys returns the contract item indices in ascending order, the only
// order in which contract iteration is ever observable.
func (s *contractStore[T, K, Cmd]) sortedKeys() []itemIndex {
	keys := make([]itemIndex, 0, len(s.byItem))
	for k := range s.byItem {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// conflicts reports whether in would invalidate any currently open Input or
// Condition contract.
func (s *contractStore[T, K, Cmd]) conflicts(in Input[T, K]) bool {
	for _, idx := range s.sortedKeys() {
		c := s.byItem[idx]
		switch c.kind {
		case contractInput:
			if matchInputAgainstInput(c.input, in) == resultAbort {
				return true
			}
		case contractCondition:
			if matchConditionAgainstInput(c.condition, in) == resultAbort {
				return true
			}
		}
	}
	return false
}

// eliminateOne retires the contract owned by item, if any, applying its
// unwind side effect. Returns true iff a command was pushed to cmds.
// A target with no recorded contract is a defined no-op, not an error.
func (s *contractStore[T, K, Cmd]) eliminateOne(recipeIdx int, item itemIndex, cmds *[]Cmd, nestCmds *[]nestRecipeCommand) bool {
	c, ok := s.byItem[item]
	if !ok {
		return false
	}
	delete(s.byItem, item)
	return s.applyUnwind(recipeIdx, c, cmds, nestCmds)
}

func (s *contractStore[T, K, Cmd]) applyUnwind(recipeIdx int, c contract[T, K, Cmd], cmds *[]Cmd, nestCmds *[]nestRecipeCommand) bool {
	switch c.kind {
	case contractEffect:
		*cmds = append(*cmds, c.effectEnd)
		return true
	case contractNestRecipe:
		*nestCmds = append(*nestCmds, nestRecipeCommand{kind: nestRecipeAbort, parentRecipe: recipeIdx, nestedPos: c.nestedPos})
		return false
	case contractNestRecipeDisable:
		*nestCmds = append(*nestCmds, nestRecipeCommand{kind: nestRecipeEnable, parentRecipe: recipeIdx, nestedPos: c.nestedPos})
		return false
	default:
		return false
	}
}

// eliminateAll retires every open contract, in index order, for a genuine
// abort: effect ends fire, and any open NestRecipe/NestRecipeDisable
// contract is reversed (the nested recipe this match armed or disarmed is
// put back the way it found it). Returns true iff any command was emitted.
func (s *contractStore[T, K, Cmd]) eliminateAll(recipeIdx int, cmds *[]Cmd, nestCmds *[]nestRecipeCommand) bool {
	keys := s.sortedKeys()
	any := false
	for _, idx := range keys {
		c := s.byItem[idx]
		delete(s.byItem, idx)
		if s.applyUnwind(recipeIdx, c, cmds, nestCmds) {
			any = true
		}
	}
	return any
}

// eliminateAllEffectsOnly retires every open contract on global completion:
// effect ends still fire, but NestRecipe/NestRecipeDisable contracts are
// discarded without reversal. Completion resets every recipe's enabled
// state from scratch (see Dispatcher.finishRound) and replays the round's
// nest commands on top of that reset, so reversing a nest contract here
// would fight the very Enable/Disable this match just queued. Returns true
// iff any command was emitted.
func (s *contractStore[T, K, Cmd]) eliminateAllEffectsOnly(cmds *[]Cmd) bool {
	keys := s.sortedKeys()
	any := false
	for _, idx := range keys {
		c := s.byItem[idx]
		delete(s.byItem, idx)
		if c.kind == contractEffect {
			*cmds = append(*cmds, c.effectEnd)
			any = true
		}
	}
	return any
}

// firstCursorCoordinate returns the Target of the first (in index order)
// open Input contract that holds a CursorCoordinate, grounded in the
// original implementation's rule that effect/command generators see the
// lowest-indexed cursor-coordinate hold, never an arbitrary one.
func (s *contractStore[T, K, Cmd]) firstCursorCoordinate() (T, bool) {
	var zero T
	for _, idx := range s.sortedKeys() {
		c := s.byItem[idx]
		if c.kind == contractInput && c.input.Kind == InputCursorCoordinate {
			return c.input.Target, true
		}
	}
	return zero, false
}

// ExecutionInfo is the narrow read-only view handed to StartEffectOf and
// DoCommandOf generators without reaching into the execution context
// itself. Its only query is CursorCoordinate; other matched inputs are not
// exposed.
type ExecutionInfo[T comparable, K comparable, Cmd any] struct {
	contracts *contractStore[T, K, Cmd]
}

// CursorCoordinate returns the first (lowest item index) held cursor
// coordinate, if any recipe item currently holds one.
func (e ExecutionInfo[T, K, Cmd]) CursorCoordinate() (T, bool) {
	return e.contracts.firstCursorCoordinate()
}

// executionContext is the runtime state of one in-progress recipe match.
type executionContext[T comparable, K comparable, Cmd any] struct {
	recipeIdx int
	backtrace []frame
	contracts contractStore[T, K, Cmd]
}

func newExecutionContext[T comparable, K comparable, Cmd any](recipeIdx int, recipe *Recipe[T, K, Cmd], store *itemStore[T, K, Cmd]) *executionContext[T, K, Cmd] {
	ctx := &executionContext[T, K, Cmd]{
		recipeIdx: recipeIdx,
		contracts: newContractStore[T, K, Cmd](),
	}
	ctx.backtrace = append(ctx.backtrace, prepareFrame[T, K, Cmd](store.get(recipe.root), recipe.root))
	return ctx
}

// processInput1 is Phase 1: try to consume input against the top frame's
// next interactive candidate.
func (ctx *executionContext[T, K, Cmd]) processInput1(in Input[T, K], store *itemStore[T, K, Cmd]) matchResult {
	if ctx.contracts.conflicts(in) {
		return resultAbort
	}

	top := &ctx.backtrace[len(ctx.backtrace)-1]
	seq := store.get(top.itemIdx).(compoundItem[T, K, Cmd])

	switch top.kind {
	case frameSequential:
		next := top.seqPos + 1
		childIdx := seq.children[next]
		child := store.get(childIdx)
		switch checkInteractiveItemMatch[T, K, Cmd](child, in) {
		case resultUsed:
			ctx.contracts.addInput(childIdx, in)
			top.seqPos = next
			return resultUsed
		case resultIgnore:
			return resultIgnore
		default:
			return resultAbort
		}
	case frameUnordered:
		for i, stillPending := range top.pending {
			if !stillPending {
				continue
			}
			childIdx := seq.children[i]
			child := store.get(childIdx)
			switch checkInteractiveItemMatch[T, K, Cmd](child, in) {
			case resultUsed:
				ctx.contracts.addInput(childIdx, in)
				top.pending[i] = false
				return resultUsed
			case resultAbort:
				return resultAbort
			}
		}
		return resultIgnore
	case frameChoice:
		for i, childIdx := range seq.children {
			child := store.get(childIdx)
			switch checkInteractiveItemMatch[T, K, Cmd](child, in) {
			case resultUsed:
				ctx.contracts.addInput(childIdx, in)
				top.choicePos = i
				return resultUsed
			case resultAbort:
				return resultAbort
			}
		}
		return resultIgnore
	default:
		panic("recipe: unknown frame kind")
	}
}

// processInput2 is Phase 2: advance through non-interactive items (and
// possibly descend/ascend compound frames) until the next interactive item
// is reached (Used, context awaits input) or the backtrace empties (Done).
func (ctx *executionContext[T, K, Cmd]) processInput2(store *itemStore[T, K, Cmd], cmds *[]Cmd, nestCmds *[]nestRecipeCommand, env *environment[K]) matchResult {
	for len(ctx.backtrace) > 0 {
		var pushFrame *frame
		popFrame := false

		top := &ctx.backtrace[len(ctx.backtrace)-1]
		seq := store.get(top.itemIdx).(compoundItem[T, K, Cmd])

		switch top.kind {
		case frameSequential:
			next := top.seqPos + 1
			advanced := false
			for next < len(seq.children) {
				childIdx := seq.children[next]
				child := store.get(childIdx)
				switch {
				case isInteractive[T, K, Cmd](child):
					return resultUsed
				case isCondition[T, K, Cmd](child):
					cond := child.(startConditionItem[K])
					if !checkConditionAgainstEnvironment(cond.condition, env) {
						return resultAbort
					}
					ctx.contracts.addCondition(childIdx, cond.condition)
					top.seqPos = next
					next++
				case isNonInteractive[T, K, Cmd](child):
					ctx.applyNonInteractive(childIdx, child, cmds, nestCmds)
					top.seqPos = next
					next++
				default:
					f := prepareFrame[T, K, Cmd](child, childIdx)
					top.seqPos = next
					pushFrame = &f
					advanced = true
				}
				if advanced {
					break
				}
			}
			if !advanced && pushFrame == nil {
				popFrame = true
			}
		case frameUnordered:
			anyPending := false
			for _, p := range top.pending {
				if p {
					anyPending = true
					break
				}
			}
			if anyPending {
				return resultUsed
			}
			popFrame = true
		case frameChoice:
			if top.choicePos < 0 {
				return resultUsed
			}
			popFrame = true
		default:
			panic("recipe: unknown frame kind")
		}

		if pushFrame != nil {
			ctx.backtrace = append(ctx.backtrace, *pushFrame)
		} else if popFrame {
			ctx.backtrace = ctx.backtrace[:len(ctx.backtrace)-1]
		}
	}
	return resultDone
}

func (ctx *executionContext[T, K, Cmd]) applyNonInteractive(idx itemIndex, it item[T, K, Cmd], cmds *[]Cmd, nestCmds *[]nestRecipeCommand) {
	switch v := it.(type) {
	case eliminateItem:
		ctx.contracts.eliminateOne(ctx.recipeIdx, v.target, cmds, nestCmds)
	case startEffectItem[Cmd]:
		*cmds = append(*cmds, v.effectStart)
		ctx.contracts.addEffect(idx, v.effectEnd)
	case startEffectOfItem[T, K, Cmd]:
		start, end := v.generate(ExecutionInfo[T, K, Cmd]{contracts: &ctx.contracts})
		*cmds = append(*cmds, start)
		ctx.contracts.addEffect(idx, end)
	case startNestRecipeItem:
		*nestCmds = append(*nestCmds, nestRecipeCommand{kind: nestRecipeEnable, parentRecipe: ctx.recipeIdx, nestedPos: v.nestedPos})
		ctx.contracts.addNestRecipe(idx, v.nestedPos)
	case disableNestRecipeItem:
		*nestCmds = append(*nestCmds, nestRecipeCommand{kind: nestRecipeDisable, parentRecipe: ctx.recipeIdx, nestedPos: v.nestedPos})
		ctx.contracts.addNestRecipeDisabled(idx, v.nestedPos)
	case doCommandItem[Cmd]:
		*cmds = append(*cmds, v.command)
	case doCommandOfItem[T, K, Cmd]:
		*cmds = append(*cmds, v.generate(ExecutionInfo[T, K, Cmd]{contracts: &ctx.contracts}))
	default:
		panic("recipe: applyNonInteractive called on an item that is not non-interactive")
	}
}

// processInput runs Phase 1 then, on Used, Phase 2. This is the steady
// state used for contexts that are already in flight.
func (ctx *executionContext[T, K, Cmd]) processInput(in Input[T, K], store *itemStore[T, K, Cmd], cmds *[]Cmd, nestCmds *[]nestRecipeCommand, env *environment[K]) matchResult {
	switch ctx.processInput1(in, store) {
	case resultIgnore:
		return resultIgnore
	case resultAbort:
		return resultAbort
	}
	return ctx.processInput2(store, cmds, nestCmds, env)
}

// cleanUp retires every open contract on a genuine abort, reversing any
// open NestRecipe/NestRecipeDisable contract. Returns true iff any command
// was emitted.
func (ctx *executionContext[T, K, Cmd]) cleanUp(cmds *[]Cmd, nestCmds *[]nestRecipeCommand) bool {
	return ctx.contracts.eliminateAll(ctx.recipeIdx, cmds, nestCmds)
}

// cleanUpOnCompletion retires every open contract on match completion:
// effect ends fire, but NestRecipe/NestRecipeDisable contracts are left for
// the dispatcher's global enable-state reset to settle instead of being
// reversed here. Returns true iff any command was emitted.
func (ctx *executionContext[T, K, Cmd]) cleanUpOnCompletion(cmds *[]Cmd) bool {
	return ctx.contracts.eliminateAllEffectsOnly(cmds)
}

// startExecutionWithInput attempts to start a new match for recipe against
// the current input. A fresh context must run an initial Phase 2 pass
// before Phase 1: a recipe's root may open with conditions or effects
// before its first interactive child. A Phase 2 pass that reaches Done
// without consuming any input is a recipe-definition error (the recipe
// never requires input) that Build already rejects with
// ErrNoInputConsumed; should it be reached anyway, it is treated here like
// any other completion (Done), with no panic.
//
// Nest-recipe commands queued by the attempt are held in a temporary list
// and merged into the caller's real queue only on Used/Done; a root that
// opens with a StartNestRecipe/DisableNestRecipe item but then Ignores or
// Aborts on this input must not leave that enable/disable behind for a
// match that never actually started (mirrors the original implementation's
// temporary_nest_recipe_command_list).
func startExecutionWithInput[T comparable, K comparable, Cmd any](
	in Input[T, K],
	store *itemStore[T, K, Cmd],
	recipe *Recipe[T, K, Cmd],
	recipeIdx int,
	cmds *[]Cmd,
	nestCmds *[]nestRecipeCommand,
	env *environment[K],
) (matchResult, *executionContext[T, K, Cmd]) {
	ctx := newExecutionContext(recipeIdx, recipe, store)
	var tempNestCmds []nestRecipeCommand

	switch ctx.processInput2(store, cmds, &tempNestCmds, env) {
	case resultDone:
		ctx.cleanUpOnCompletion(cmds)
		*nestCmds = append(*nestCmds, tempNestCmds...)
		return resultDone, nil
	case resultIgnore, resultAbort:
		return resultIgnore, nil
	}

	result := ctx.processInput(in, store, cmds, &tempNestCmds, env)
	switch result {
	case resultDone:
		ctx.cleanUpOnCompletion(cmds)
		*nestCmds = append(*nestCmds, tempNestCmds...)
		return resultDone, nil
	case resultIgnore, resultAbort:
		return resultIgnore, nil
	default:
		*nestCmds = append(*nestCmds, tempNestCmds...)
		return resultUsed, ctx
	}
}
