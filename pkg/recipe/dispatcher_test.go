package recipe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// build is a small helper that wraps a ContextBuilder and fails the test
// immediately if Build rejects a malformed recipe.
func build(t *testing.T, f func(*ContextBuilder[string, string, string])) *Dispatcher[string, string, string] {
	t.Helper()
	cb := NewBuilder[string, string, string]()
	f(cb)
	d, err := cb.Build()
	require.NoError(t, err)
	return d
}

func TestSingleKeyShortcutIssuesCommand(t *testing.T) {
	d := build(t, func(cb *ContextBuilder[string, string, string]) {
		cb.AddRecipe(func(b *RecipeBuilder[string, string, string]) *Recipe[string, string, string] {
			return b.Named("save").
				AddKeyDownInput("s").
				IssueCommand("save").
				Build()
		})
	})

	used := d.ProcessInput(KeyDown[string, string]("s"))
	assert.True(t, used)
	assert.Equal(t, []string{"save"}, d.CollectCommands())
}

func TestUnrelatedKeyIsIgnored(t *testing.T) {
	d := build(t, func(cb *ContextBuilder[string, string, string]) {
		cb.AddRecipe(func(b *RecipeBuilder[string, string, string]) *Recipe[string, string, string] {
			return b.AddKeyDownInput("s").IssueCommand("save").Build()
		})
	})

	used := d.ProcessInput(KeyDown[string, string]("x"))
	assert.False(t, used)
	assert.Nil(t, d.CollectCommands())
}

func TestSequentialGestureRequiresOrder(t *testing.T) {
	d := build(t, func(cb *ContextBuilder[string, string, string]) {
		cb.AddRecipe(func(b *RecipeBuilder[string, string, string]) *Recipe[string, string, string] {
			return b.Named("goto-top").
				AddSequentialMultipleKeyDownInput([]string{"g", "g"}).
				IssueCommand("goto-top").
				Build()
		})
	})

	// A single "g" should not complete the gesture yet.
	assert.True(t, d.ProcessInput(KeyDown[string, string]("g")))
	assert.Nil(t, d.CollectCommands())

	// The second "g" completes it.
	assert.True(t, d.ProcessInput(KeyDown[string, string]("g")))
	assert.Equal(t, []string{"goto-top"}, d.CollectCommands())
}

func TestSequentialGestureIgnoresUnrelatedSecondKey(t *testing.T) {
	d := build(t, func(cb *ContextBuilder[string, string, string]) {
		cb.AddRecipe(func(b *RecipeBuilder[string, string, string]) *Recipe[string, string, string] {
			return b.AddSequentialMultipleKeyDownInput([]string{"g", "g"}).IssueCommand("goto-top").Build()
		})
	})

	require.True(t, d.ProcessInput(KeyDown[string, string]("g")))
	// A key-down of a different key is ignored: it makes no progress and
	// leaves the half-matched gesture in flight.
	assert.False(t, d.ProcessInput(KeyDown[string, string]("x")))
	assert.Nil(t, d.CollectCommands())

	// The next "g" completes the kept gesture; the one after it starts a
	// fresh match.
	assert.True(t, d.ProcessInput(KeyDown[string, string]("g")))
	assert.True(t, d.ProcessInput(KeyDown[string, string]("g")))
	assert.Equal(t, []string{"goto-top"}, d.CollectCommands())
}

func TestChordRequiresAllKeysRegardlessOfOrder(t *testing.T) {
	d := build(t, func(cb *ContextBuilder[string, string, string]) {
		cb.AddRecipe(func(b *RecipeBuilder[string, string, string]) *Recipe[string, string, string] {
			return b.Named("save-all").
				AddUnorderedMultipleKeyDownInput([]string{"ctrl", "shift", "s"}).
				IssueCommand("save-all").
				Build()
		})
	})

	assert.True(t, d.ProcessInput(KeyDown[string, string]("shift")))
	assert.True(t, d.ProcessInput(KeyDown[string, string]("s")))
	assert.Nil(t, d.CollectCommands())
	assert.True(t, d.ProcessInput(KeyDown[string, string]("ctrl")))
	assert.Equal(t, []string{"save-all"}, d.CollectCommands())
}

func TestChoiceFiresOnFirstMatchingKeyOnly(t *testing.T) {
	d := build(t, func(cb *ContextBuilder[string, string, string]) {
		cb.AddRecipe(func(b *RecipeBuilder[string, string, string]) *Recipe[string, string, string] {
			return b.Named("confirm").
				AddOneOfMultipleKeyUpInput([]string{"y", "enter"}).
				IssueCommand("confirmed").
				Build()
		})
	})

	assert.True(t, d.ProcessInput(KeyUp[string, string]("enter")))
	assert.Equal(t, []string{"confirmed"}, d.CollectCommands())
}

func TestConditionGuardAbortsWhileKeyHeld(t *testing.T) {
	d := build(t, func(cb *ContextBuilder[string, string, string]) {
		cb.AddRecipe(func(b *RecipeBuilder[string, string, string]) *Recipe[string, string, string] {
			return b.Named("plain-click").
				KeepKeyNotPressed("ctrl").
				AddKeyDownInput("n").
				IssueCommand("new-tab").
				Build()
		})
	})

	d.ProcessInput(KeyDown[string, string]("ctrl"))
	used := d.ProcessInput(KeyDown[string, string]("n"))
	assert.False(t, used)
	assert.Nil(t, d.CollectCommands())
}

func TestEffectEmitsStartThenEndOnCompletion(t *testing.T) {
	d := build(t, func(cb *ContextBuilder[string, string, string]) {
		cb.AddRecipe(func(b *RecipeBuilder[string, string, string]) *Recipe[string, string, string] {
			return b.Named("drag").
				KeepCursorCoordinateInput("handle").
				IssueEffect("drag-start", "drag-end").
				AddKeyUpInput("release").
				Build()
		})
	})

	assert.True(t, d.ProcessInput(CursorCoordinate[string, string]("handle")))
	assert.Equal(t, []string{"drag-start"}, d.CollectCommands())

	assert.True(t, d.ProcessInput(KeyUp[string, string]("release")))
	assert.Equal(t, []string{"drag-end"}, d.CollectCommands())
}

func TestHeldCursorMatchAbortsEffectOnMove(t *testing.T) {
	d := build(t, func(cb *ContextBuilder[string, string, string]) {
		cb.AddRecipe(func(b *RecipeBuilder[string, string, string]) *Recipe[string, string, string] {
			return b.KeepCursorCoordinateInput("handle").
				IssueEffect("drag-start", "drag-end").
				AddKeyUpInput("release").
				Build()
		})
	})

	require.True(t, d.ProcessInput(CursorCoordinate[string, string]("handle")))
	d.CollectCommands()

	// Moving off the held target aborts the match and unwinds the effect.
	used := d.ProcessInput(CursorCoordinate[string, string]("elsewhere"))
	assert.True(t, used)
	assert.Equal(t, []string{"drag-end"}, d.CollectCommands())
}

func TestNestedRecipeOnlyArmsAfterParentStarts(t *testing.T) {
	d := build(t, func(cb *ContextBuilder[string, string, string]) {
		cb.AddRecipe(func(b *RecipeBuilder[string, string, string]) *Recipe[string, string, string] {
			return b.Named("macro").
				AddKeyDownInput("ctrl+k").
				EnableStartingNestRecipe(func(pos int, nb *RecipeBuilder[string, string, string]) *Recipe[string, string, string] {
					return nb.Named("macro-step").
						AddKeyDownInput("j").
						IssueCommand("macro-step-down").
						Build()
				}).
				Build()
		})
	})

	// Before the leader key, "j" is just a plain unrelated input.
	assert.False(t, d.ProcessInput(KeyDown[string, string]("j")))

	require.True(t, d.ProcessInput(KeyDown[string, string]("ctrl+k")))
	d.CollectCommands()

	assert.True(t, d.ProcessInput(KeyDown[string, string]("j")))
	assert.Equal(t, []string{"macro-step-down"}, d.CollectCommands())
}

func TestCompletingOneRecipeResetsAllInFlightMatches(t *testing.T) {
	d := build(t, func(cb *ContextBuilder[string, string, string]) {
		cb.AddRecipe(func(b *RecipeBuilder[string, string, string]) *Recipe[string, string, string] {
			return b.Named("gesture").AddSequentialMultipleKeyDownInput([]string{"g", "g"}).IssueCommand("goto-top").Build()
		})
		cb.AddRecipe(func(b *RecipeBuilder[string, string, string]) *Recipe[string, string, string] {
			return b.Named("shortcut").AddKeyDownInput("s").IssueCommand("save").Build()
		})
	})

	// Start the gesture, then complete the unrelated shortcut: the
	// half-matched gesture must be discarded, not left pending.
	require.True(t, d.ProcessInput(KeyDown[string, string]("g")))
	require.True(t, d.ProcessInput(KeyDown[string, string]("s")))
	assert.Equal(t, []string{"save"}, d.CollectCommands())

	// A lone "g" now starts the gesture fresh rather than completing a
	// stale one.
	assert.True(t, d.ProcessInput(KeyDown[string, string]("g")))
	assert.Nil(t, d.CollectCommands())
}

func TestBuildRejectsEmptyCompound(t *testing.T) {
	cb := NewBuilder[string, string, string]()
	cb.AddRecipe(func(b *RecipeBuilder[string, string, string]) *Recipe[string, string, string] {
		var empty []string
		return b.AddUnorderedMultipleKeyDownInput(empty).IssueCommand("noop").Build()
	})

	_, err := cb.Build()
	require.Error(t, err)
	var defErr *RecipeDefinitionError
	require.ErrorAs(t, err, &defErr)
	assert.Equal(t, ErrEmptyCompound, defErr.Kind)
}

func TestBuildRejectsRecipeThatNeverConsumesInput(t *testing.T) {
	cb := NewBuilder[string, string, string]()
	cb.AddRecipe(func(b *RecipeBuilder[string, string, string]) *Recipe[string, string, string] {
		return b.Named("no-op").IssueCommand("fires-immediately").Build()
	})

	_, err := cb.Build()
	require.Error(t, err)
	var defErr *RecipeDefinitionError
	require.ErrorAs(t, err, &defErr)
	assert.Equal(t, ErrNoInputConsumed, defErr.Kind)
}

type fakeMetrics struct {
	attempts   int
	matched    int
	lastRecipe string
}

func (f *fakeMetrics) RecordMatchAttempt(matched bool, _ time.Duration) {
	f.attempts++
	if matched {
		f.matched++
	}
}
func (f *fakeMetrics) RecordActiveContexts(int)  {}
func (f *fakeMetrics) RecordCommandsEmitted(int) {}
func (f *fakeMetrics) RecordRecipeCompleted(recipeName string) {
	f.lastRecipe = recipeName
}

func TestDispatcherReportsEveryProcessedInputToMetrics(t *testing.T) {
	m := &fakeMetrics{}
	cb := NewBuilder[string, string, string]().WithMetrics(m)
	cb.AddRecipe(func(b *RecipeBuilder[string, string, string]) *Recipe[string, string, string] {
		return b.AddKeyDownInput("s").IssueCommand("save").Build()
	})
	d, err := cb.Build()
	require.NoError(t, err)

	d.ProcessInput(KeyDown[string, string]("x"))
	d.ProcessInput(KeyDown[string, string]("s"))

	assert.Equal(t, 2, m.attempts)
	assert.Equal(t, 1, m.matched)
}

func TestProcessInputsReportsAnyProgress(t *testing.T) {
	d := build(t, func(cb *ContextBuilder[string, string, string]) {
		cb.AddRecipe(func(b *RecipeBuilder[string, string, string]) *Recipe[string, string, string] {
			return b.AddKeyDownInput("s").IssueCommand("save").Build()
		})
	})

	any := d.ProcessInputs([]Input[string, string]{
		KeyDown[string, string]("x"),
		KeyDown[string, string]("s"),
	})
	assert.True(t, any)
	assert.Equal(t, []string{"save"}, d.CollectCommands())
}
