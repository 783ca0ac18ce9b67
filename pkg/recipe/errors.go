package recipe

import "fmt"

// DefinitionErrorKind enumerates the recipe-definition mistakes Build can
// catch before a single input is ever processed.
type DefinitionErrorKind int

const (
	// ErrEmptyCompound marks a Sequential/Unordered/Choice item with no
	// children: it can never consume an input.
	ErrEmptyCompound DefinitionErrorKind = iota
	// ErrNoInputConsumed marks a recipe whose root completes during its
	// initial Phase 2 pass without ever reaching an interactive item.
	ErrNoInputConsumed
)

func (k DefinitionErrorKind) String() string {
	switch k {
	case ErrEmptyCompound:
		return "empty compound item"
	case ErrNoInputConsumed:
		return "recipe completes without consuming any input"
	default:
		return "unknown recipe definition error"
	}
}

// RecipeDefinitionError reports a recipe that was built incorrectly. These
// are caught at Build time, fail fast, and never occur mid-match: a
// recipe, once built, is immutable and was already validated.
type RecipeDefinitionError struct {
	Kind       DefinitionErrorKind
	RecipeName string
}

func (e *RecipeDefinitionError) Error() string {
	if e.RecipeName != "" {
		return fmt.Sprintf("recipe %q: %s", e.RecipeName, e.Kind)
	}
	return fmt.Sprintf("recipe: %s", e.Kind)
}

// StoreCorruptionError is raised (via panic, never returned) when an item
// index addresses a slot that does not exist in the item store. This can
// only happen if the store itself is corrupted by a bug in this package;
// it is not a condition embedders can trigger through the public API.
type StoreCorruptionError struct {
	Index int
	Size  int
}

func (e *StoreCorruptionError) Error() string {
	return fmt.Sprintf("recipe: item store out-of-bounds access at index %d (size %d)", e.Index, e.Size)
}
