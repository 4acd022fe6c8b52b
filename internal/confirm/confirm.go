// Package confirm prompts the user for a yes/no decision before the
// engine performs an action it cannot cleanly undo, such as starting a
// sync that will divert history onto conflict branches.
package confirm

import (
	"github.com/charmbracelet/huh"
)

// Prompt asks the user to confirm title, returning their answer.
// affirmative/negative customize the button labels; empty strings fall
// back to "Yes"/"No".
func Prompt(title, affirmative, negative string) (bool, error) {
	if affirmative == "" {
		affirmative = "Yes"
	}
	if negative == "" {
		negative = "No"
	}

	var confirmed bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative(affirmative).
		Negative(negative).
		Value(&confirmed).
		Run()
	if err != nil {
		return false, err
	}
	return confirmed, nil
}

// AutoAccept is a Prompt-shaped function that always answers yes without
// rendering anything, used for non-interactive runs (e.g. CI, or
// --yes on the CLI).
func AutoAccept(string, string, string) (bool, error) {
	return true, nil
}

// Func is the shape every caller in the engine depends on, so tests can
// substitute AutoAccept or a scripted stub without touching huh.
type Func func(title, affirmative, negative string) (bool, error)
