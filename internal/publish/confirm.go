package publish

import "github.com/pterm/pterm"

// Confirmer is the yes/no gate in front of any registry mutation. It is
// injected so the publish stage is testable without a terminal.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// Terminal asks the operator interactively. Declining is the default answer.
type Terminal struct{}

func (Terminal) Confirm(prompt string) (bool, error) {
	return pterm.DefaultInteractiveConfirm.
		WithDefaultValue(false).
		Show(prompt)
}

// Decline always says no. It is the default in non-interactive contexts.
type Decline struct{}

func (Decline) Confirm(string) (bool, error) { return false, nil }

// Accept always says yes. Used by CI builds where the should-publish policy
// already made the decision.
type Accept struct{}

func (Accept) Confirm(string) (bool, error) { return true, nil }
