// Package models defines the conversation phase enumeration shared by every layer.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Phase is one stage of the scripted sales conversation. Phases are strictly ordered;
// the order defines the default advance direction and the step-back direction.
type Phase int

// Conversation phases in order.
const (
	PhaseDiscovery Phase = iota + 1
	PhaseSummary
	PhaseSuggestion
	PhasePersuasion
	PhaseAlternative
	PhaseUrgency
	PhaseClosing
)

// AllPhases lists every phase in conversation order.
var AllPhases = []Phase{
	PhaseDiscovery,
	PhaseSummary,
	PhaseSuggestion,
	PhasePersuasion,
	PhaseAlternative,
	PhaseUrgency,
	PhaseClosing,
}

var phaseNames = map[Phase]string{
	PhaseDiscovery:   "DISCOVERY",
	PhaseSummary:     "SUMMARY",
	PhaseSuggestion:  "SUGGESTION",
	PhasePersuasion:  "PERSUASION",
	PhaseAlternative: "ALTERNATIVE",
	PhaseUrgency:     "URGENCY",
	PhaseClosing:     "CLOSING",
}

// ErrUnknownPhase is returned when a phase name cannot be parsed.
var ErrUnknownPhase = errors.New("unknown conversation phase")

// String returns the upper-case phase name.
func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Key returns the lower-case name used to look up phase knowledge.
func (p Phase) Key() string {
	return strings.ToLower(p.String())
}

// Valid reports whether p is one of the seven conversation phases.
func (p Phase) Valid() bool {
	_, ok := phaseNames[p]
	return ok
}

// Prev returns the phase immediately before p, clamped at the first phase.
func (p Phase) Prev() Phase {
	if p <= PhaseDiscovery || !p.Valid() {
		return PhaseDiscovery
	}
	return p - 1
}

// IsTerminal reports whether p is the final phase.
func (p Phase) IsTerminal() bool {
	return p == PhaseClosing
}

// ParsePhase converts a phase name (any case) into a Phase.
func ParsePhase(name string) (Phase, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for p, n := range phaseNames {
		if n == upper {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPhase, name)
}

// MarshalJSON encodes the phase by name.
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a phase from its name.
func (p *Phase) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParsePhase(name)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
