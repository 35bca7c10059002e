package blazepose

import (
	"errors"
	"fmt"
)

// ErrUnknownPhase is returned for a phase name that is not supported.
var ErrUnknownPhase = errors.New("blazepose: unknown model phase")

// Phase selects which heads are trained.
type Phase string

const (
	// PhaseHeatmap trains the backbone and the heatmap head.
	PhaseHeatmap Phase = "heatmap"
	// PhaseRegression freezes the backbone and heatmap head and trains the regression head.
	PhaseRegression Phase = "regression"
	// PhaseTwoHead trains everything on the sum of both losses.
	PhaseTwoHead Phase = "two_head"
)

// ParsePhase converts a config value into a Phase.
func ParsePhase(s string) (Phase, error) {
	switch p := Phase(s); p {
	case PhaseHeatmap, PhaseRegression, PhaseTwoHead:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPhase, s)
}

func (p Phase) trainsHeatmap() bool {
	return p == PhaseHeatmap || p == PhaseTwoHead
}

func (p Phase) trainsRegression() bool {
	return p == PhaseRegression || p == PhaseTwoHead
}
