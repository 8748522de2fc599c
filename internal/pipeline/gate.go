package pipeline

import (
	"errors"
	"fmt"

	"github.com/joseph-ayodele/docverify/constants"
)

// Thresholds are the minimum scores a document needs at each gate.
type Thresholds struct {
	MinMatchConfidence float64 `json:"min_match_confidence"`
	MinGenuineness     float64 `json:"min_genuineness"`
	Verification       float64 `json:"verification"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{MinMatchConfidence: 0.4, MinGenuineness: 0.6, Verification: 0.5}
}

// Scores are the upstream inputs of the decision.
type Scores struct {
	MatchConfidence float64
	Genuineness     float64
	Verification    float64
}

func lowConfidence(th Thresholds, v float64) (string, bool) {
	if v < th.MinMatchConfidence {
		return fmt.Sprintf("template match confidence %.3f is below the minimum %.3f", v, th.MinMatchConfidence), true
	}
	return "", false
}

func notGenuine(th Thresholds, v float64) (string, bool) {
	if v < th.MinGenuineness {
		return fmt.Sprintf("genuineness score %.3f is below the minimum %.3f", v, th.MinGenuineness), true
	}
	return "", false
}

func verificationFailed(th Thresholds, v float64) (string, bool) {
	if v < th.Verification {
		return fmt.Sprintf("verification score %.3f is below the threshold %.3f", v, th.Verification), true
	}
	return "", false
}

// Decide is the outcome of the gate as a pure function of the scores. The
// checks run in gate order so the first failing one names the rejection.
func Decide(th Thresholds, s Scores) (constants.Decision, string) {
	if reason, bad := lowConfidence(th, s.MatchConfidence); bad {
		return constants.DecisionRejectedLowConfidence, reason
	}
	if reason, bad := notGenuine(th, s.Genuineness); bad {
		return constants.DecisionRejectedNotGenuine, reason
	}
	if reason, bad := verificationFailed(th, s.Verification); bad {
		return constants.DecisionRejectedVerificationFailed, reason
	}
	return constants.DecisionAccepted, ""
}

// ErrOutOfOrder is returned when a gate transition is attempted from the wrong stage.
var ErrOutOfOrder = errors.New("gate transition out of order")

// Gate walks one document through the decision stages. It is not safe for
// concurrent use; each document gets its own.
type Gate struct {
	th       Thresholds
	stage    constants.Stage
	trail    []constants.Stage
	decision constants.Decision
	reason   string
}

func NewGate(th Thresholds) *Gate {
	return &Gate{th: th, stage: constants.StageStart, trail: []constants.Stage{constants.StageStart}}
}

func (g *Gate) Stage() constants.Stage { return g.stage }

// Trail lists the stages walked so far, starting with START.
func (g *Gate) Trail() []constants.Stage {
	out := make([]constants.Stage, len(g.trail))
	copy(out, g.trail)
	return out
}

// Done reports whether a terminal decision has been reached.
func (g *Gate) Done() bool { return g.decision != constants.DecisionNone }

func (g *Gate) Decision() (constants.Decision, string) { return g.decision, g.reason }

func (g *Gate) expect(from, to constants.Stage) error {
	if g.Done() {
		return fmt.Errorf("%w: %s -> %s after decision %s", ErrOutOfOrder, from, to, g.decision)
	}
	if g.stage != from {
		return fmt.Errorf("%w: %s -> %s attempted at %s", ErrOutOfOrder, from, to, g.stage)
	}
	return nil
}

func (g *Gate) enter(to constants.Stage) {
	g.stage = to
	g.trail = append(g.trail, to)
}

func (g *Gate) finish(d constants.Decision, reason string) {
	g.decision = d
	g.reason = reason
	g.enter(constants.StageDone)
}

// Matched records the template match. Below the minimum confidence the gate
// rejects and Done becomes true.
func (g *Gate) Matched(confidence float64) error {
	if err := g.expect(constants.StageStart, constants.StageTemplateMatched); err != nil {
		return err
	}
	if reason, bad := lowConfidence(g.th, confidence); bad {
		g.finish(constants.DecisionRejectedLowConfidence, reason)
		return nil
	}
	g.enter(constants.StageTemplateMatched)
	return nil
}

func (g *Gate) TextExtracted() error {
	if err := g.expect(constants.StageTemplateMatched, constants.StageTextExtracted); err != nil {
		return err
	}
	g.enter(constants.StageTextExtracted)
	return nil
}

func (g *Gate) FieldsExtracted() error {
	if err := g.expect(constants.StageTextExtracted, constants.StageFieldsExtracted); err != nil {
		return err
	}
	g.enter(constants.StageFieldsExtracted)
	return nil
}

// GenuinenessChecked rejects documents below the minimum genuineness score.
func (g *Gate) GenuinenessChecked(score float64) error {
	if err := g.expect(constants.StageFieldsExtracted, constants.StageGenuinenessChecked); err != nil {
		return err
	}
	if reason, bad := notGenuine(g.th, score); bad {
		g.finish(constants.DecisionRejectedNotGenuine, reason)
		return nil
	}
	g.enter(constants.StageGenuinenessChecked)
	return nil
}

// VerificationChecked is the last gate; passing it accepts the document.
func (g *Gate) VerificationChecked(score float64) error {
	if err := g.expect(constants.StageGenuinenessChecked, constants.StageVerificationChecked); err != nil {
		return err
	}
	if reason, bad := verificationFailed(g.th, score); bad {
		g.finish(constants.DecisionRejectedVerificationFailed, reason)
		return nil
	}
	g.enter(constants.StageVerificationChecked)
	g.finish(constants.DecisionAccepted, "")
	return nil
}
