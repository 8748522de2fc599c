package constants

// Stage is a state of the verification gate.
type Stage string

const (
	StageStart               Stage = "START"
	StageTemplateMatched     Stage = "TEMPLATE_MATCHED"
	StageTextExtracted       Stage = "TEXT_EXTRACTED"
	StageFieldsExtracted     Stage = "FIELDS_EXTRACTED"
	StageGenuinenessChecked  Stage = "GENUINENESS_CHECKED"
	StageVerificationChecked Stage = "VERIFICATION_CHECKED"
	StageDone                Stage = "DONE" // terminal; the decision says how it ended
)

// Decision is the terminal outcome of the gate. Rejections are results, not errors.
type Decision string

const (
	DecisionNone                       Decision = ""
	DecisionAccepted                   Decision = "ACCEPTED"
	DecisionRejectedLowConfidence      Decision = "REJECTED_LOW_CONFIDENCE"
	DecisionRejectedNotGenuine         Decision = "REJECTED_NOT_GENUINE"
	DecisionRejectedVerificationFailed Decision = "REJECTED_VERIFICATION_FAILED"
)

func (d Decision) Accepted() bool { return d == DecisionAccepted }

func (d Decision) Rejected() bool {
	switch d {
	case DecisionRejectedLowConfidence, DecisionRejectedNotGenuine, DecisionRejectedVerificationFailed:
		return true
	}
	return false
}

// Unknown is the template id reported when nothing matched.
const Unknown = "unknown"
