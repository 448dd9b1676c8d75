package anim

// Target names one morph shape on the avatar. The viseme targets match the
// 15 viseme_* morphs exported on the model; the blink and mouth-close targets
// are driven separately from the viseme state machine.
type Target string

const (
	TargetSil Target = "viseme_sil"
	TargetPP  Target = "viseme_PP"
	TargetFF  Target = "viseme_FF"
	TargetTH  Target = "viseme_TH"
	TargetDD  Target = "viseme_DD"
	TargetKK  Target = "viseme_kk"
	TargetCH  Target = "viseme_CH"
	TargetSS  Target = "viseme_SS"
	TargetNN  Target = "viseme_nn"
	TargetRR  Target = "viseme_RR"
	TargetAA  Target = "viseme_aa"
	TargetE   Target = "viseme_E"
	TargetI   Target = "viseme_I"
	TargetO   Target = "viseme_O"
	TargetU   Target = "viseme_U"

	TargetBlinkLeft  Target = "eyeBlinkLeft"
	TargetBlinkRight Target = "eyeBlinkRight"
	TargetMouthClose Target = "mouthClose"
)

// VisemeTargets are the discrete mouth shapes, exactly one of which is the
// active target at any instant.
var VisemeTargets = []Target{
	TargetSil, TargetPP, TargetFF, TargetTH, TargetDD,
	TargetKK, TargetCH, TargetSS, TargetNN, TargetRR,
	TargetAA, TargetE, TargetI, TargetO, TargetU,
}

// visemeByID folds the 22-value event vocabulary onto the 15 renderable
// mouth shapes. IDs 15-21 have no dedicated morph and map to the nearest
// shape; this grouping is configuration, not derivation.
var visemeByID = map[int]Target{
	0:  TargetSil,
	1:  TargetPP,
	2:  TargetFF,
	3:  TargetTH,
	4:  TargetDD,
	5:  TargetKK,
	6:  TargetCH,
	7:  TargetSS,
	8:  TargetNN,
	9:  TargetRR,
	10: TargetAA,
	11: TargetE,
	12: TargetI,
	13: TargetO,
	14: TargetU,
	15: TargetAA,
	16: TargetO,
	17: TargetU,
	18: TargetE,
	19: TargetI,
	20: TargetPP,
	21: TargetTH,
}

// VisemeTarget maps a discrete viseme event ID to its blend target.
// Unknown or out-of-range IDs fall back to silence.
func VisemeTarget(id int) Target {
	if t, ok := visemeByID[id]; ok {
		return t
	}
	return TargetSil
}
