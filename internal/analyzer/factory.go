package analyzer

import "fmt"

// Orientation is the recommended device orientation for filming.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// View is the recommended camera angle relative to the user.
type View string

const (
	SideView  View = "side"
	FrontView View = "front"
)

// Info is static metadata about an exercise.
type Info struct {
	Type         ExerciseType `json:"type"`
	DisplayName  string       `json:"display_name"`
	Description  string       `json:"description"`
	KeyBodyParts []string     `json:"key_body_parts"`
	Orientation  Orientation  `json:"orientation"`
	View         View         `json:"view"`
}

var exerciseInfo = map[ExerciseType]Info{
	Squat: {
		Type:         Squat,
		DisplayName:  "Squat",
		Description:  "Lower your hips until your thighs are about parallel to the floor, then stand back up.",
		KeyBodyParts: []string{"hips", "knees", "ankles", "back"},
		Orientation:  Portrait,
		View:         SideView,
	},
	PushUp: {
		Type:         PushUp,
		DisplayName:  "Push-Up",
		Description:  "Lower your chest toward the floor keeping a straight body line, then push back up.",
		KeyBodyParts: []string{"shoulders", "elbows", "wrists", "hips"},
		Orientation:  Landscape,
		View:         SideView,
	},
	ArmCurl: {
		Type:         ArmCurl,
		DisplayName:  "Arm Curl",
		Description:  "Curl the weight toward your shoulder keeping your elbows at your sides.",
		KeyBodyParts: []string{"shoulders", "elbows", "wrists"},
		Orientation:  Portrait,
		View:         SideView,
	},
	SideRaise: {
		Type:         SideRaise,
		DisplayName:  "Side Raise",
		Description:  "Raise your straight arms out to the sides up to shoulder height.",
		KeyBodyParts: []string{"shoulders", "elbows", "hips"},
		Orientation:  Portrait,
		View:         FrontView,
	},
	ShoulderPress: {
		Type:         ShoulderPress,
		DisplayName:  "Shoulder Press",
		Description:  "Press the weights overhead until your arms are straight, then lower to shoulder height.",
		KeyBodyParts: []string{"shoulders", "elbows", "wrists", "back"},
		Orientation:  Portrait,
		View:         FrontView,
	},
}

// Lookup returns the metadata for t.
func Lookup(t ExerciseType) (Info, bool) {
	info, ok := exerciseInfo[t]
	return info, ok
}

// All returns metadata for every exercise in display order.
func All() []Info {
	out := make([]Info, 0, len(ExerciseTypes))
	for _, t := range ExerciseTypes {
		out = append(out, exerciseInfo[t])
	}
	return out
}

func DisplayName(t ExerciseType) string                 { return exerciseInfo[t].DisplayName }
func Description(t ExerciseType) string                 { return exerciseInfo[t].Description }
func KeyBodyParts(t ExerciseType) []string              { return exerciseInfo[t].KeyBodyParts }
func RecommendedOrientation(t ExerciseType) Orientation { return exerciseInfo[t].Orientation }
func RecommendedView(t ExerciseType) View               { return exerciseInfo[t].View }

// Factory creates analyzers sharing one set of thresholds.
type Factory struct {
	thresholds Thresholds
}

// NewFactory creates a Factory.
func NewFactory(th Thresholds) *Factory {
	return &Factory{thresholds: th}
}

// Create returns a fresh analyzer for t. It panics on an unknown type;
// callers validate exercise types at their boundary with ParseExerciseType.
func (f *Factory) Create(t ExerciseType) Analyzer {
	switch t {
	case Squat:
		return NewSquatAnalyzer(f.thresholds)
	case PushUp:
		return NewPushUpAnalyzer(f.thresholds)
	case ArmCurl:
		return NewArmCurlAnalyzer(f.thresholds)
	case SideRaise:
		return NewSideRaiseAnalyzer(f.thresholds)
	case ShoulderPress:
		return NewShoulderPressAnalyzer(f.thresholds)
	default:
		panic(fmt.Sprintf("analyzer: unknown exercise type %q", t))
	}
}

// Create returns an analyzer for t using DefaultThresholds.
func Create(t ExerciseType) Analyzer {
	return NewFactory(DefaultThresholds()).Create(t)
}
