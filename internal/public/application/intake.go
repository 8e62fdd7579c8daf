package application

import (
	"strings"
	"time"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
)

// Phase is the position of one intake interaction.
type Phase int

const (
	PhaseCollectingFields Phase = iota
	PhaseSubmitted
)

func (p Phase) String() string {
	if p == PhaseSubmitted {
		return "submitted"
	}
	return "collecting_fields"
}

// IntakeState is everything the form holds between events. Draft.Latitude/Longitude
// are nil until a point is picked.
type IntakeState struct {
	Phase Phase
	Draft domain.SurveyInput
}

// Event is an input to Reduce.
type Event interface{ isEvent() }

type LocationPicked struct {
	Latitude  float64
	Longitude float64
}

type LocationCleared struct{}

// FieldsEdited replaces the form answers. Location and photos in Draft are ignored.
type FieldsEdited struct {
	Draft domain.SurveyInput
}

// PhotoAttached stores raw bytes for category. Empty Data removes the photo.
type PhotoAttached struct {
	Category domain.ImageCategory
	Data     []byte
}

type SubmitRequested struct {
	Answer   string
	Expected string
	Now      time.Time
}

// Reset starts a fresh form after a submission.
type Reset struct{}

func (LocationPicked) isEvent()  {}
func (LocationCleared) isEvent() {}
func (FieldsEdited) isEvent()    {}
func (PhotoAttached) isEvent()   {}
func (SubmitRequested) isEvent() {}
func (Reset) isEvent()           {}

// Effect is work Reduce asks the caller to perform.
type Effect interface{ isEffect() }

// PersistSurvey carries the validated survey and the raw photos still to be normalised.
type PersistSurvey struct {
	Survey *domain.Survey
	Photos map[domain.ImageCategory][]byte
}

type ShowError struct {
	Err error
}

type ShowSuccess struct {
	Message string
}

func (PersistSurvey) isEffect() {}
func (ShowError) isEffect()     {}
func (ShowSuccess) isEffect()   {}

const SuccessMessage = "Survey submitted, thank you."

var (
	errNoLocation     = domain.NewValidationError("location", "select location on the map")
	errHumanCheckFail = domain.NewValidationError("human_check", "human check failed")
)

// Reduce applies event to state. It performs no I/O; failed submissions keep the
// draft intact so the form can be corrected and resent.
func Reduce(state IntakeState, event Event) (IntakeState, []Effect) {
	if state.Phase == PhaseSubmitted {
		if _, ok := event.(Reset); ok {
			return IntakeState{Phase: PhaseCollectingFields}, nil
		}
		return state, nil
	}

	switch ev := event.(type) {
	case LocationPicked:
		lat, lng := ev.Latitude, ev.Longitude
		state.Draft.Latitude = &lat
		state.Draft.Longitude = &lng
	case LocationCleared:
		state.Draft.Latitude = nil
		state.Draft.Longitude = nil
	case FieldsEdited:
		next := ev.Draft
		next.Latitude = state.Draft.Latitude
		next.Longitude = state.Draft.Longitude
		next.Photos = state.Draft.Photos
		state.Draft = next
	case PhotoAttached:
		photos := make(map[domain.ImageCategory][]byte, len(state.Draft.Photos)+1)
		for k, v := range state.Draft.Photos {
			photos[k] = v
		}
		if len(ev.Data) == 0 {
			delete(photos, ev.Category)
		} else {
			photos[ev.Category] = ev.Data
		}
		state.Draft.Photos = photos
	case SubmitRequested:
		return submit(state, ev)
	case Reset:
		return IntakeState{Phase: PhaseCollectingFields}, nil
	}
	return state, nil
}

func submit(state IntakeState, ev SubmitRequested) (IntakeState, []Effect) {
	if state.Draft.Latitude == nil || state.Draft.Longitude == nil {
		return state, []Effect{ShowError{Err: errNoLocation}}
	}
	if !HumanCheckPasses(ev.Answer, ev.Expected) {
		return state, []Effect{ShowError{Err: errHumanCheckFail}}
	}
	now := ev.Now
	if now.IsZero() {
		now = time.Now()
	}
	survey, err := domain.BuildSurvey(state.Draft, now)
	if err != nil {
		return state, []Effect{ShowError{Err: err}}
	}

	photos := make(map[domain.ImageCategory][]byte, len(state.Draft.Photos))
	for category, data := range state.Draft.Photos {
		if len(data) > 0 {
			photos[category] = data
		}
	}
	state.Phase = PhaseSubmitted
	return state, []Effect{
		PersistSurvey{Survey: survey, Photos: photos},
		ShowSuccess{Message: SuccessMessage},
	}
}

// HumanCheckPasses compares answers trimmed and case-insensitively. An empty expected
// value never matches.
func HumanCheckPasses(answer, expected string) bool {
	expected = strings.TrimSpace(expected)
	if expected == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(answer), expected)
}
