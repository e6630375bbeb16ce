package session

import "github.com/isajjim/estimator/internal/models"

// State is everything the live session knows about its estimate.
type State struct {
	// Generation changes on every Reset; results tagged with an older
	// generation are dropped.
	Generation uint64
	EstimateID int64
	Images     []models.UploadedImage
	Answers    *models.DetailAnswers
	Result     *models.AnalysisResult
	Phase      models.AnalysisPhase
	Update     models.UpdateStatus
	// LastStatus is the most recent informational analysis event.
	LastStatus string
	LastError  error
}

func newState(generation uint64) State {
	return State{
		Generation: generation,
		Phase:      models.PhaseCollectingDetails,
		Update:     models.UpdatePrev,
	}
}

func (s State) clone() State {
	out := s
	out.Images = append([]models.UploadedImage(nil), s.Images...)
	if s.Answers != nil {
		answers := *s.Answers
		out.Answers = &answers
	}
	if s.Result != nil {
		result := s.Result.Clone()
		out.Result = &result
	}
	return out
}
