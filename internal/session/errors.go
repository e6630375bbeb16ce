package session

import (
	"errors"
	"fmt"
)

// Kind classifies a session failure.
type Kind string

const (
	KindValidation Kind = "validation"
	KindUpload     Kind = "upload"
	KindCreate     Kind = "create"
	KindSubmit     Kind = "submit"
	KindStream     Kind = "stream"
	KindAdjustment Kind = "adjustment"
)

var (
	// ErrValidation matches any failure raised before a network call was made.
	ErrValidation = errors.New("validation failed")
	// ErrSuperseded is returned when the session was reset while a call was in
	// flight; its result has been discarded.
	ErrSuperseded = errors.New("session was reset; result discarded")
)

// Failure is the error type every controller operation returns.
type Failure struct {
	Kind       Kind
	EstimateID int64
	Err        error
}

func (f *Failure) Error() string {
	if f.EstimateID != 0 {
		return fmt.Sprintf("%s failure (estimate %d): %v", f.Kind, f.EstimateID, f.Err)
	}
	return fmt.Sprintf("%s failure: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Is lets errors.Is(err, ErrValidation) match validation failures.
func (f *Failure) Is(target error) bool {
	return target == ErrValidation && f.Kind == KindValidation
}

// UserMessage is a short message suitable for an alert.
func (f *Failure) UserMessage() string {
	switch f.Kind {
	case KindValidation:
		return f.Err.Error()
	case KindUpload:
		return "Uploading the photos failed. Please try the upload again."
	case KindCreate:
		return "The estimate could not be created. Please try again."
	case KindSubmit:
		return "Sending the property details failed. Please submit them again."
	case KindStream:
		return "Lost track of the analysis. Please submit the property details again."
	case KindAdjustment:
		return "The quantity change could not be saved. The truck estimate may be out of date."
	default:
		return "Something went wrong. Please try again."
	}
}

func validation(format string, args ...any) *Failure {
	return &Failure{Kind: KindValidation, Err: fmt.Errorf(format, args...)}
}
