package reconcile

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound       = errors.New("checkout session not found")
	ErrPaymentIntentNotFound = errors.New("payment intent not found")
	ErrNoExternalIdentifier  = errors.New("checkout session has no payment intent, charge or subscription")
	ErrOrderNotFound         = errors.New("order not found for external id")
)

// Step is the furthest point a reconciliation reached.
type Step string

const (
	StepStarted            Step = "started"
	StepSessionFetched     Step = "session_fetched"
	StepIdentifierResolved Step = "identifier_resolved"
	StepOrderFound         Step = "order_found"
	StepRedirected         Step = "redirected"
)

// StepError records where reconciliation stopped and the id being looked up.
type StepError struct {
	Step Step
	ID   string
	Err  error
}

func (e *StepError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("reconcile %s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("reconcile %s (%s): %v", e.Step, e.ID, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// StepOf returns the step carried by err, or StepStarted.
func StepOf(err error) Step {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step
	}
	return StepStarted
}

func failAt(step Step, id string, err error) error {
	return &StepError{Step: step, ID: id, Err: err}
}
