package verification

import (
	"github.com/crytic/solverify/compilation"
	"github.com/crytic/solverify/events"
)

// VerifierEvents defines event emitters for a Verifier.
type VerifierEvents struct {
	// VerificationStarting emits events when the on-chain code has been fetched, the sources have been flattened,
	// and the Verifier is about to try its compiler configurations.
	VerificationStarting events.EventEmitter[VerificationStartingEvent]

	// AttemptCompleted emits events after each compiler configuration has been tried.
	AttemptCompleted events.EventEmitter[AttemptCompletedEvent]

	// VerificationFinished emits events when a run has produced its Outcome.
	VerificationFinished events.EventEmitter[VerificationFinishedEvent]
}

// VerificationStartingEvent describes an event where a Verifier is about to try its compiler configurations.
type VerificationStartingEvent struct {
	// RunID describes the unique identifier of the run.
	RunID string

	// Configurations describes the compiler configurations which will be tried, in order.
	Configurations []compilation.Configuration

	// OnchainLength describes the length of the fetched on-chain code.
	OnchainLength int
}

// AttemptCompletedEvent describes an event where a Verifier has tried a single compiler configuration.
type AttemptCompletedEvent struct {
	// RunID describes the unique identifier of the run.
	RunID string

	// Index describes the zero-based position of the attempt among the run's configurations.
	Index int

	// Total describes the number of configurations of the run.
	Total int

	// Attempt describes the configuration that was tried and its result.
	Attempt Attempt
}

// VerificationFinishedEvent describes an event where a Verifier has completed a run.
type VerificationFinishedEvent struct {
	// Outcome describes the result of the run.
	Outcome *Outcome
}
