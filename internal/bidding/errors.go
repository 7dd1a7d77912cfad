package bidding

import (
	"errors"
	"fmt"
)

// GuardError is a state-machine guard violation. The message is the exact
// sentence shown to the courier; the surrounding transaction is rolled back.
type GuardError struct {
	msg string
}

func (e *GuardError) Error() string { return e.msg }

func guardf(format string, args ...any) *GuardError {
	return &GuardError{msg: fmt.Sprintf(format, args...)}
}

// ErrConflict means an optimistic status or window update hit a row that a
// concurrent transition already claimed.
var ErrConflict = errors.New("concurrent transition conflict")

func errMissingJobTag() *GuardError {
	return guardf("This command requires a job tag. Text the tag, a space, and the command.")
}

func errInvalidJobTag(tag string) *GuardError {
	return guardf("That doesn't look like a valid job tag: %s", tag)
}

func errJobNotAvailable(tag string) *GuardError {
	return guardf("Sorry -- the job %s is not available for bidding.", tag)
}

func errAlreadyBid(tag string) *GuardError {
	return guardf("You have already bid on the job: %s. Hang tight -- we'll let you know if it's yours.", tag)
}

func errWindowNotOpen(tag string) *GuardError {
	return guardf("Sorry -- bidding is closed for the job %s.", tag)
}

func errWindowStillOpen() *GuardError {
	return guardf("Sorry -- the bidding window for this job is still open.")
}

func errBidNotFound(tag string) *GuardError {
	return guardf("We don't show a bid from you for the job %s.", tag)
}

func errAlreadyInStatus(tag string, status Status) *GuardError {
	return guardf("The job %s is already marked %s.", tag, status)
}

func errJobNotOwned(tag string) *GuardError {
	return guardf("The job %s doesn't appear to be one of yours.", tag)
}

func errNoActiveJobs() *GuardError {
	return guardf("You don't have any current jobs in the system.")
}

func errAmbiguousJob() *GuardError {
	return guardf("You have more than one current job. Text the job tag, a space, and the command.")
}
