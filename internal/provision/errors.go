package provision

import "fmt"

// Kind classifies a deploy failure so the handler can map it to a status
// code and the caller knows whether resubmission can help.
type Kind string

const (
	// KindValidation covers malformed or missing input, including duplicate
	// unique keys surfaced by the database.
	KindValidation Kind = "validation"
	// KindVendor covers non-success responses from the document ingestion
	// vendor. Activation vendor failures never produce an error; they
	// degrade instead.
	KindVendor Kind = "vendor"
	// KindPersistence covers transaction failures other than constraint
	// violations. The transaction always rolled back.
	KindPersistence Kind = "persistence"
	// KindInternal covers anything uncaught.
	KindInternal Kind = "internal"
)

// DeployError is the single failure type a deploy call returns
type DeployError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *DeployError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *DeployError) Unwrap() error {
	return e.Err
}

func validationError(message string, err error) *DeployError {
	return &DeployError{Kind: KindValidation, Message: message, Err: err}
}

func vendorError(message string, err error) *DeployError {
	return &DeployError{Kind: KindVendor, Message: message, Err: err}
}

func persistenceError(message string, err error) *DeployError {
	return &DeployError{Kind: KindPersistence, Message: message, Err: err}
}
