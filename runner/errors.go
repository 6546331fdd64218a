package runner

import "fmt"

// Kind classifies a per-submission failure.
type Kind int

const (
	// KindInputRejected marks code refused by the safety gate; nothing ran.
	KindInputRejected Kind = iota + 1
	// KindPolicyRejected marks a dependency outside the whitelist; nothing
	// was installed or executed.
	KindPolicyRejected
	// KindContainerNotFound marks a missing or unresolvable target container.
	KindContainerNotFound
	// KindExecutionFailed marks install failures, timeouts, and any other
	// error during the run itself.
	KindExecutionFailed
)

// Error is the tagged per-submission failure. It is flattened to its Message
// at the Execute boundary; callers of Run can branch on Kind instead of
// matching message text.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ConfigError reports that the runner itself is unusable: the platform is
// unreachable, the target container is missing or stopped at startup, or the
// configuration is inconsistent. It is distinct from the textual
// per-submission results.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("runner configuration: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("runner configuration: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
