package shade

import "fmt"

// RelocationConflictError reports relocation rules that cannot be applied
// unambiguously.
type RelocationConflictError struct {
	Reason string
	From   string
	To     string
	// Path is the offending entry when the conflict comes from the inputs.
	Path string
}

func (e *RelocationConflictError) Error() string {
	msg := fmt.Sprintf("relocation conflict %s -> %s: %s", e.From, e.To, e.Reason)
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	return msg
}
