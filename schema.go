package treeconf

// Schema validates a merged tree. The rule language itself is out of scope
// here, any validator satisfying this interface can be attached to a mount
// or as a composition wide default.
type Schema interface {
	// Validate returns one error per violation, an empty result means the
	// tree is valid.
	Validate(value any) []error
}

// SchemaFunc adapts a plain function to the Schema interface.
type SchemaFunc func(value any) []error

// Validate implements Schema.
func (f SchemaFunc) Validate(value any) []error {
	return f(value)
}

// Policy controls what a compositor does with a merged tree that fails
// validation.
type Policy int

const (
	// PolicyDie aborts the composition request with ErrValidation.
	PolicyDie Policy = iota
	// PolicyWarn logs the failure and continues with the invalid tree.
	PolicyWarn
	// PolicyQuiet continues silently.
	PolicyQuiet
)

func (p Policy) String() string {
	switch p {
	case PolicyWarn:
		return "warn"
	case PolicyQuiet:
		return "quiet"
	default:
		return "die"
	}
}
