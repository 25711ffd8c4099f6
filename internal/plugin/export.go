package plugin

// Option is an explicitly present or absent value.
type Option[T any] struct {
	value T
	ok    bool
}

// Some returns a present Option.
func Some[T any](v T) Option[T] {
	return Option[T]{value: v, ok: true}
}

// None returns an absent Option.
func None[T any]() Option[T] {
	return Option[T]{}
}

// Get returns the value and whether it is present.
func (o Option[T]) Get() (T, bool) {
	return o.value, o.ok
}

// Or returns the value, or def when absent.
func (o Option[T]) Or(def T) T {
	if o.ok {
		return o.value
	}
	return def
}

// ExportRequest carries every parameter of an export call. Optional
// trailing parameters are explicit so callers never probe signatures.
type ExportRequest struct {
	Records    []ScanRecord
	OutputPath string
	Header     string
	Log        LogFunc
	Printer    Option[string]
}

// Emit writes line to the request's log sink, if any.
func (req ExportRequest) Emit(line string) {
	if req.Log != nil {
		req.Log(line)
	}
}

// ExportResult is the outcome of an export: FileWritten, ManualFollowUp or
// ExportFailure.
type ExportResult interface {
	exportResult()
}

// FileWritten reports a file produced at Path.
type FileWritten struct {
	Path string
}

// ManualFollowUp reports an artifact the host must hand to the user (for
// example open it for printing) and clean up afterwards.
type ManualFollowUp struct {
	Action string
	Path   string
}

// ExportFailure reports a failed export with a human-readable reason.
type ExportFailure struct {
	Reason string
}

func (FileWritten) exportResult()    {}
func (ManualFollowUp) exportResult() {}
func (ExportFailure) exportResult()  {}

// ActionPrint is the ManualFollowUp action of print exports.
const ActionPrint = "print"
