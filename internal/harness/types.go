package harness

// Step kinds recorded in the trace.
const (
	KindQuery = "query"
	KindPut   = "put"
	KindPack  = "pack"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Step   int    `json:"step"`
	Kind   string `json:"kind"` // "query", "put" or "pack"
	Input  string `json:"input"`
	Output string `json:"output,omitempty"`
	Packed string `json:"packed,omitempty"`
	Count  int    `json:"count"`
	Error  string `json:"error,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expect clause and assertion holds.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}
