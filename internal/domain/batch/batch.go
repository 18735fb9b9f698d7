package batch

// ItemStatus is the processing outcome of a single document in a batch.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of processing one document in a batch.
type Result struct {
	id     string
	status ItemStatus
	err    error
}

// NewOK creates a successful batch result.
func NewOK(id string) Result { return Result{id: id, status: StatusOK} }

// NewError creates a failed batch result.
func NewError(id string, err error) Result { return Result{id: id, status: StatusError, err: err} }

// ID returns the document identifier.
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Summary counts outcomes of a processed batch.
type Summary struct {
	OK     int
	Failed int
}

// Summarize tallies results and returns the IDs of failed documents in order.
func Summarize(results []Result) (Summary, []string) {
	var s Summary
	var failed []string
	for _, r := range results {
		if r.status == StatusOK {
			s.OK++
			continue
		}
		s.Failed++
		failed = append(failed, r.id)
	}
	return s, failed
}
