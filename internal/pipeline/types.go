package pipeline

// Status represents the progress of one transform pass over the output
// tree.
type Status struct {
	Stage        string // "waiting", "processing", "done", "error"
	Total        int
	Done         int
	Unchanged    int
	Errors       int
	FailuresPath string
}
