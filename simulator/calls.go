package simulator

import (
	"sync"
)

// Op names a simulated API operation.
type Op string

const (
	OpGetRepo          Op = "github.get_repo"
	OpGetContents      Op = "github.get_contents"
	OpCreateApp        Op = "heroku.create_app"
	OpUpdateConfigVars Op = "heroku.update_config_vars"
	OpCreateBuild      Op = "heroku.create_build"
	OpListApps         Op = "heroku.list_apps"
	OpDeleteApp        Op = "heroku.delete_app"
)

// Call is one recorded request. Target is the app name or "owner/repo".
type Call struct {
	Op     Op
	Target string
}

type failure struct {
	status  int
	message string
}

// recorder keeps the call log and the injected failures of one fake.
type recorder struct {
	mu       sync.Mutex
	calls    []Call
	failures map[string]failure
}

func newRecorder() *recorder {
	return &recorder{failures: make(map[string]failure)}
}

func failureKey(op Op, target string) string {
	return string(op) + "|" + target
}

// record logs the call and returns the failure injected for it, if any.
// Target-specific failures win over op-wide ones.
func (r *recorder) record(op Op, target string) (failure, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Op: op, Target: target})
	if f, ok := r.failures[failureKey(op, target)]; ok {
		return f, true
	}
	f, ok := r.failures[failureKey(op, "")]
	return f, ok
}

func (r *recorder) fail(op Op, target string, status int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[failureKey(op, target)] = failure{status: status, message: message}
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = make(map[string]failure)
}

func (r *recorder) snapshot() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *recorder) count(op Op) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}
