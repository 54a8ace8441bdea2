package execx

import (
	"context"
	"strings"
	"sync"
)

// Call records one invocation seen by the Fake runner.
type Call struct {
	Name string
	Args []string
	Opts Opts
}

// Line returns the call as a single space-joined command line.
func (c Call) Line() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Stub maps a command-line prefix to a scripted result. Stubs are
// matched in registration order; first prefix match wins.
type Stub struct {
	Prefix  string
	Result  Result
	Err     error
	results []Result // sequenced results; last one repeats
}

// Fake is a scriptable Runner for tests. Unmatched commands succeed
// with empty output.
type Fake struct {
	mu    sync.Mutex
	stubs []Stub
	calls []Call
}

// NewFake returns an empty Fake runner.
func NewFake() *Fake { return &Fake{} }

// StubPrefix scripts a result for any command line starting with prefix.
func (f *Fake) StubPrefix(prefix string, res Result, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stubs = append(f.stubs, Stub{Prefix: prefix, Result: res, Err: err})
}

// StubSeq scripts consecutive results for a prefix; once exhausted the
// last result repeats.
func (f *Fake) StubSeq(prefix string, results ...Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stubs = append(f.stubs, Stub{Prefix: prefix, results: results})
}

func (f *Fake) Run(ctx context.Context, name string, args []string, opts Opts) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := Call{Name: name, Args: args, Opts: opts}
	f.calls = append(f.calls, call)

	line := call.Line()
	for i := range f.stubs {
		s := &f.stubs[i]
		if !strings.HasPrefix(line, s.Prefix) {
			continue
		}
		if len(s.results) > 0 {
			res := s.results[0]
			if len(s.results) > 1 {
				s.results = s.results[1:]
			}
			return res, nil
		}
		return s.Result, s.Err
	}
	return Result{}, nil
}

// Calls returns a copy of all recorded invocations.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallLines returns every recorded invocation as a command line.
func (f *Fake) CallLines() []string {
	calls := f.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = c.Line()
	}
	return lines
}

// Saw reports whether any recorded call line contains substr.
func (f *Fake) Saw(substr string) bool {
	for _, line := range f.CallLines() {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}
