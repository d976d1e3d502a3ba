package completion

// #region imports
import (
	"context"
	"fmt"
	"sync"
)

// #endregion

// #region scripted

// Scripted is a deterministic Port for tests and replay. Responses are queued
// per request kind and consumed in order; every call is recorded so tests can
// assert which stages ran and in what sequence.
type Scripted struct {
	mu     sync.Mutex
	queues map[Kind][]string
	errs   map[Kind]error
	calls  []Request
}

// NewScripted creates an empty scripted port.
func NewScripted() *Scripted {
	return &Scripted{
		queues: make(map[Kind][]string),
		errs:   make(map[Kind]error),
	}
}

// Push queues a response for the given kind.
func (s *Scripted) Push(kind Kind, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[kind] = append(s.queues[kind], text)
}

// Fail makes every subsequent call of the given kind return err.
func (s *Scripted) Fail(kind Kind, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[kind] = err
}

// Complete pops the next queued response for the request's kind.
// An unqueued kind is an error: it means a stage ran that the script
// (or the test) did not expect.
func (s *Scripted) Complete(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, req)

	if err := s.errs[req.Kind]; err != nil {
		return Result{}, err
	}

	queue := s.queues[req.Kind]
	if len(queue) == 0 {
		return Result{}, fmt.Errorf("scripted port: no response queued for kind %q", req.Kind)
	}
	s.queues[req.Kind] = queue[1:]
	return Result{Text: queue[0]}, nil
}

// #endregion

// #region inspection

// Calls returns a copy of all recorded requests, in call order.
func (s *Scripted) Calls() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.calls))
	copy(out, s.calls)
	return out
}

// KindsCalled returns the kinds of all recorded requests, in call order.
func (s *Scripted) KindsCalled() []Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]Kind, len(s.calls))
	for i, c := range s.calls {
		kinds[i] = c.Kind
	}
	return kinds
}

// CountKind returns how many recorded requests had the given kind.
func (s *Scripted) CountKind(kind Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// #endregion
