package tasks

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/desertthunder/musegen/internal/services"
)

// gatedCall is one in-flight invocation of a gatedOp.
type gatedCall struct {
	release chan struct{}
	result  string
	err     error
}

// gatedOp returns an Operation whose calls block until released, announcing each start on started.
func gatedOp(calls map[string]*gatedCall, started chan<- string) Operation[string, string] {
	return func(ctx context.Context, name string) (string, error) {
		c := calls[name]
		started <- name
		<-c.release
		return c.result, c.err
	}
}

func newGatedCalls(names ...string) map[string]*gatedCall {
	calls := map[string]*gatedCall{}
	for _, n := range names {
		calls[n] = &gatedCall{release: make(chan struct{}), result: "result-" + n}
	}
	return calls
}

type invokeResult struct {
	res string
	err error
}

func invokeAsync(tr *Tracker[string, string], name string) <-chan invokeResult {
	out := make(chan invokeResult, 1)
	go func() {
		res, err := tr.Invoke(context.Background(), name)
		out <- invokeResult{res, err}
	}()
	return out
}

func assertExclusive[R any](t *testing.T, s CallState[R]) {
	t.Helper()
	if s.HasResult && s.Err != nil {
		t.Fatalf("result and error both present: %+v", s)
	}
}

func TestTracker(t *testing.T) {
	t.Run("Starts Idle", func(t *testing.T) {
		tr := NewTracker(func(ctx context.Context, _ struct{}) (int, error) { return 1, nil })
		if !tr.State().Idle() {
			t.Errorf("expected idle state, got %+v", tr.State())
		}
	})

	t.Run("Loading Then Result", func(t *testing.T) {
		calls := newGatedCalls("a")
		started := make(chan string, 1)
		tr := NewTracker(gatedOp(calls, started))

		done := invokeAsync(tr, "a")
		<-started

		if s := tr.State(); !s.Loading || s.HasResult || s.Err != nil {
			t.Errorf("expected loading state, got %+v", s)
		}

		close(calls["a"].release)
		got := <-done
		if got.err != nil || got.res != "result-a" {
			t.Fatalf("unexpected return %+v", got)
		}

		s := tr.State()
		assertExclusive(t, s)
		if s.Loading || !s.HasResult || s.Result != "result-a" {
			t.Errorf("expected result state, got %+v", s)
		}
	})

	t.Run("Failure Stores OperationError", func(t *testing.T) {
		opErr := &services.OperationError{Status: http.StatusNotFound, Detail: "not found"}
		tr := NewTracker(func(ctx context.Context, id string) (string, error) { return "", opErr })

		_, err := tr.Invoke(context.Background(), "missing")
		if !errors.Is(err, opErr) {
			t.Fatalf("expected the operation error to be returned, got %v", err)
		}

		s := tr.State()
		assertExclusive(t, s)
		if s.Loading || s.HasResult {
			t.Errorf("expected settled state without result, got %+v", s)
		}
		var got *services.OperationError
		if !errors.As(s.Err, &got) || got.Status != 404 || got.Detail != "not found" {
			t.Errorf("expected 404 'not found', got %v", s.Err)
		}
	})

	t.Run("Reinvoke Clears Previous Outcome", func(t *testing.T) {
		fail := true
		tr := NewTracker(func(ctx context.Context, _ int) (int, error) {
			if fail {
				return 0, errors.New("boom")
			}
			return 42, nil
		})

		tr.Invoke(context.Background(), 0)
		if tr.State().Err == nil {
			t.Fatal("expected error state")
		}

		fail = false
		tr.Invoke(context.Background(), 0)
		s := tr.State()
		assertExclusive(t, s)
		if s.Err != nil || s.Result != 42 {
			t.Errorf("expected result 42 without error, got %+v", s)
		}
	})

	t.Run("Latest Invocation Wins", func(t *testing.T) {
		calls := newGatedCalls("a", "b")
		started := make(chan string, 2)
		tr := NewTracker(gatedOp(calls, started))

		doneA := invokeAsync(tr, "a")
		<-started
		doneB := invokeAsync(tr, "b")
		<-started

		close(calls["b"].release)
		<-doneB
		if s := tr.State(); s.Result != "result-b" {
			t.Fatalf("expected B's result, got %+v", s)
		}

		close(calls["a"].release)
		gotA := <-doneA
		if gotA.res != "result-a" {
			t.Errorf("expected stale call to still return its own result, got %q", gotA.res)
		}

		s := tr.State()
		if s.Result != "result-b" || s.Loading {
			t.Errorf("stale completion overwrote state: %+v", s)
		}
	})

	t.Run("Stale Completion Does Not Settle Loading", func(t *testing.T) {
		calls := newGatedCalls("a", "b")
		started := make(chan string, 2)
		tr := NewTracker(gatedOp(calls, started))

		doneA := invokeAsync(tr, "a")
		<-started
		doneB := invokeAsync(tr, "b")
		<-started

		close(calls["a"].release)
		<-doneA
		if s := tr.State(); !s.Loading || s.HasResult {
			t.Errorf("expected still loading for B, got %+v", s)
		}

		close(calls["b"].release)
		<-doneB
		if s := tr.State(); s.Loading || s.Result != "result-b" {
			t.Errorf("expected B's result, got %+v", s)
		}
	})

	t.Run("No Mutation After Close", func(t *testing.T) {
		for _, outcome := range []string{"resolve", "reject"} {
			t.Run(outcome, func(t *testing.T) {
				calls := newGatedCalls("a")
				if outcome == "reject" {
					calls["a"].err = errors.New("late failure")
				}
				started := make(chan string, 2)
				tr := NewTracker(gatedOp(calls, started))

				done := invokeAsync(tr, "a")
				<-started

				before := tr.State()
				tr.Close()
				close(calls["a"].release)
				<-done

				after := tr.State()
				if after != before {
					t.Errorf("state changed after close: before %+v, after %+v", before, after)
				}
				if !tr.Closed() {
					t.Error("expected tracker to report closed")
				}
			})
		}
	})

	t.Run("Invoke After Close Leaves State Alone", func(t *testing.T) {
		tr := NewTracker(func(ctx context.Context, n int) (int, error) { return n * 2, nil })
		tr.Invoke(context.Background(), 1)
		tr.Close()

		res, err := tr.Invoke(context.Background(), 5)
		if err != nil || res != 10 {
			t.Errorf("expected call to still return, got %d, %v", res, err)
		}
		if s := tr.State(); s.Result != 2 {
			t.Errorf("expected state to stay at 2, got %+v", s)
		}
	})

	t.Run("Concurrent Invocations Stay Exclusive", func(t *testing.T) {
		tr := NewTracker(func(ctx context.Context, n int) (int, error) {
			time.Sleep(time.Duration(n%3) * time.Millisecond)
			if n%2 == 0 {
				return 0, errors.New("even")
			}
			return n, nil
		})

		done := make(chan struct{})
		for i := range 20 {
			go func() {
				tr.Invoke(context.Background(), i)
				done <- struct{}{}
			}()
		}
		for range 20 {
			assertExclusive(t, tr.State())
			<-done
		}
		if tr.Loading() {
			t.Error("expected tracker to settle once all calls returned")
		}
	})
}
