package middleware

import "sync"

// Recorder is a dispatch sink that keeps every action it receives.
type Recorder struct {
	mu      sync.Mutex
	actions []Action
}

func (r *Recorder) Dispatch(a Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, a)
}

func (r *Recorder) Actions() []Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Action(nil), r.actions...)
}

// Terminal returns the outcomes recorded so far, in dispatch order.
func (r *Recorder) Terminal() []Outcome {
	var out []Outcome
	for _, a := range r.Actions() {
		if o, ok := a.(Outcome); ok {
			out = append(out, o)
		}
	}
	return out
}

// Fanout dispatches each action to every sink in order. Nil sinks are skipped.
func Fanout(sinks ...DispatchFunc) DispatchFunc {
	return func(a Action) {
		for _, s := range sinks {
			if s != nil {
				s(a)
			}
		}
	}
}
