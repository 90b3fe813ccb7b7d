// Package stream connects machines to channels: side effects flow out as a
// channel and values from a channel flow in as events.
package stream

import (
	"context"
	"fmt"

	"github.com/librescoot/relayfsm"
	"github.com/librescoot/relayfsm/relay"
)

// Poster is the part of a Machine that accepts events
type Poster[E relayfsm.Event] interface {
	PostEvent(event E)
}

// SideEffects returns a channel carrying every side effect with the given id
// (or every side effect for relayfsm.AnyEffect) emitted after the call. Each
// side effect is delivered once, to whichever goroutine receives it. A slow
// receiver never blocks the machine: pending side effects are buffered. The
// channel is closed after ctx is done.
func SideEffects[S relayfsm.State, E relayfsm.Event, F relayfsm.SideEffect](
	ctx context.Context, m *relayfsm.Machine[S, E, F], id relayfsm.EffectID,
) (<-chan F, error) {
	q := relay.NewQueue(ctx)
	out := make(chan F)

	sub, err := m.Observe(q, func(o *relayfsm.Observer[S, F]) {
		o.OnSideEffect(id, func(effect F) {
			select {
			case out <- effect:
			case <-ctx.Done():
			}
		})
	})
	if err != nil {
		q.Clear()
		return nil, fmt.Errorf("observe side effects: %w", err)
	}

	go func() {
		<-relay.Until(ctx, sub)
		<-q.Done()
		close(out)
	}()
	return out, nil
}

// Feed posts mapper(v) to m for every v received from in. It returns nil
// once in is closed, or ctx.Err() if ctx ends first. Values for which mapper
// reports false are skipped.
func Feed[T any, E relayfsm.Event](ctx context.Context, m Poster[E], in <-chan T, mapper func(T) (E, bool)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case v, ok := <-in:
			if !ok {
				return nil
			}
			if event, ok := mapper(v); ok {
				m.PostEvent(event)
			}
		}
	}
}
