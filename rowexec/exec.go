// Package rowexec executes a planner.Step list against an ocel.Log,
// fanning a batch of parent variable.Bindings out into their children, per
// spec.md §4.3.
package rowexec

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/ocpq-go/ocpq/bbox"
	"github.com/ocpq-go/ocpq/ocel"
	"github.com/ocpq-go/ocpq/planner"
	"github.com/ocpq-go/ocpq/variable"
)

// Execute runs steps against log, starting from parents, and returns every
// resulting Binding. Each step consumes the previous step's output batch;
// within a step, independent input bindings are processed concurrently
// (spec.md §4.3/§5, "fork-join data parallelism over bindings"). Output
// ordering is unspecified.
func Execute(ctx context.Context, log *ocel.Log, b *bbox.BindingBox, steps []planner.Step, parents []variable.Binding) ([]variable.Binding, error) {
	batch := parents
	for _, step := range steps {
		next, err := runStep(ctx, log, b, step, batch)
		if err != nil {
			return nil, err
		}
		batch = next
	}
	return batch, nil
}

// fanOut applies f to every binding in batch using a bounded worker pool,
// flattening the per-binding results. f's own slice must not be shared
// across calls in a way that could race; each call only ever touches its
// own output slice.
func fanOut(ctx context.Context, batch []variable.Binding, f func(variable.Binding) ([]variable.Binding, error)) ([]variable.Binding, error) {
	results := make([][]variable.Binding, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, b := range batch {
		i, b := i, b
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := f(b)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	out := make([]variable.Binding, 0, total)
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

func runStep(ctx context.Context, log *ocel.Log, b *bbox.BindingBox, step planner.Step, batch []variable.Binding) ([]variable.Binding, error) {
	switch step.Kind {
	case planner.BindEv:
		return bindEv(ctx, log, b, step, batch)
	case planner.BindOb:
		return bindOb(ctx, log, b, step, batch)
	case planner.BindObFromEv:
		return bindObFromEv(ctx, log, b, step, batch)
	case planner.BindObFromOb:
		return bindObFromOb(ctx, log, b, step, batch)
	case planner.BindEvFromOb:
		return bindEvFromOb(ctx, log, b, step, batch)
	case planner.Filter:
		return applyFilter(ctx, log, step.FilterConstraint, batch)
	default:
		return nil, errors.Errorf("rowexec: unrecognized step kind %d", step.Kind)
	}
}

func allowedEventTypes(log *ocel.Log, types map[string]struct{}) []ocel.EventIndex {
	var out []ocel.EventIndex
	for t := range types {
		out = append(out, log.EventsOfType(t)...)
	}
	return out
}

func allowedObjectTypes(log *ocel.Log, types map[string]struct{}) []ocel.ObjectIndex {
	var out []ocel.ObjectIndex
	for t := range types {
		out = append(out, log.ObjectsOfType(t)...)
	}
	return out
}

func bindEv(ctx context.Context, log *ocel.Log, b *bbox.BindingBox, step planner.Step, batch []variable.Binding) ([]variable.Binding, error) {
	types := b.EventTypes(step.EventVar)
	candidates := allowedEventTypes(log, types)
	return fanOut(ctx, batch, func(parent variable.Binding) ([]variable.Binding, error) {
		var out []variable.Binding
		for _, e := range candidates {
			if step.TimeConstr != nil && !timeConstraintsHold(log, parent, e, step.TimeConstr) {
				continue
			}
			out = append(out, parent.WithEvent(step.EventVar, e))
		}
		return out, nil
	})
}

func timeConstraintsHold(log *ocel.Log, parent variable.Binding, candidate ocel.EventIndex, constrs []planner.TimeConstraint) bool {
	ev := log.EventByIndex(candidate)
	for _, c := range constrs {
		refIdx, ok := parent.Event(c.RefEvent.Slot)
		if !ok {
			return false
		}
		ref := log.EventByIndex(refIdx)
		diff := ev.Time.Sub(ref.Time).Seconds()
		if !c.Range.Contains(diff) {
			return false
		}
	}
	return true
}

func bindOb(ctx context.Context, log *ocel.Log, b *bbox.BindingBox, step planner.Step, batch []variable.Binding) ([]variable.Binding, error) {
	types := b.ObjectTypes(step.ObjectVar)
	candidates := allowedObjectTypes(log, types)
	return fanOut(ctx, batch, func(parent variable.Binding) ([]variable.Binding, error) {
		out := make([]variable.Binding, 0, len(candidates))
		for _, o := range candidates {
			out = append(out, parent.WithObject(step.ObjectVar, o))
		}
		return out, nil
	})
}

func bindObFromEv(ctx context.Context, log *ocel.Log, b *bbox.BindingBox, step planner.Step, batch []variable.Binding) ([]variable.Binding, error) {
	types := b.ObjectTypes(step.ObjectVar)
	return fanOut(ctx, batch, func(parent variable.Binding) ([]variable.Binding, error) {
		evIdx, ok := parent.Event(step.FromVar.Slot)
		if !ok {
			return nil, errors.Errorf("rowexec: BindObFromEv references unbound event variable ev_%d", step.FromVar.Slot)
		}
		var out []variable.Binding
		for _, n := range log.EventNeighbors(evIdx) {
			if n.Kind != ocel.NeighborObject {
				continue
			}
			if step.Qualifier != nil && n.Qualifier != *step.Qualifier {
				continue
			}
			obIdx := ocel.ObjectIndex(n.Index)
			if _, allowed := types[log.ObjectByIndex(obIdx).Type]; !allowed {
				continue
			}
			out = append(out, parent.WithObject(step.ObjectVar, obIdx))
		}
		return out, nil
	})
}

func bindObFromOb(ctx context.Context, log *ocel.Log, b *bbox.BindingBox, step planner.Step, batch []variable.Binding) ([]variable.Binding, error) {
	types := b.ObjectTypes(step.ObjectVar)
	return fanOut(ctx, batch, func(parent variable.Binding) ([]variable.Binding, error) {
		obIdx, ok := parent.Object(step.FromVar.Slot)
		if !ok {
			return nil, errors.Errorf("rowexec: BindObFromOb references unbound object variable ob_%d", step.FromVar.Slot)
		}
		var out []variable.Binding
		for _, n := range log.ObjectNeighbors(obIdx) {
			if n.Kind != ocel.NeighborObject || n.Reversed != step.Reversed {
				continue
			}
			if step.Qualifier != nil && n.Qualifier != *step.Qualifier {
				continue
			}
			neighborIdx := ocel.ObjectIndex(n.Index)
			if _, allowed := types[log.ObjectByIndex(neighborIdx).Type]; !allowed {
				continue
			}
			out = append(out, parent.WithObject(step.ObjectVar, neighborIdx))
		}
		return out, nil
	})
}

func bindEvFromOb(ctx context.Context, log *ocel.Log, b *bbox.BindingBox, step planner.Step, batch []variable.Binding) ([]variable.Binding, error) {
	types := b.EventTypes(step.EventVar)
	return fanOut(ctx, batch, func(parent variable.Binding) ([]variable.Binding, error) {
		obIdx, ok := parent.Object(step.FromVar.Slot)
		if !ok {
			return nil, errors.Errorf("rowexec: BindEvFromOb references unbound object variable ob_%d", step.FromVar.Slot)
		}
		var out []variable.Binding
		for _, n := range log.ObjectNeighbors(obIdx) {
			if n.Kind != ocel.NeighborEvent {
				continue
			}
			if step.Qualifier != nil && n.Qualifier != *step.Qualifier {
				continue
			}
			evIdx := ocel.EventIndex(n.Index)
			if _, allowed := types[log.EventByIndex(evIdx).Type]; !allowed {
				continue
			}
			out = append(out, parent.WithEvent(step.EventVar, evIdx))
		}
		return out, nil
	})
}

func applyFilter(ctx context.Context, log *ocel.Log, f bbox.Filter, batch []variable.Binding) ([]variable.Binding, error) {
	kept := make([]bool, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, b := range batch {
		i, b := i, b
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ok, err := filterHolds(log, f, b)
			if err != nil {
				return err
			}
			kept[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]variable.Binding, 0, len(batch))
	for i, b := range batch {
		if kept[i] {
			out = append(out, b)
		}
	}
	return out, nil
}

func filterHolds(log *ocel.Log, f bbox.Filter, b variable.Binding) (bool, error) {
	switch f.Kind {
	case bbox.O2E:
		obIdx, ok := b.Object(f.Object.Slot)
		if !ok {
			return false, errors.Errorf("rowexec: O2E filter references unbound object variable ob_%d", f.Object.Slot)
		}
		evIdx, ok := b.Event(f.Event.Slot)
		if !ok {
			return false, errors.Errorf("rowexec: O2E filter references unbound event variable ev_%d", f.Event.Slot)
		}
		for _, n := range log.EventNeighbors(evIdx) {
			if n.Kind == ocel.NeighborObject && ocel.ObjectIndex(n.Index) == obIdx {
				if f.Qualifier == nil || n.Qualifier == *f.Qualifier {
					return true, nil
				}
			}
		}
		return false, nil
	case bbox.O2O:
		obIdx, ok := b.Object(f.Object.Slot)
		if !ok {
			return false, errors.Errorf("rowexec: O2O filter references unbound object variable ob_%d", f.Object.Slot)
		}
		otherIdx, ok := b.Object(f.OtherObject.Slot)
		if !ok {
			return false, errors.Errorf("rowexec: O2O filter references unbound object variable ob_%d", f.OtherObject.Slot)
		}
		// O2O only matches the forward direction, i.e. the relation must be
		// stored on f.Object pointing at f.OtherObject: this mirrors
		// original_source's expand_step.rs, whose ObjectAssociatedWithObject
		// case looks up ob1.relationships (never ob2's) and checks it for
		// ob2's id. A filter wanting the reverse edge names its variables
		// in the other order.
		for _, n := range log.ObjectNeighbors(obIdx) {
			if n.Kind == ocel.NeighborObject && !n.Reversed && ocel.ObjectIndex(n.Index) == otherIdx {
				if f.Qualifier == nil || n.Qualifier == *f.Qualifier {
					return true, nil
				}
			}
		}
		return false, nil
	case bbox.TBE:
		fromIdx, ok := b.Event(f.FromEvent.Slot)
		if !ok {
			return false, errors.Errorf("rowexec: TBE filter references unbound event variable ev_%d", f.FromEvent.Slot)
		}
		toIdx, ok := b.Event(f.ToEvent.Slot)
		if !ok {
			return false, errors.Errorf("rowexec: TBE filter references unbound event variable ev_%d", f.ToEvent.Slot)
		}
		from := log.EventByIndex(fromIdx)
		to := log.EventByIndex(toIdx)
		diff := to.Time.Sub(from.Time).Seconds()
		return f.Range.Contains(diff), nil
	default:
		return false, errors.Errorf("rowexec: unrecognized filter kind %d", f.Kind)
	}
}
