package watch

import (
	"context"
	"testing"
	"time"

	workloadv1beta1 "github.com/BuoyantIO/kubecon-controller/api/v1beta1"
	"github.com/BuoyantIO/kubecon-controller/internal/filter"
	"k8s.io/apimachinery/pkg/types"
	toolscache "k8s.io/client-go/tools/cache"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllertest"
)

type workloadEvent = Event[*workloadv1beta1.ExternalWorkload]

func receive(t *testing.T, events <-chan workloadEvent) workloadEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatal("event channel closed unexpectedly")
		}
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return workloadEvent{}
}

func startSource(t *testing.T, f *filter.ResourceFilter) (*controllertest.FakeInformer, <-chan workloadEvent, context.CancelFunc) {
	t.Helper()
	informer := &controllertest.FakeInformer{}
	source := NewInformer[*workloadv1beta1.ExternalWorkload](informer, f, DefaultBufferSize)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := source.Start(ctx)
	if err != nil {
		cancel()
		t.Fatalf("Start() error = %v", err)
	}
	return informer, events, cancel
}

func TestInformerForwardsEventsInOrder(t *testing.T) {
	informer, events, cancel := startSource(t, nil)
	defer cancel()

	w := workloadv1beta1.NewExternalWorkload("vm-1", "default", 80)
	updated := w.DeepCopy()
	updated.Status = &workloadv1beta1.ExternalWorkloadStatus{
		Conditions: []workloadv1beta1.WorkloadCondition{{Type: workloadv1beta1.WorkloadReady, Status: workloadv1beta1.ConditionTrue}},
	}

	informer.Add(w)
	informer.Update(w, updated)
	informer.Delete(updated)

	want := types.NamespacedName{Namespace: "default", Name: "vm-1"}

	ev := receive(t, events)
	if ev.Type != Applied || ev.Key != want || ev.Object != w {
		t.Errorf("first event = %+v, want Applied %v", ev, want)
	}
	ev = receive(t, events)
	if ev.Type != Applied || ev.Object != updated {
		t.Errorf("second event = %+v, want Applied with updated object", ev)
	}
	ev = receive(t, events)
	if ev.Type != Deleted || ev.Key != want {
		t.Errorf("third event = %+v, want Deleted %v", ev, want)
	}
}

func TestInformerFilteredObjectsBecomeDeletes(t *testing.T) {
	f, err := filter.NewResourceFilter(filter.ResourceFilterConfig{
		ExcludeLabels: []string{"workload.linkerd.io/ignore=true"},
	})
	if err != nil {
		t.Fatalf("NewResourceFilter() error = %v", err)
	}
	informer, events, cancel := startSource(t, f)
	defer cancel()

	w := workloadv1beta1.NewExternalWorkload("vm-1", "default", 80)
	w.Labels = map[string]string{"workload.linkerd.io/ignore": "true"}
	informer.Add(w)

	ev := receive(t, events)
	if ev.Type != Deleted {
		t.Errorf("expected filtered object to produce Deleted, got %s", ev.Type)
	}
}

func TestEventHandlerTombstones(t *testing.T) {
	source := NewInformer[*workloadv1beta1.ExternalWorkload](&controllertest.FakeInformer{}, nil, 2)
	h := &eventHandler[*workloadv1beta1.ExternalWorkload]{ctx: context.Background(), source: source}

	w := workloadv1beta1.NewExternalWorkload("vm-1", "default", 80)
	h.OnDelete(toolscache.DeletedFinalStateUnknown{Key: "default/vm-1", Obj: w})
	h.OnDelete(toolscache.DeletedFinalStateUnknown{Key: "other/vm-2", Obj: nil})

	first := <-source.events
	if first.Type != Deleted || first.Key != (types.NamespacedName{Namespace: "default", Name: "vm-1"}) {
		t.Errorf("unexpected event from typed tombstone: %+v", first)
	}
	second := <-source.events
	if second.Type != Deleted || second.Key != (types.NamespacedName{Namespace: "other", Name: "vm-2"}) {
		t.Errorf("unexpected event from key-only tombstone: %+v", second)
	}
}

func TestEventHandlerDeletesBypassFilter(t *testing.T) {
	f, err := filter.NewResourceFilter(filter.ResourceFilterConfig{
		ExcludeLabels: []string{"workload.linkerd.io/ignore=true"},
	})
	if err != nil {
		t.Fatalf("NewResourceFilter() error = %v", err)
	}
	source := NewInformer[*workloadv1beta1.ExternalWorkload](&controllertest.FakeInformer{}, f, 3)
	h := &eventHandler[*workloadv1beta1.ExternalWorkload]{ctx: context.Background(), source: source}

	w := workloadv1beta1.NewExternalWorkload("vm", "default", 80)
	relabelled := w.DeepCopy()
	relabelled.Labels = map[string]string{"workload.linkerd.io/ignore": "true"}

	// The relabel update was never observed; only the final state arrives.
	h.OnAdd(w, false)
	h.OnDelete(toolscache.DeletedFinalStateUnknown{Key: "default/vm", Obj: relabelled})
	h.OnDelete(relabelled)

	want := types.NamespacedName{Namespace: "default", Name: "vm"}
	if ev := <-source.events; ev.Type != Applied || ev.Key != want {
		t.Errorf("first event = %+v, want Applied %v", ev, want)
	}
	if ev := <-source.events; ev.Type != Deleted || ev.Key != want {
		t.Errorf("tombstone of filtered object = %+v, want Deleted %v", ev, want)
	}
	if ev := <-source.events; ev.Type != Deleted || ev.Key != want {
		t.Errorf("delete of filtered object = %+v, want Deleted %v", ev, want)
	}
}

func TestInformerClosesChannelOnCancel(t *testing.T) {
	_, events, cancel := startSource(t, nil)
	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancellation")
	}
}

func TestInformerStartTwice(t *testing.T) {
	source := NewInformer[*workloadv1beta1.ExternalWorkload](&controllertest.FakeInformer{}, nil, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := source.Start(ctx); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	if _, err := source.Start(ctx); err == nil {
		t.Error("expected second Start() to fail")
	}
}
