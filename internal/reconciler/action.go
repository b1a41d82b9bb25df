package reconciler

import (
	"time"

	ctrl "sigs.k8s.io/controller-runtime"
)

// RetryBackoff is the fixed delay before a failed status write is retried
const RetryBackoff = 60 * time.Second

// ActionKind is the outcome a reconcile reports to the driving scheduler
type ActionKind int

const (
	// AwaitChange waits for the next change notification for the object
	AwaitChange ActionKind = iota
	// NoRequeue drops the object until something else enqueues it
	NoRequeue
	// Requeue schedules the object again after Action.After
	Requeue
)

func (k ActionKind) String() string {
	switch k {
	case AwaitChange:
		return "AwaitChange"
	case NoRequeue:
		return "NoRequeue"
	case Requeue:
		return "Requeue"
	default:
		return "Unknown"
	}
}

// Action is the scheduling decision for one reconcile
type Action struct {
	Kind  ActionKind
	After time.Duration
}

// RequeueAfter builds an action that retries the object after d
func RequeueAfter(d time.Duration) Action {
	return Action{Kind: Requeue, After: d}
}

// Result converts the action to a controller-runtime result. AwaitChange and
// NoRequeue are the same to the workqueue: both rely on a later watch event.
func (a Action) Result() ctrl.Result {
	if a.Kind == Requeue {
		return ctrl.Result{RequeueAfter: a.After}
	}
	return ctrl.Result{}
}
