package watch

import (
	"k8s.io/apimachinery/pkg/types"
)

// EventType distinguishes the two kinds of watch events delivered to an index
type EventType string

const (
	// Applied carries the latest observed state of an object (create or update)
	Applied EventType = "Applied"
	// Deleted carries only the key of an object that no longer exists
	Deleted EventType = "Deleted"
)

// Event is a single change to a watched resource collection. Object is only
// set for Applied events; Key is always set.
type Event[T any] struct {
	Type   EventType
	Key    types.NamespacedName
	Object T
}
