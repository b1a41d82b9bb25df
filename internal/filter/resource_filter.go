package filter

import (
	"fmt"
	"path/filepath"
	"strings"

	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/selection"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// ResourceFilterConfig holds the namespace and label rules for ExternalWorkloads
type ResourceFilterConfig struct {
	// Glob patterns for namespaces to watch (e.g., "production-*"); empty watches all
	WatchNamespaces []string
	// Glob patterns for namespaces to skip; checked before WatchNamespaces
	ExcludeNamespaces []string

	// Label keys that must be present (e.g., "app.kubernetes.io/managed-by")
	RequireLabels []string
	// "key" or "key=value" entries; a matching label excludes the object
	ExcludeLabels []string
}

// ResourceFilter admits objects by namespace glob and label selector. It is
// shared by the index event stream and the status controller's predicates.
type ResourceFilter struct {
	watchNamespaces   []string
	excludeNamespaces []string
	selector          labels.Selector
}

// NewResourceFilter compiles the label rules into a selector. It fails on
// label keys or values that are not valid Kubernetes label syntax.
func NewResourceFilter(config ResourceFilterConfig) (*ResourceFilter, error) {
	selector := labels.NewSelector()

	for _, key := range config.RequireLabels {
		req, err := labels.NewRequirement(key, selection.Exists, nil)
		if err != nil {
			return nil, fmt.Errorf("invalid required label %q: %w", key, err)
		}
		selector = selector.Add(*req)
	}

	for _, exclusion := range config.ExcludeLabels {
		key, value, hasValue := strings.Cut(exclusion, "=")
		var req *labels.Requirement
		var err error
		if hasValue {
			// != also admits objects without the key
			req, err = labels.NewRequirement(key, selection.NotEquals, []string{value})
		} else {
			req, err = labels.NewRequirement(key, selection.DoesNotExist, nil)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid excluded label %q: %w", exclusion, err)
		}
		selector = selector.Add(*req)
	}

	return &ResourceFilter{
		watchNamespaces:   config.WatchNamespaces,
		excludeNamespaces: config.ExcludeNamespaces,
		selector:          selector,
	}, nil
}

// Matches returns true if the object passes both namespace and label rules.
// A nil filter matches everything.
func (f *ResourceFilter) Matches(obj client.Object) bool {
	if f == nil || obj == nil {
		return true
	}
	return f.ShouldWatchNamespace(obj.GetNamespace()) && f.ShouldWatchLabels(obj.GetLabels())
}

// ShouldWatchNamespace returns true if the namespace is not excluded and, when
// watch patterns are set, matches one of them.
func (f *ResourceFilter) ShouldWatchNamespace(namespace string) bool {
	if matchAny(f.excludeNamespaces, namespace) {
		return false
	}
	return len(f.watchNamespaces) == 0 || matchAny(f.watchNamespaces, namespace)
}

// ShouldWatchLabels returns true if the label set satisfies the selector
func (f *ResourceFilter) ShouldWatchLabels(set map[string]string) bool {
	return f.selector.Matches(labels.Set(set))
}

// Selector returns the compiled label selector
func (f *ResourceFilter) Selector() labels.Selector {
	return f.selector
}

// matchAny reports whether s matches any glob; malformed patterns never match
func matchAny(patterns []string, s string) bool {
	for _, pattern := range patterns {
		if ok, err := filepath.Match(pattern, s); err == nil && ok {
			return true
		}
	}
	return false
}

// DefaultExcludedNamespaces returns the system namespaces skipped by default
func DefaultExcludedNamespaces() []string {
	return []string{
		"kube-system",
		"kube-public",
		"kube-node-lease",
	}
}
