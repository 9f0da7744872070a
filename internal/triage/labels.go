package triage

import "strings"

// Namespace is the part of a label before the first colon.
type Namespace string

// Namespaces the engine reads.
const (
	NamespacePriority Namespace = "priority"
	NamespaceArea     Namespace = "area"
	NamespaceKind     Namespace = "kind"
)

// Label is an issue label split into namespace and value.
type Label struct {
	Namespace Namespace
	Value     string
	Raw       string
}

// ParseLabels splits each label on its first colon. Labels without a colon
// have no namespace and are kept only for completeness.
func ParseLabels(raw []string) []Label {
	out := make([]Label, 0, len(raw))
	for _, r := range raw {
		ns, value, ok := strings.Cut(r, ":")
		if !ok {
			out = append(out, Label{Value: r, Raw: r})
			continue
		}
		out = append(out, Label{Namespace: Namespace(ns), Value: value, Raw: r})
	}
	return out
}

// Classification holds the label-derived attributes of an issue. Each field
// carries the full label (for example "priority:high") or its default.
type Classification struct {
	Priority string `json:"priority"`
	Area     string `json:"area"`
	Kind     string `json:"kind"`
}

// Defaults used when an issue has no label in a namespace.
const (
	DefaultPriority = "normal"
	DefaultArea     = "unknown"
	DefaultKind     = "unknown"
)

// Classify picks the first label of each recognised namespace, in label order.
func Classify(labels []Label) Classification {
	var c Classification
	for _, l := range labels {
		switch l.Namespace {
		case NamespacePriority:
			if c.Priority == "" {
				c.Priority = l.Raw
			}
		case NamespaceArea:
			if c.Area == "" {
				c.Area = l.Raw
			}
		case NamespaceKind:
			if c.Kind == "" {
				c.Kind = l.Raw
			}
		}
	}
	if c.Priority == "" {
		c.Priority = DefaultPriority
	}
	if c.Area == "" {
		c.Area = DefaultArea
	}
	if c.Kind == "" {
		c.Kind = DefaultKind
	}
	return c
}
