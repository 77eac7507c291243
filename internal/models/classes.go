package models

import (
	"fmt"
	"image/color"
)

// ClassSet is the detector's label vocabulary together with the subset of labels
// that count as PPE violations and their display colours. It is immutable once built.
type ClassSet struct {
	names        []string
	violations   map[string]color.RGBA
	defaultColor color.RGBA
}

// NewClassSet builds a class set. Every violation label must be part of names.
func NewClassSet(names []string, violations map[string]color.RGBA, defaultColor color.RGBA) (*ClassSet, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("class vocabulary is empty")
	}

	known := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, dup := known[n]; dup {
			return nil, fmt.Errorf("duplicate class name %q", n)
		}
		known[n] = struct{}{}
	}

	v := make(map[string]color.RGBA, len(violations))
	for label, c := range violations {
		if _, ok := known[label]; !ok {
			return nil, fmt.Errorf("violation class %q is not in the vocabulary", label)
		}
		v[label] = c
	}

	return &ClassSet{
		names:        append([]string(nil), names...),
		violations:   v,
		defaultColor: defaultColor,
	}, nil
}

// Label maps a detector class index to its name.
func (s *ClassSet) Label(classID int) (string, bool) {
	if classID < 0 || classID >= len(s.names) {
		return "", false
	}
	return s.names[classID], true
}

func (s *ClassSet) Names() []string {
	return append([]string(nil), s.names...)
}

func (s *ClassSet) Len() int { return len(s.names) }

func (s *ClassSet) IsViolation(label string) bool {
	_, ok := s.violations[label]
	return ok
}

// Color returns the display colour for label, falling back to the default colour.
func (s *ClassSet) Color(label string) color.RGBA {
	if c, ok := s.violations[label]; ok {
		return c
	}
	return s.defaultColor
}

func (s *ClassSet) DefaultColor() color.RGBA { return s.defaultColor }

// ViolationLabels returns the violation labels in vocabulary order.
func (s *ClassSet) ViolationLabels() []string {
	out := make([]string, 0, len(s.violations))
	for _, n := range s.names {
		if _, ok := s.violations[n]; ok {
			out = append(out, n)
		}
	}
	return out
}
