package workspace

import "slices"

// TagSet is an ordered sequence of tags with set semantics: adding a
// tag that is already present is a no-op, so deduplication is an
// invariant of the type rather than a check repeated at call sites.
// Order is first-seen order, kept stable for display.
type TagSet []string

// Contains reports whether the set holds the tag.
func (s TagSet) Contains(tag string) bool {
	return slices.Contains(s, tag)
}

// Add returns a set containing the receiver's tags plus the given
// tags, skipping any that are already present. The receiver is not
// modified.
func (s TagSet) Add(tags ...string) TagSet {
	out := s.Clone()
	for _, tag := range tags {
		if !out.Contains(tag) {
			out = append(out, tag)
		}
	}
	return out
}

// Union returns the set union of the receiver and other, preserving
// the receiver's order first.
func (s TagSet) Union(other TagSet) TagSet {
	return s.Add(other...)
}

// Remove returns a set without the given tag. Order of the remaining
// tags is preserved.
func (s TagSet) Remove(tag string) TagSet {
	if !s.Contains(tag) {
		return s.Clone()
	}
	out := make(TagSet, 0, len(s)-1)
	for _, t := range s {
		if t != tag {
			out = append(out, t)
		}
	}
	return out
}

// Clone returns an independent copy of the set.
func (s TagSet) Clone() TagSet {
	if s == nil {
		return nil
	}
	return slices.Clone(s)
}
