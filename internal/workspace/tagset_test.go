package workspace

import (
	"slices"
	"testing"
)

func TestTagSetAdd(t *testing.T) {
	tests := []struct {
		name string
		set  TagSet
		add  []string
		want TagSet
	}{
		{"add to empty", nil, []string{"cat"}, TagSet{"cat"}},
		{"duplicate is a no-op", TagSet{"cat"}, []string{"cat"}, TagSet{"cat"}},
		{"repeated adds stay unique", TagSet{"cat"}, []string{"dog", "cat", "dog"}, TagSet{"cat", "dog"}},
		{"order is first-seen", TagSet{"b"}, []string{"a"}, TagSet{"b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.set.Add(tt.add...)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Add(%v) = %v, want %v", tt.add, got, tt.want)
			}
		})
	}
}

func TestTagSetAddDoesNotModifyReceiver(t *testing.T) {
	set := TagSet{"cat"}
	_ = set.Add("dog")
	if !slices.Equal(set, TagSet{"cat"}) {
		t.Errorf("receiver modified: %v", set)
	}
}

func TestTagSetRemove(t *testing.T) {
	set := TagSet{"a", "b", "c"}

	if got := set.Remove("b"); !slices.Equal(got, TagSet{"a", "c"}) {
		t.Errorf("Remove(b) = %v", got)
	}
	if got := set.Remove("missing"); !slices.Equal(got, set) {
		t.Errorf("Remove(missing) = %v", got)
	}
}

func TestTagSetUnion(t *testing.T) {
	got := TagSet{"a", "b"}.Union(TagSet{"b", "c"})
	want := TagSet{"a", "b", "c"}
	if !slices.Equal(got, want) {
		t.Errorf("Union = %v, want %v", got, want)
	}
}
