package envutil

import (
	"reflect"
	"strings"
	"testing"
)

func TestMerge(t *testing.T) {
	base := []string{"A=1", "B=2"}
	got := Merge(base, map[string]string{"B": "X", "C": "3"})

	want := map[string]string{"A": "1", "B": "X", "C": "3"}
	have := make(map[string]string, len(got))
	for _, kv := range got {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			t.Fatalf("malformed entry %q", kv)
		}
		have[k] = v
	}
	if !reflect.DeepEqual(have, want) {
		t.Errorf("Merge = %v, want %v", have, want)
	}
}

func TestMergeEmptyOverrides(t *testing.T) {
	base := []string{"A=1"}
	if got := Merge(base, nil); !reflect.DeepEqual(got, []string{"A=1"}) {
		t.Errorf("Merge with nil overrides = %v", got)
	}
}
