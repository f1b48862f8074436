package snowflake

import (
	"testing"
	"time"
)

func TestGenerateUniqueAndOrdered(t *testing.T) {
	node, err := NewNode(1)
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[int64]struct{}, 10000)
	prev := int64(-1)
	for i := 0; i < 10000; i++ {
		id := node.Generate()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = struct{}{}
		if id <= prev {
			t.Fatalf("id %d not greater than previous %d", id, prev)
		}
		prev = id
	}
}

func TestNodeRange(t *testing.T) {
	if _, err := NewNode(-1); err == nil {
		t.Error("negative node accepted")
	}
	if _, err := NewNode(1024); err == nil {
		t.Error("node above max accepted")
	}
}

func TestTimeExtraction(t *testing.T) {
	node, _ := NewNode(1)
	before := time.Now().Add(-time.Second)
	id := node.Generate()
	ts := Time(id)
	if ts.Before(before) || ts.After(time.Now().Add(time.Second)) {
		t.Errorf("extracted time %v outside expected window", ts)
	}
}
