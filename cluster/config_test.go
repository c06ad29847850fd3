package cluster

import (
	"reflect"
	"testing"

	"github.com/gyuho/zab/zxid"
)

func TestQuorumSize(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{1, 1},
		{2, 2},
		{3, 2},
		{4, 3},
		{5, 3},
		{7, 4},
	}
	for _, tt := range tests {
		ids := make([]string, tt.n)
		for i := range ids {
			ids[i] = string(rune('a' + i))
		}
		c := New(zxid.NotExist, ids...)
		if got := c.QuorumSize(); got != tt.want {
			t.Errorf("QuorumSize() with %d members = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestContains(t *testing.T) {
	c := New(zxid.NotExist, "s1", "s2", "s3")
	if !c.Contains("s1") {
		t.Error("expected s1 to be a member")
	}
	if c.Contains("s4") {
		t.Error("expected s4 not to be a member")
	}
}

func TestWithAddedPeerDoesNotMutateOriginal(t *testing.T) {
	c := New(zxid.New(0, 1), "s1", "s2")
	nc := c.WithAddedPeer(zxid.New(0, 2), "s3")

	if c.Contains("s3") {
		t.Fatal("original configuration was mutated")
	}
	if !nc.Contains("s3") || nc.Size() != 3 {
		t.Fatalf("new configuration missing s3: %+v", nc)
	}
	if !nc.Version.Equal(zxid.New(0, 2)) {
		t.Fatalf("new configuration version = %v, want (0,2)", nc.Version)
	}
}

func TestWithRemovedPeerDoesNotMutateOriginal(t *testing.T) {
	c := New(zxid.New(0, 1), "s1", "s2", "s3")
	nc := c.WithRemovedPeer(zxid.New(0, 2), "s2")

	if !c.Contains("s2") {
		t.Fatal("original configuration was mutated")
	}
	if nc.Contains("s2") || nc.Size() != 2 {
		t.Fatalf("new configuration should not contain s2: %+v", nc)
	}
}

func TestIDsSorted(t *testing.T) {
	c := New(zxid.NotExist, "s3", "s1", "s2")
	got := c.IDs()
	want := []string{"s1", "s2", "s3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("IDs() = %v, want %v", got, want)
	}
}
