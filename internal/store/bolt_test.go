package store

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewBoltStore(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetNode(t *testing.T) {
	s := newTestStore(t)

	node := &NodeRecord{
		HomeID:           0x014D0EF5,
		NodeID:           2,
		Name:             "Hall Switch",
		Location:         "Hall",
		ProductName:      "Smart Switch 6",
		ManufacturerName: "Aeotec",
		CommandClasses:   []int{0x20, 0x25, 0x32},
		Ready:            true,
		FirstSeen:        time.Now().Truncate(time.Millisecond),
		LastSeen:         time.Now().Truncate(time.Millisecond),
	}

	if err := s.SaveNode(node); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetNode(node.HomeID, node.NodeID)
	if err != nil {
		t.Fatal(err)
	}

	if got.Name != node.Name {
		t.Errorf("name = %q, want %q", got.Name, node.Name)
	}
	if got.Location != node.Location {
		t.Errorf("location = %q, want %q", got.Location, node.Location)
	}
	if got.ManufacturerName != node.ManufacturerName {
		t.Errorf("manufacturer = %q, want %q", got.ManufacturerName, node.ManufacturerName)
	}
	if !got.Ready {
		t.Error("ready = false, want true")
	}
	if !slices.Equal(got.CommandClasses, node.CommandClasses) {
		t.Errorf("command classes = %v, want %v", got.CommandClasses, node.CommandClasses)
	}
	if !got.FirstSeen.Equal(node.FirstSeen) {
		t.Errorf("first seen = %v, want %v", got.FirstSeen, node.FirstSeen)
	}
}

func TestNodeKeyIsPerNetwork(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveNode(&NodeRecord{HomeID: 1, NodeID: 5, Name: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveNode(&NodeRecord{HomeID: 2, NodeID: 5, Name: "b"}); err != nil {
		t.Fatal(err)
	}

	a, err := s.GetNode(1, 5)
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.GetNode(2, 5)
	if err != nil {
		t.Fatal(err)
	}
	if a.Name != "a" || b.Name != "b" {
		t.Errorf("names = %q, %q, want a, b", a.Name, b.Name)
	}
	if got := NodeKey(0x014D0EF5, 7); got != "014D0EF5-007" {
		t.Errorf("key = %q", got)
	}
}

func TestDeleteNode(t *testing.T) {
	s := newTestStore(t)

	node := &NodeRecord{HomeID: 1, NodeID: 3}
	if err := s.SaveNode(node); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteNode(1, 3); err != nil {
		t.Fatal(err)
	}

	_, err := s.GetNode(1, 3)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListNodes(t *testing.T) {
	s := newTestStore(t)

	for _, id := range []uint8{1, 2, 3} {
		if err := s.SaveNode(&NodeRecord{HomeID: 7, NodeID: id}); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.ListNodes()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("list count = %d, want 3", len(list))
	}
	// Keys sort by node within a network.
	for i, n := range list {
		if n.NodeID != uint8(i+1) {
			t.Errorf("list[%d].NodeID = %d", i, n.NodeID)
		}
	}
}

func TestUpdateNode(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveNode(&NodeRecord{HomeID: 1, NodeID: 4, Name: "old"}); err != nil {
		t.Fatal(err)
	}

	err := s.UpdateNode(1, 4, func(n *NodeRecord) error {
		n.Name = "new"
		n.NodeID = 99 // ignored
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.GetNode(1, 4)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "new" || got.NodeID != 4 {
		t.Errorf("got %+v", got)
	}
	if _, err := s.GetNode(1, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("record moved: %v", err)
	}
}

func TestUpdateNodeNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateNode(1, 9, func(n *NodeRecord) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateNodeCallbackError(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveNode(&NodeRecord{HomeID: 1, NodeID: 4, Name: "keep"}); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	err := s.UpdateNode(1, 4, func(n *NodeRecord) error {
		n.Name = "lost"
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	got, _ := s.GetNode(1, 4)
	if got.Name != "keep" {
		t.Errorf("name = %q, want keep", got.Name)
	}
}

func TestGetNodeNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetNode(1, 200)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestSaveAndGetNetworkState(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.GetNetworkState(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty store err = %v, want ErrNotFound", err)
	}

	state := &NetworkState{
		HomeID:           0x014D0EF5,
		ControllerNodeID: 1,
		Device:           "/dev/ttyACM0",
		LibraryVersion:   "Z-Wave 4.05",
		StartedAt:        time.Now().Truncate(time.Millisecond),
	}

	if err := s.SaveNetworkState(state); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetNetworkState()
	if err != nil {
		t.Fatal(err)
	}

	if got.HomeID != state.HomeID {
		t.Errorf("home_id = 0x%08X, want 0x%08X", got.HomeID, state.HomeID)
	}
	if got.ControllerNodeID != state.ControllerNodeID {
		t.Errorf("controller = %d, want %d", got.ControllerNodeID, state.ControllerNodeID)
	}
	if got.Device != state.Device {
		t.Errorf("device = %q, want %q", got.Device, state.Device)
	}
	if !got.StartedAt.Equal(state.StartedAt) {
		t.Errorf("started_at = %v, want %v", got.StartedAt, state.StartedAt)
	}
}
