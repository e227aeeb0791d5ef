package tabs

import (
	"errors"
	"testing"

	"github.com/vantagebrowser/tabengine/internal/shared/types"
)

func TestCreateAndAssignGroup(t *testing.T) {
	s := newStore()

	group := s.CreateGroup("research", "purple")
	tab := open(t, s, "https://a.example")

	if err := s.AssignToGroup(tab.ID, group.ID); err != nil {
		t.Fatalf("AssignToGroup failed: %v", err)
	}

	got, _ := s.Get(tab.ID)
	if got.GroupID != group.ID {
		t.Errorf("Expected tab in group %s, got %q", group.ID, got.GroupID)
	}

	if err := s.AssignToGroup(tab.ID, ""); err != nil {
		t.Fatalf("Clearing group failed: %v", err)
	}
	got, _ = s.Get(tab.ID)
	if got.GroupID != "" {
		t.Error("Expected group assignment cleared")
	}
}

func TestAssignUnknownGroup(t *testing.T) {
	s := newStore()
	tab := open(t, s, "https://a.example")

	if err := s.AssignToGroup(tab.ID, "ghost"); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("Expected ErrGroupNotFound, got %v", err)
	}
}

func TestCreateIntoGroup(t *testing.T) {
	s := newStore()
	group := s.CreateGroup("news", "red")

	tab, err := s.Create(types.CreateTabRequest{URL: "https://a.example", GroupID: group.ID})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if tab.GroupID != group.ID {
		t.Errorf("Expected tab created in group, got %q", tab.GroupID)
	}

	if _, err := s.Create(types.CreateTabRequest{URL: "https://b.example", GroupID: "ghost"}); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("Expected ErrGroupNotFound for unknown group, got %v", err)
	}
}

func TestCollapseGroup(t *testing.T) {
	s := newStore()
	group := s.CreateGroup("docs", "green")

	if err := s.CollapseGroup(group.ID, true); err != nil {
		t.Fatalf("CollapseGroup failed: %v", err)
	}

	groups := s.ListGroups()
	if len(groups) != 1 || !groups[0].Collapsed {
		t.Error("Expected group to be collapsed")
	}
}

func TestCloseGroupSparesPinned(t *testing.T) {
	s := newStore()
	group := s.CreateGroup("work", "blue")

	pinned, err := s.Create(types.CreateTabRequest{URL: "https://keep.example", Pinned: true, GroupID: group.ID})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := s.Create(types.CreateTabRequest{URL: "https://go.example", GroupID: group.ID}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	closed, err := s.CloseGroup(group.ID)
	if err != nil {
		t.Fatalf("CloseGroup failed: %v", err)
	}
	if closed != 2 {
		t.Errorf("Expected 2 tabs closed, got %d", closed)
	}

	if _, ok := s.Get(pinned.ID); !ok {
		t.Error("Expected pinned member to survive")
	}
	if len(s.ListGroups()) != 1 {
		t.Error("Expected group kept while a member remains")
	}
}

func TestCloseGroupRemovesEmptyGroup(t *testing.T) {
	s := newStore()
	group := s.CreateGroup("temp", "gray")

	if _, err := s.Create(types.CreateTabRequest{URL: "https://a.example", GroupID: group.ID}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := s.CloseGroup(group.ID); err != nil {
		t.Fatalf("CloseGroup failed: %v", err)
	}
	if len(s.ListGroups()) != 0 {
		t.Error("Expected empty group to be removed")
	}
}

func TestCloseGroupReelectsOnce(t *testing.T) {
	s := newStore()
	group := s.CreateGroup("batch", "orange")

	outside := open(t, s, "https://outside.example")
	for i := 0; i < 3; i++ {
		if _, err := s.Create(types.CreateTabRequest{URL: "https://member.example", GroupID: group.ID}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	// Last created member is active, closing the group must hand the
	// active slot to a survivor
	if _, err := s.CloseGroup(group.ID); err != nil {
		t.Fatalf("CloseGroup failed: %v", err)
	}

	active, ok := s.Active()
	if !ok {
		t.Fatal("Expected an active tab after group close")
	}
	if active.ID != outside.ID {
		t.Errorf("Expected the outside tab to take over, got %s", active.ID)
	}
}
