package store

import (
	"testing"

	"github.com/swilhoit/wrapstudio/panel"
)

func TestDispatchUpdatePanel(t *testing.T) {
	set, err := panel.NewSet()
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	s := New(set)

	var notified []panel.Name
	s.Subscribe(func(name panel.Name, p panel.Panel) {
		notified = append(notified, name)
	})

	err = s.Dispatch(Action{
		Type:  UpdatePanel,
		Panel: panel.Front,
		Patch: panel.Patch{BackgroundImage: &panel.Layer{URI: "img://a"}},
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(notified) != 1 || notified[0] != panel.Front {
		t.Fatalf("notified = %v, want [FRONT]", notified)
	}
	p, _ := set.Get(panel.Front)
	if p.BackgroundImage == nil || p.BackgroundImage.URI != "img://a" {
		t.Fatalf("panel not updated: %+v", p.BackgroundImage)
	}
}

func TestDispatchNotifiesSlaveOnLinkedEdit(t *testing.T) {
	set, err := panel.NewSet()
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	set.SetLinked(true)
	s := New(set)

	var notified []panel.Name
	s.Subscribe(func(name panel.Name, p panel.Panel) {
		notified = append(notified, name)
	})

	err = s.Dispatch(Action{
		Type:  UpdatePanel,
		Panel: panel.Right,
		Patch: panel.Patch{BackgroundImage: &panel.Layer{URI: "img://b"}},
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(notified) != 2 || notified[0] != panel.Right || notified[1] != panel.Left {
		t.Fatalf("notified = %v, want [RIGHT LEFT]", notified)
	}
}

func TestDispatchSetPanelStates(t *testing.T) {
	set, err := panel.NewSet()
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	s := New(set)

	count := 0
	s.Subscribe(func(name panel.Name, p panel.Panel) { count++ })

	panels := set.Snapshot()
	for name, p := range panels {
		p.BackgroundColor = "#010203"
		panels[name] = p
	}
	if err := s.Dispatch(Action{Type: SetPanelStates, Panels: panels}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if count != 6 {
		t.Fatalf("expected 6 notifications, got %d", count)
	}
	for _, name := range panel.Order() {
		p, _ := set.Get(name)
		if p.BackgroundColor != "#010203" {
			t.Fatalf("%s not replaced", name)
		}
	}
}

func TestDispatchUnknownAction(t *testing.T) {
	set, _ := panel.NewSet()
	if err := New(set).Dispatch(Action{Type: "NOPE"}); err == nil {
		t.Fatalf("unknown action should error")
	}
}
