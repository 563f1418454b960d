package models

import (
	"errors"
	"testing"

	"github.com/kmatsu/odelab/internal/ode"
)

func TestRegistryGet(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"decay", "oscillator", "fitzhugh", "pendulum"} {
		m, err := r.Get(name)
		if err != nil {
			t.Errorf("Get(%s) failed: %v", name, err)
			continue
		}
		if m.Vars().Len() == 0 {
			t.Errorf("%s declares no variables", name)
		}
	}
}

func TestRegistryUnknown(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("lorenz"); !errors.Is(err, ode.ErrUnknownModel) {
		t.Errorf("expected ErrUnknownModel, got %v", err)
	}
}

func TestRegistryFreshInstances(t *testing.T) {
	r := NewRegistry()
	a, _ := r.Get("decay")
	b, _ := r.Get("decay")
	if a == b {
		t.Error("expected distinct instances per Get")
	}
	a.(ode.Configurable).SetParam("tau", 9)
	if b.(ode.Configurable).Params()["tau"] == 9 {
		t.Error("instances share state")
	}
}

func TestRegistryList(t *testing.T) {
	names := NewRegistry().List()
	if len(names) != 4 {
		t.Fatalf("expected 4 models, got %v", names)
	}
	if names[0] != "decay" {
		t.Errorf("expected sorted list starting with decay, got %v", names)
	}
}
