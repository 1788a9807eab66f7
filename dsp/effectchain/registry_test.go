package effectchain

import (
	"errors"
	"testing"

	"github.com/cwbudde/algo-fxrack/dsp/core"
)

func dummyFactory(_ Context) (Module, error) {
	return &stubModule{typ: "chorus", gain: 1}, nil
}

func TestRegistryRegister(t *testing.T) {
	t.Parallel()

	t.Run("registers and looks up factory", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()

		err := r.Register("chorus", dummyFactory)
		if err != nil {
			t.Fatalf("Register returned unexpected error: %v", err)
		}

		f := r.Lookup("chorus")
		if f == nil {
			t.Fatal("Lookup returned nil for registered type")
		}
	})

	t.Run("rejects empty module type", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()

		err := r.Register("", dummyFactory)
		if err == nil {
			t.Fatal("expected error for empty module type")
		}
	})

	t.Run("rejects nil factory", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()

		err := r.Register("chorus", nil)
		if err == nil {
			t.Fatal("expected error for nil factory")
		}
	})

	t.Run("rejects duplicate registration", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		_ = r.Register("chorus", dummyFactory)

		err := r.Register("chorus", dummyFactory)
		if err == nil {
			t.Fatal("expected error for duplicate registration")
		}

		if !errors.Is(err, errDuplicateModule) {
			t.Errorf("expected errDuplicateModule, got: %v", err)
		}
	})
}

func TestRegistryLookup(t *testing.T) {
	t.Parallel()

	t.Run("returns nil for unknown type", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()

		if f := r.Lookup("nonexistent"); f != nil {
			t.Fatal("expected nil for unknown type")
		}
	})

	t.Run("returns nil for empty string", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()

		if f := r.Lookup(""); f != nil {
			t.Fatal("expected nil for empty string")
		}
	})
}

func TestRegistryMustRegister(t *testing.T) {
	t.Parallel()

	t.Run("succeeds for valid registration", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		r.MustRegister("chorus", dummyFactory)

		if r.Lookup("chorus") == nil {
			t.Fatal("expected factory after MustRegister")
		}
	})

	t.Run("panics on duplicate", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		r.MustRegister("chorus", dummyFactory)

		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic on duplicate MustRegister")
			}
		}()

		r.MustRegister("chorus", dummyFactory)
	})
}

func TestRegistryBuild(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.MustRegister("broken", failingFactory)

	if _, err := r.Build("missing", Context{}); !errors.Is(err, ErrUnknownModule) {
		t.Fatalf("Build(missing) error = %v, want ErrUnknownModule", err)
	}
	if _, err := r.Build("broken", Context{}); err == nil {
		t.Fatal("expected factory error to propagate")
	}
}

func TestDefaultRegistryBuildsEveryType(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()
	ctx := Context{Spec: core.DefaultStreamSpec(), Logger: quietLogger()}

	for _, typ := range ModuleTypes {
		t.Run(string(typ), func(t *testing.T) {
			t.Parallel()

			m, err := r.Build(typ, ctx)
			if err != nil {
				t.Fatalf("Build(%s): %v", typ, err)
			}
			if m.Type() != typ {
				t.Fatalf("Type() = %s, want %s", m.Type(), typ)
			}
			if len(m.UsedParameters()) == 0 {
				t.Fatal("module reports no used parameters")
			}
			if err := m.Prepare(ctx.Spec); err != nil {
				t.Fatalf("Prepare: %v", err)
			}
			closeModule(quietLogger(), "test", m)
		})
	}
}

func TestParseModuleType(t *testing.T) {
	t.Parallel()

	for _, typ := range ModuleTypes {
		got, err := ParseModuleType(string(typ))
		if err != nil || got != typ {
			t.Fatalf("ParseModuleType(%q) = (%q, %v), want (%q, nil)", typ, got, err, typ)
		}
	}
	if _, err := ParseModuleType("Chorus"); !errors.Is(err, ErrUnknownModule) {
		t.Fatalf("ParseModuleType(Chorus) error = %v, want ErrUnknownModule", err)
	}
}
