package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/weiihann/wasmbench/harness"
)

func echoModule(name string) *harness.Module {
	return harness.NewNativeModule(name, func(_, input string) (string, error) {
		return input, nil
	}, "parseJson")
}

func TestRegisterResolve(t *testing.T) {
	r := New()
	m := echoModule("go-parser")

	if err := r.Register("go-parser", m); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	first, err := r.Resolve("go-parser")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	second, err := r.Resolve("go-parser")
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}

	if first != m || second != m {
		t.Error("Resolve did not return the registered handle")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := New()
	original := echoModule("go-parser")

	if err := r.Register("go-parser", original); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	err := r.Register("go-parser", echoModule("go-parser"))

	var dupErr *DuplicateModuleError
	if !errors.As(err, &dupErr) {
		t.Fatalf("err = %v, want DuplicateModuleError", err)
	}
	if !errors.Is(err, ErrDuplicateModule) {
		t.Error("err does not match ErrDuplicateModule")
	}
	if dupErr.Name != "go-parser" {
		t.Errorf("name = %q, want go-parser", dupErr.Name)
	}

	got, err := r.Resolve("go-parser")
	if err != nil {
		t.Fatalf("Resolve after duplicate failed: %v", err)
	}
	if got != original {
		t.Error("duplicate registration replaced the original handle")
	}
}

func TestResolveUnknown(t *testing.T) {
	r := New()

	_, err := r.Resolve("missing")

	var unknownErr *UnknownModuleError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("err = %v, want UnknownModuleError", err)
	}
	if !errors.Is(err, ErrUnknownModule) {
		t.Error("err does not match ErrUnknownModule")
	}
	if errors.Is(err, harness.ErrCallFailed) {
		t.Error("unknown module must not look like a failed call")
	}
}

func TestRegisterRejectsInvalid(t *testing.T) {
	r := New()

	if err := r.Register("", echoModule("x")); err == nil {
		t.Error("expected error for empty name")
	}
	if err := r.Register("x", nil); err == nil {
		t.Error("expected error for nil module")
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}

func TestNamesAndModulesSorted(t *testing.T) {
	r := New()

	for _, name := range []string{"rust-parser", "go-native", "go-parser"} {
		if err := r.Register(name, echoModule(name)); err != nil {
			t.Fatalf("Register(%s) failed: %v", name, err)
		}
	}

	want := []string{"go-native", "go-parser", "rust-parser"}
	if got := r.Names(); !slices.Equal(got, want) {
		t.Errorf("Names = %v, want %v", got, want)
	}

	var got []string
	for _, m := range r.Modules() {
		got = append(got, m.Name())
	}
	if !slices.Equal(got, want) {
		t.Errorf("Modules = %v, want %v", got, want)
	}
}

func TestConcurrentAccess(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(2)

		go func() {
			defer wg.Done()
			name := fmt.Sprintf("m%d", i)
			_ = r.Register(name, echoModule(name))
		}()

		go func() {
			defer wg.Done()
			_, _ = r.Resolve(fmt.Sprintf("m%d", i))
			_ = r.Names()
		}()
	}

	wg.Wait()

	if r.Len() != 16 {
		t.Errorf("Len = %d, want 16", r.Len())
	}
}

func TestClose(t *testing.T) {
	r := New()
	_ = r.Register("go-native", echoModule("go-native"))

	if err := r.Close(context.Background()); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
