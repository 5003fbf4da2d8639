package errors

import (
	"fmt"
	"testing"
)

func TestBuildDefaults(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("test error")
	ee := New(err).Build()

	if ee.Err.Error() != "test error" {
		t.Errorf("Expected error message 'test error', got '%s'", ee.Err.Error())
	}

	if ee.Category != CategoryGeneric {
		t.Errorf("Expected category 'generic', got '%s'", ee.Category)
	}
}

func TestCategoryDetectionFromMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg  string
		want ErrorCategory
	}{
		{"hdf5 dataset has wrong rank", CategoryHDF5},
		{"mask dimensions do not match map", CategoryMask},
		{"fit window is empty", CategoryFitting},
		{"run 42 not found", CategoryNotFound},
		{"invalid chunk size", CategoryValidation},
		{"failed to open file", CategoryFileIO},
		{"something else entirely", CategoryGeneric},
	}

	for _, tt := range tests {
		ee := Newf("%s", tt.msg).Build()
		if ee.Category != tt.want {
			t.Errorf("message %q: expected category %q, got %q", tt.msg, tt.want, ee.Category)
		}
	}
}

func TestExplicitCategoryWins(t *testing.T) {
	t.Parallel()

	ee := Newf("failed to open file").Category(CategoryScanFile).Build()
	if ee.Category != CategoryScanFile {
		t.Errorf("expected explicit category to win, got %q", ee.Category)
	}
}

func TestContextIsCopied(t *testing.T) {
	t.Parallel()

	ee := Newf("boom").Context("run_id", 7).Build()

	ctx := ee.GetContext()
	ctx["run_id"] = 99

	if ee.GetContext()["run_id"] != 7 {
		t.Error("GetContext must return a copy, original was mutated")
	}
}

func TestScanContext(t *testing.T) {
	t.Parallel()

	ee := Newf("bad scan").ScanContext("/data/scan2D_1001.h5", "xrfmap/detsum/counts").Build()

	ctx := ee.GetContext()
	if ctx["file_extension"] != "h5" {
		t.Errorf("expected file_extension 'h5', got %v", ctx["file_extension"])
	}
	if ctx["dataset"] != "xrfmap/detsum/counts" {
		t.Errorf("expected dataset context, got %v", ctx["dataset"])
	}
}

func TestIsCategory(t *testing.T) {
	t.Parallel()

	inner := Newf("run 13 not found").Category(CategoryNotFound).Build()
	wrapped := fmt.Errorf("loading scan: %w", inner)

	if !IsCategory(wrapped, CategoryNotFound) {
		t.Error("IsCategory should see through wrapping")
	}
	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should see through wrapping")
	}
	if IsCategory(wrapped, CategoryMask) {
		t.Error("IsCategory matched the wrong category")
	}
}

func TestEnhancedErrorIs(t *testing.T) {
	t.Parallel()

	a := Newf("first").Category(CategoryCatalog).Build()
	b := Newf("second").Category(CategoryCatalog).Build()

	if !Is(a, b) {
		t.Error("errors with the same category should match via Is")
	}
}

func TestComponentRegistry(t *testing.T) {
	t.Parallel()

	RegisterComponent("errors_test_pattern", "test-component")
	got := lookupComponent("github.com/xrflab/xrfmap-go/internal/errors_test_pattern.doWork")
	if got != "test-component" {
		t.Errorf("expected registered component, got %q", got)
	}
}
