// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func testErrorf(t *testing.T) {
	err := Errorf("traceable error")

	e, ok := err.(TraceableError)
	if !ok {
		t.Fatal("Errorf() should return a TraceableError")
	}

	if e.Trace == "" {
		t.Fatal("Traceable error should contain trace info")
	}

	if !strings.Contains(e.Error(), e.Trace) || !strings.Contains(e.Error(), e.What) {
		t.Fatal("Error() should return the content of Trace and What member")
	}
}

func TestErrorf(t *testing.T) {
	testErrorf(t)
}

func TestWrapp(t *testing.T) {
	err := Wrap(fmt.Errorf("wrapper error"))

	e, ok := err.(TraceableError)
	if !ok {
		t.Fatal("Wrap() should return a TraceableError")
	}

	if e.Trace == "" {
		t.Fatal("Traceable error should contain trace info")
	}

	if !strings.Contains(e.Error(), e.Trace) || !strings.Contains(e.Error(), e.What) {
		t.Fatal("Error() should return the content of Trace and What member")
	}
}

func TestValidationError(t *testing.T) {
	msg := "Validation error"
	ve := ValidationErrorf(msg)

	if ve.Error() != msg {
		t.Fatal("Wrong validation error message")
	}

	if !IsValidationError(ve) {
		t.Fatal("IsValidationError() should report true")
	}

	te := Errorf("A traceable error")
	if IsValidationError(te) {
		t.Fatal("IsValidationError() should return false for a TraceableError")
	}
}

func TestTaggedErrorsWrapAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("mdadm: device or resource busy")

	err := NewMDRaidError(cause, "failed to stop %s", "/dev/md127")

	var mdErr *MDRaidError
	if !asMDRaidError(err, &mdErr) {
		t.Fatal("expected err to be an *MDRaidError")
	}

	if mdErr.Unwrap() != cause {
		t.Fatal("Unwrap() should return the original cause")
	}

	if !strings.Contains(err.Error(), "MDRaidError") || !strings.Contains(err.Error(), "/dev/md127") {
		t.Fatalf("unexpected error text: %s", err.Error())
	}
}

func asMDRaidError(err error, target **MDRaidError) bool {
	if e, ok := err.(*MDRaidError); ok {
		*target = e
		return true
	}
	return false
}

func TestNoSlavesErrorIsDeviceTreeFamily(t *testing.T) {
	err := NewNoSlavesError("array %s has no usable members", "md127")
	if err.Error() == "" {
		t.Fatal("expected a non-empty message")
	}

	var dte *DeviceTreeError
	if !stderrors.As(err, &dte) {
		t.Fatal("a NoSlavesError should match a *DeviceTreeError target")
	}
}
