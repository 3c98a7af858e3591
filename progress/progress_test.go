// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package progress

import (
	"testing"
	"time"
)

type fakeClient struct {
	descs     []string
	partials  [][2]int
	steps     int
	succeeded bool
	failed    bool
}

func (f *fakeClient) Desc(printPrefix, desc string) { f.descs = append(f.descs, printPrefix+desc) }
func (f *fakeClient) Partial(total int, step int)   { f.partials = append(f.partials, [2]int{total, step}) }
func (f *fakeClient) Step()                         { f.steps++ }
func (f *fakeClient) Success()                      { f.succeeded = true }
func (f *fakeClient) Failure()                      { f.failed = true }
func (f *fakeClient) LoopWaitDuration() time.Duration {
	return time.Millisecond
}

func TestMultiStepReportsPartialProgress(t *testing.T) {
	fc := &fakeClient{}
	Set(fc)

	prg := MultiStep(3, "scanning: ", "disk %s", "sda")
	prg.Partial(1)
	prg.Partial(2)
	prg.Success()

	if len(fc.descs) != 1 || fc.descs[0] != "scanning: disk sda" {
		t.Fatalf("unexpected descs: %v", fc.descs)
	}
	if len(fc.partials) != 2 {
		t.Fatalf("expected 2 partial reports, got %d", len(fc.partials))
	}
	if !fc.succeeded {
		t.Fatal("expected Success to be reported")
	}
}

func TestMultiStepWithoutClientPanics(t *testing.T) {
	Set(nil)

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected MultiStep to panic without a configured client")
		}
	}()

	MultiStep(1, "", "x")
}

func TestLoopStepsUntilDone(t *testing.T) {
	fc := &fakeClient{}
	Set(fc)

	prg := NewLoop("settling udev")
	time.Sleep(5 * time.Millisecond)
	prg.Success()

	if fc.steps == 0 {
		t.Fatal("expected at least one Step before Success")
	}
	if !fc.succeeded {
		t.Fatal("expected Success to be reported")
	}
}
