// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package platform

import "testing"

func TestArchPredicates(t *testing.T) {
	amd64 := NewForArch("amd64", true)
	if !amd64.IsX86() || amd64.IsArm() || amd64.IsPPC() {
		t.Fatalf("expected amd64 to be x86 only")
	}
	if !amd64.IsEFI() {
		t.Fatal("expected EFI forced true to report true")
	}

	arm := NewForArch("arm64", false)
	if !arm.IsArm() || arm.IsEFI() {
		t.Fatal("expected arm64 with efiPresent=false to be arm, non-EFI")
	}

	ppc := NewForArch("ppc64le", true)
	if !ppc.IsPPC() || !ppc.IsIPSeries() || ppc.IsPMac() {
		t.Fatal("expected ppc64le to be an IBM POWER (IPSeries) system")
	}

	pmac := NewForArch("ppc64-pmac", true)
	if !pmac.IsPPC() || pmac.IsIPSeries() || !pmac.IsPMac() {
		t.Fatal("expected ppc64-pmac to be a PowerMac system")
	}
}

func TestEFIDirExists(t *testing.T) {
	if efiDirExists("/nonexistent/path/does/not/exist") {
		t.Fatal("expected a nonexistent path to report false")
	}
	if !efiDirExists("/") {
		t.Fatal("expected / to exist")
	}
}
