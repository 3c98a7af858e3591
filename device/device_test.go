// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package device

import (
	"testing"

	"github.com/blivet-go/blivet/format"
	"github.com/blivet-go/blivet/ops"
	"github.com/blivet-go/blivet/size"
)

func TestValidateNameRejectsBadNames(t *testing.T) {
	cases := []string{"", ".", "..", "a/b", "-leading", " leading"}
	for _, c := range cases {
		if err := ValidateName(c); err == nil {
			t.Fatalf("expected %q to be rejected", c)
		}
	}
	if err := ValidateName("sda1"); err != nil {
		t.Fatalf("expected sda1 to be valid: %v", err)
	}
}

func TestParentChildReverseEdgesStayConsistent(t *testing.T) {
	disk, err := NewDisk("sda")
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	part, err := NewPartition("sda1", disk, &ops.FakeDiskLabel{})
	if err != nil {
		t.Fatalf("NewPartition: %v", err)
	}

	if len(disk.Children()) != 1 || disk.Children()[0] != Device(part) {
		t.Fatalf("expected disk to have partition as child, got %v", disk.Children())
	}

	if err := part.RemoveParent(disk); err != nil {
		t.Fatalf("RemoveParent: %v", err)
	}
	if len(disk.Children()) != 0 {
		t.Fatal("expected reverse edge removed after RemoveParent")
	}
}

func TestPartitionCannotHaveTwoDiskParents(t *testing.T) {
	disk1, _ := NewDisk("sda")
	disk2, _ := NewDisk("sdb")
	part, err := NewPartition("sda1", disk1, &ops.FakeDiskLabel{})
	if err != nil {
		t.Fatalf("NewPartition: %v", err)
	}
	if err := part.AddParent(disk2); err == nil {
		t.Fatal("expected adding a second disk parent to fail")
	}
}

func TestProtectedImpliesNotControllable(t *testing.T) {
	disk, _ := NewDisk("sda")
	disk.SetProtected(true)
	if disk.Controllable() {
		t.Fatal("expected protected device to be non-controllable")
	}
	disk.SetControllable(true)
	if disk.Controllable() {
		t.Fatal("expected SetControllable(true) to be refused while protected")
	}
}

func TestSetFormatRefusesExistingFormatOnNonexistentDevice(t *testing.T) {
	part, _ := NewPartition("sda1", nil, &ops.FakeDiskLabel{})
	fs := format.NewFilesystem("/dev/sda1", "ext4", &ops.FakeFs{})
	fs.SetExists(true)

	if err := part.SetFormat(fs); err == nil {
		t.Fatal("expected attaching an existing format to a nonexistent device to fail")
	}
}

func TestMDRaidArrayDeviceSpares(t *testing.T) {
	md, err := NewMDRaidArrayDevice("md0", MDLevel1, &ops.FakeMd{})
	if err != nil {
		t.Fatalf("NewMDRaidArrayDevice: %v", err)
	}
	for _, name := range []string{"sda1", "sdb1", "sdc1"} {
		disk, _ := NewDisk(name)
		if err := md.AddParent(disk); err != nil {
			t.Fatalf("AddParent %s: %v", name, err)
		}
	}
	if got := md.Spares(); got != 1 {
		t.Fatalf("expected 1 spare for raid1 with 3 members, got %d", got)
	}
}

func TestMDRaidArrayDeviceRejectsTooFewMembersOnRemove(t *testing.T) {
	md, _ := NewMDRaidArrayDevice("md0", MDLevel5, &ops.FakeMd{})
	d1, _ := NewDisk("sda1")
	d2, _ := NewDisk("sdb1")
	d3, _ := NewDisk("sdc1")
	for _, d := range []Device{d1, d2, d3} {
		if err := md.AddParent(d); err != nil {
			t.Fatalf("AddParent: %v", err)
		}
	}
	if err := md.RemoveParent(d1); err == nil {
		t.Fatal("expected removing a member below raid5's minimum to fail")
	}
}

func TestLVMVolumeGroupExtentAccounting(t *testing.T) {
	pv1, _ := NewDisk("sda1")
	pv1.SetSize(1000 * size.M)
	pv1.SetFormat(format.NewLVMPhysicalVolume("/dev/sda1", &ops.FakeLvm{}))

	vg, err := NewLVMVolumeGroupDevice("vg0", 4*size.M, &ops.FakeLvm{})
	if err != nil {
		t.Fatalf("NewLVMVolumeGroupDevice: %v", err)
	}
	if err := vg.AddParent(pv1); err != nil {
		t.Fatalf("AddParent: %v", err)
	}

	if got := vg.PECount(); got != 250 {
		t.Fatalf("expected 250 extents from 1000M/4M, got %d", got)
	}

	lv, err := NewLVMLogicalVolumeDevice("root", vg, SegLinear, &ops.FakeLvm{})
	if err != nil {
		t.Fatalf("NewLVMLogicalVolumeDevice: %v", err)
	}
	lv.SetSize(400 * size.M)

	if got := vg.PEFree(); got != 150 {
		t.Fatalf("expected 150 extents free after a 400M LV, got %d", got)
	}
	if lv.MapName() != "vg0-root" {
		t.Fatalf("expected map name vg0-root, got %s", lv.MapName())
	}
}

func TestLVMLogicalVolumeInternalNames(t *testing.T) {
	vg, _ := NewLVMVolumeGroupDevice("vg0", 4*size.M, &ops.FakeLvm{})
	lv, _ := NewLVMLogicalVolumeDevice("pool_tdata", vg, SegThinPool, &ops.FakeLvm{})
	if !lv.Internal() {
		t.Fatal("expected pool_tdata to be recognized as an internal LV")
	}
}

func TestBTRFSVolumeRequiresMatchingVolUUID(t *testing.T) {
	vol, err := NewBTRFSVolumeDevice("btrfs-vol", "aaaa")
	if err != nil {
		t.Fatalf("NewBTRFSVolumeDevice: %v", err)
	}

	disk, _ := NewDisk("sda1")
	disk.SetFormat(format.NewBTRFSMember("/dev/sda1", "sub1", "bbbb"))

	if err := vol.AddParent(disk); err == nil {
		t.Fatal("expected mismatched volume UUID to be rejected")
	}
}

func TestBTRFSSnapshotRequiresExistingSourceInSameVolume(t *testing.T) {
	vol, _ := NewBTRFSVolumeDevice("btrfs-vol", "aaaa")
	disk, _ := NewDisk("sda1")
	disk.SetFormat(format.NewBTRFSMember("/dev/sda1", "sub1", "aaaa"))
	if err := vol.AddParent(disk); err != nil {
		t.Fatalf("AddParent: %v", err)
	}

	sub, err := NewBTRFSSubVolumeDevice("@home", vol, "@home")
	if err != nil {
		t.Fatalf("NewBTRFSSubVolumeDevice: %v", err)
	}

	if _, err := NewBTRFSSnapShotDevice("@home_snap", vol, sub, "@snap"); err == nil {
		t.Fatal("expected snapshot of a not-yet-existing source to fail")
	}

	sub.SetExists(true)
	snap, err := NewBTRFSSnapShotDevice("@home_snap", vol, sub, "@snap")
	if err != nil {
		t.Fatalf("NewBTRFSSnapShotDevice: %v", err)
	}
	if len(vol.Subvolumes()) != 2 {
		t.Fatalf("expected volume to track both subvolume and snapshot, got %d", len(vol.Subvolumes()))
	}
	if snap.Source != Device(sub) {
		t.Fatal("expected snapshot source to be recorded")
	}
}

func TestPartitionWeight(t *testing.T) {
	part, _ := NewPartition("sda1", nil, &ops.FakeDiskLabel{})
	if w := part.Weight(fakePlatform{}, "", "/"); w != 0 {
		t.Fatalf("expected root mountpoint weight 0 on non-arm, got %d", w)
	}
	if w := part.Weight(fakePlatform{arm: true}, "", "/"); w != -100 {
		t.Fatalf("expected root mountpoint weight -100 on arm, got %d", w)
	}
	if w := part.Weight(fakePlatform{x86: true}, "biosboot", ""); w != 5000 {
		t.Fatalf("expected biosboot weight 5000 on x86, got %d", w)
	}
}

type fakePlatform struct {
	arm, x86, efi, ppc, ipseries, pmac bool
}

func (f fakePlatform) IsArm() bool      { return f.arm }
func (f fakePlatform) IsX86() bool      { return f.x86 }
func (f fakePlatform) IsEFI() bool      { return f.efi }
func (f fakePlatform) IsPPC() bool      { return f.ppc }
func (f fakePlatform) IsIPSeries() bool { return f.ipseries }
func (f fakePlatform) IsPMac() bool     { return f.pmac }
