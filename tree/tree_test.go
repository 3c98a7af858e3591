// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package tree

import (
	"testing"

	"github.com/blivet-go/blivet/device"
	"github.com/blivet-go/blivet/ops"
)

func TestAddAndLookupDevice(t *testing.T) {
	tr := New()
	disk, err := device.NewDisk("sda")
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	disk.SetUUID("11111111-1111-1111-1111-111111111111")
	disk.SetSysfsPath("/sys/block/sda")

	if err := tr.AddDevice(disk); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}

	if tr.GetDeviceByName("sda", false) != device.Device(disk) {
		t.Fatal("expected lookup by name to find disk")
	}
	if tr.GetDeviceByUUID("11111111-1111-1111-1111-111111111111", false, true) != device.Device(disk) {
		t.Fatal("expected lookup by uuid to find disk")
	}
	if tr.GetDeviceBySysfsPath("/sys/block/sda", false) != device.Device(disk) {
		t.Fatal("expected lookup by sysfs path to find disk")
	}
}

func TestHideMakesDeviceInvisibleUnlessAskedFor(t *testing.T) {
	tr := New()
	disk, _ := device.NewDisk("sdb")
	if err := tr.AddDevice(disk); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}

	if err := tr.Hide(disk); err != nil {
		t.Fatalf("Hide: %v", err)
	}
	if tr.GetDeviceByName("sdb", false) != nil {
		t.Fatal("expected hidden device invisible when hidden=false")
	}
	if tr.GetDeviceByName("sdb", true) == nil {
		t.Fatal("expected hidden device visible when hidden=true")
	}

	if err := tr.Unhide(disk); err != nil {
		t.Fatalf("Unhide: %v", err)
	}
	if tr.GetDeviceByName("sdb", false) == nil {
		t.Fatal("expected device visible again after Unhide")
	}
}

func TestRemoveDeviceRequiresNoChildren(t *testing.T) {
	tr := New()
	disk, _ := device.NewDisk("sdc")
	part, _ := device.NewPartition("sdc1", disk, &ops.FakeDiskLabel{})
	if err := tr.AddDevice(disk); err != nil {
		t.Fatalf("AddDevice disk: %v", err)
	}
	if err := tr.AddDevice(part); err != nil {
		t.Fatalf("AddDevice part: %v", err)
	}

	if err := tr.RemoveDevice(disk); err == nil {
		t.Fatal("expected RemoveDevice to refuse a device with children")
	}

	if err := part.RemoveParent(disk); err != nil {
		t.Fatalf("RemoveParent: %v", err)
	}
	if err := tr.RemoveDevice(disk); err != nil {
		t.Fatalf("RemoveDevice after children cleared: %v", err)
	}
}

func TestGetChildrenTransitiveClosure(t *testing.T) {
	tr := New()
	disk, _ := device.NewDisk("sdd")
	part, _ := device.NewPartition("sdd1", disk, &ops.FakeDiskLabel{})
	part.SetExists(true)

	if err := tr.AddDevice(disk); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	if err := tr.AddDevice(part); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}

	children := tr.GetChildren(disk)
	if len(children) != 1 || children[0] != device.Device(part) {
		t.Fatalf("expected disk's only child to be the partition, got %v", children)
	}
}

func TestRecursiveRemoveDirectDestroysLeavesFirst(t *testing.T) {
	tr := New()
	disk, _ := device.NewDisk("sde")
	part, _ := device.NewPartition("sde1", disk, &ops.FakeDiskLabel{})
	part.SetExists(true)

	if err := tr.AddDevice(disk); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	if err := tr.AddDevice(part); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}

	if err := tr.RecursiveRemove(disk, false, true); err != nil {
		t.Fatalf("RecursiveRemove: %v", err)
	}
	if tr.GetDeviceByName("sde", true) != nil || tr.GetDeviceByName("sde1", true) != nil {
		t.Fatal("expected both disk and partition removed from the tree")
	}
}

func TestRecursiveRemoveRefusesProtectedDevice(t *testing.T) {
	tr := New()
	disk, _ := device.NewDisk("sdf")
	disk.SetProtected(true)
	if err := tr.AddDevice(disk); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	if err := tr.RecursiveRemove(disk, false, true); err == nil {
		t.Fatal("expected RecursiveRemove to refuse a protected device")
	}
}
