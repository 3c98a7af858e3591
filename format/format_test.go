// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package format

import (
	"testing"

	"github.com/blivet-go/blivet/ops"
	"github.com/blivet-go/blivet/size"
)

func TestNoneFormatIsInert(t *testing.T) {
	n := NewNone()
	if n.Type() != "" {
		t.Fatalf("expected empty type, got %q", n.Type())
	}
	if n.Mountable() || n.Resizable() {
		t.Fatal("expected none format to be neither mountable nor resizable")
	}
	if !n.Supported() {
		t.Fatal("expected none format to be supported")
	}
}

func TestDiskLabelMagicPartitionNumberSkipped(t *testing.T) {
	fd := &ops.FakeDiskLabel{}
	dl := NewDiskLabel("/dev/sda", "mac", 512, fd)

	p1, err := dl.AddPartition(2048, 4095, "primary", "")
	if err != nil {
		t.Fatalf("AddPartition: %v", err)
	}
	if p1.Number == dl.MagicPartitionNumber() {
		t.Fatalf("expected first partition to skip magic number %d, got %d", dl.MagicPartitionNumber(), p1.Number)
	}
}

func TestDiskLabelAddPartitionRejectsOverlap(t *testing.T) {
	fd := &ops.FakeDiskLabel{}
	dl := NewDiskLabel("/dev/sdb", "gpt", 512, fd)

	if _, err := dl.AddPartition(2048, 206847, "primary", ""); err != nil {
		t.Fatalf("AddPartition: %v", err)
	}
	if _, err := dl.AddPartition(100000, 300000, "primary", ""); err == nil {
		t.Fatal("expected overlapping partition to be rejected")
	}
}

func TestDiskLabelCommitToDiskDrivesOps(t *testing.T) {
	fd := &ops.FakeDiskLabel{}
	dl := NewDiskLabel("/dev/sdc", "gpt", 512, fd)

	p, err := dl.AddPartition(2048, 206847, "primary", "")
	if err != nil {
		t.Fatalf("AddPartition: %v", err)
	}
	if err := dl.SetFlag(p, "esp", true); err != nil {
		t.Fatalf("SetFlag before exists should be a no-op: %v", err)
	}

	if err := dl.CommitToDisk(); err != nil {
		t.Fatalf("CommitToDisk: %v", err)
	}

	if len(fd.Calls) == 0 {
		t.Fatal("expected CommitToDisk to drive DiskLabelOps")
	}
	if fd.Calls[0].Op != "CreateLabel" {
		t.Fatalf("expected label creation first, got %s", fd.Calls[0].Op)
	}
}

func TestFilesystemMkfsSetsUUIDAndTruncatesLabel(t *testing.T) {
	ff := &ops.FakeFs{UUIDs: map[string]string{"/dev/sdd1": "11111111-1111-1111-1111-111111111111"}}
	fs := NewFilesystem("/dev/sdd1", "vfat", ff)
	fs.SetLabel("this-label-is-way-too-long-for-vfat")

	if err := fs.Mkfs(nil); err != nil {
		t.Fatalf("Mkfs: %v", err)
	}
	if len(fs.Label()) > fs.maxLabelLength() {
		t.Fatalf("expected label truncated to %d chars, got %q", fs.maxLabelLength(), fs.Label())
	}
	if fs.UUID() != "11111111-1111-1111-1111-111111111111" {
		t.Fatalf("expected UUID picked up from FsUUID, got %q", fs.UUID())
	}
	if !fs.Exists() {
		t.Fatal("expected Exists to be true after Mkfs")
	}
}

func TestFilesystemSwapUsesMkswap(t *testing.T) {
	ff := &ops.FakeFs{}
	fs := NewFilesystem("/dev/sde2", "swap", ff)

	if err := fs.Mkfs(nil); err != nil {
		t.Fatalf("Mkfs: %v", err)
	}
	if len(ff.Calls) != 2 || ff.Calls[0].Op != "Mkswap" {
		t.Fatalf("expected Mkswap then FsUUID, got %v", ff.Calls)
	}
	if fs.Mountable() {
		t.Fatal("swap should not be mountable")
	}
}

func TestFilesystemResizeRejectsOutOfBounds(t *testing.T) {
	ff := &ops.FakeFs{}
	fs := NewFilesystem("/dev/sdf1", "ext4", ff)

	if err := fs.Resize(1 * size.B); err == nil {
		t.Fatal("expected resize below min size to fail")
	}
}

func TestFilesystemUnknownTypeUnsupported(t *testing.T) {
	fs := NewFilesystem("/dev/sdg1", "reiserfs", &ops.FakeFs{})
	if fs.Supported() {
		t.Fatal("expected unrecognized fstype to be unsupported")
	}
	if err := fs.Mkfs(nil); err == nil {
		t.Fatal("expected Mkfs to refuse an unsupported fstype")
	}
}

func TestLUKSFormatRequiresPassphrase(t *testing.T) {
	l := NewLUKS("/dev/sdh1", "luks2", &ops.FakeCrypto{})
	if err := l.Format(); err == nil {
		t.Fatal("expected Format without a passphrase to fail")
	}

	l.Passphrase = "swordfish"
	if err := l.Format(); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !l.Configured || !l.Exists() {
		t.Fatal("expected Configured and Exists to be true after Format")
	}
}

func TestLUKSOpenAndClose(t *testing.T) {
	fc := &ops.FakeCrypto{}
	l := NewLUKS("/dev/sdi1", "luks2", fc)
	l.Passphrase = "swordfish"

	if err := l.Open("luks-test"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if fc.Open["luks-test"] != "/dev/sdi1" {
		t.Fatalf("expected fake to record mapping, got %v", fc.Open)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if l.MapName != "" {
		t.Fatal("expected MapName cleared after Close")
	}
}

func TestLVMPhysicalVolumeCreateAndDestroy(t *testing.T) {
	fl := &ops.FakeLvm{}
	pv := NewLVMPhysicalVolume("/dev/sdj1", fl)

	if err := pv.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !pv.Exists() {
		t.Fatal("expected Exists true after Create")
	}
	if err := pv.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if pv.Exists() {
		t.Fatal("expected Exists false after Destroy")
	}
}

func TestMDRaidMemberZeroSuperblock(t *testing.T) {
	fm := &ops.FakeMd{}
	m := NewMDRaidMember("/dev/sdk1", fm)
	m.SetExists(true)

	if err := m.ZeroSuperblock(); err != nil {
		t.Fatalf("ZeroSuperblock: %v", err)
	}
	if m.Exists() {
		t.Fatal("expected Exists false after ZeroSuperblock")
	}
}

func TestWrapperFormatsAreUnsupported(t *testing.T) {
	if NewIntegrity("/dev/sdl1").Supported() {
		t.Fatal("expected integrity wrapper to be unsupported")
	}
	if NewBITLK("/dev/sdm1").Supported() {
		t.Fatal("expected bitlk wrapper to be unsupported")
	}
}
