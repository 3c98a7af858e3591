// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package ops

import (
	"fmt"
	"testing"
)

func TestFakeDiskLabelRecordsCalls(t *testing.T) {
	var dl DiskLabelOps = &FakeDiskLabel{}

	if err := dl.CreateLabel("/dev/sda", "gpt"); err != nil {
		t.Fatalf("CreateLabel: %v", err)
	}
	if err := dl.CreatePartition("/dev/sda", "primary", 1048576, 2097152); err != nil {
		t.Fatalf("CreatePartition: %v", err)
	}

	fake := dl.(*FakeDiskLabel)
	if len(fake.Calls) != 2 {
		t.Fatalf("expected 2 recorded calls, got %d", len(fake.Calls))
	}
	if fake.Calls[0].Op != "CreateLabel" {
		t.Fatalf("expected first call to be CreateLabel, got %s", fake.Calls[0].Op)
	}
}

func TestFakeDiskLabelPropagatesErr(t *testing.T) {
	wantErr := fmt.Errorf("parted: device or resource busy")
	dl := &FakeDiskLabel{Err: wantErr}

	if err := dl.CreateLabel("/dev/sda", "gpt"); err != wantErr {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestFakeCryptoTracksOpenMappings(t *testing.T) {
	crypto := &FakeCrypto{}

	if err := crypto.LuksFormat("/dev/sda2", "hunter2hunter2", "", "sha256", "aes-xts-plain64", 512); err != nil {
		t.Fatalf("LuksFormat: %v", err)
	}
	if err := crypto.LuksOpen("/dev/sda2", "root", "hunter2hunter2"); err != nil {
		t.Fatalf("LuksOpen: %v", err)
	}

	if crypto.Open["root"] != "/dev/sda2" {
		t.Fatalf("expected root mapped to /dev/sda2, got %q", crypto.Open["root"])
	}

	if err := crypto.LuksClose("root"); err != nil {
		t.Fatalf("LuksClose: %v", err)
	}

	if _, stillOpen := crypto.Open["root"]; stillOpen {
		t.Fatal("expected LuksClose to remove the mapping")
	}
}

func TestFakeMdRecordsMemberList(t *testing.T) {
	md := &FakeMd{}

	members := []string{"/dev/sda1", "/dev/sdb1", "/dev/sdc1"}
	if err := md.Create("/dev/md0", "raid5", members, "1.2", 0); err != nil {
		t.Fatalf("Create: %v", err)
	}

	call := md.Calls[0]
	if call.Op != "Create" {
		t.Fatalf("expected Create, got %s", call.Op)
	}
	// device, level, metadataVersion, spares, then members...
	if len(call.Args) != 4+len(members) {
		t.Fatalf("expected %d args, got %d: %v", 4+len(members), len(call.Args), call.Args)
	}
}

func TestFakeFsUUIDLookup(t *testing.T) {
	fs := &FakeFs{UUIDs: map[string]string{"/dev/sda1": "deadbeef-0000-0000-0000-000000000000"}}

	uuid, err := fs.FsUUID("ext4", "/dev/sda1")
	if err != nil {
		t.Fatalf("FsUUID: %v", err)
	}
	if uuid != "deadbeef-0000-0000-0000-000000000000" {
		t.Fatalf("unexpected uuid: %s", uuid)
	}
}

func TestRealTypesSatisfyInterfaces(t *testing.T) {
	var (
		_ DiskLabelOps = RealDiskLabel{}
		_ LvmOps       = RealLvm{}
		_ MdOps        = RealMd{}
		_ DmOps        = RealDm{}
		_ CryptoOps    = RealCrypto{}
		_ UdevOps      = RealUdev{}
		_ FsOps        = RealFs{}
	)
}
