// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package populator

import (
	"sort"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blivet-go/blivet/ops"
	"github.com/blivet-go/blivet/tree"
)

// fakeSource replays a fixed slice of descriptor passes, the way the
// teacher's Fake command runners replay scripted output instead of
// shelling out.
type fakeSource struct {
	passes [][]Descriptor
	n      int
}

func (f *fakeSource) Enumerate() ([]Descriptor, error) {
	if f.n >= len(f.passes) {
		return nil, nil
	}
	p := f.passes[f.n]
	f.n++
	return p, nil
}

func fakeOps() Ops {
	return Ops{
		DiskLabel: &ops.FakeDiskLabel{},
		Lvm:       &ops.FakeLvm{},
		Md:        &ops.FakeMd{},
		Dm:        &ops.FakeDm{},
		Crypto:    &ops.FakeCrypto{},
		Udev:      &ops.FakeUdev{},
		Fs:        &ops.FakeFs{},
	}
}

func diskDescriptor(name string) Descriptor {
	return Descriptor{
		"SYS_NAME":       name,
		"SYS_PATH":       "/sys/block/" + name,
		"DEVNAME":        "/dev/" + name,
		"DEVTYPE":        "disk",
		"ID_PART_TABLE_TYPE": "gpt",
		"ID_PART_TABLE_UUID": "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee",
	}
}

func partitionDescriptor(disk, name string, num uint64, fsType string) Descriptor {
	return Descriptor{
		"SYS_NAME":             name,
		"SYS_PATH":             "/sys/block/" + disk + "/" + name,
		"DEVNAME":              "/dev/" + name,
		"DEVTYPE":              "partition",
		"ID_PART_ENTRY_DISK":   disk,
		"ID_PART_ENTRY_NUMBER": strconv.FormatUint(num, 10),
		"ID_PART_ENTRY_UUID":   "11111111-2222-3333-4444-555555555555",
		"ID_FS_TYPE":           fsType,
		"ID_FS_UUID":           "66666666-7777-8888-9999-aaaaaaaaaaaa",
	}
}

func TestPopulateDiscoversDiskAndPartitionFormat(t *testing.T) {
	t1 := tree.New()
	src := &fakeSource{passes: [][]Descriptor{
		{diskDescriptor("sda"), partitionDescriptor("sda", "sda1", 1, "ext4")},
	}}
	ctx := NewContext(t1, Config{}, fakeOps(), src)

	require.NoError(t, Populate(ctx))

	disk := t1.GetDeviceByName("sda", false)
	require.NotNil(t, disk)
	assert.True(t, disk.IsDisk())
	require.NotNil(t, disk.Format())
	assert.Equal(t, "disklabel", disk.Format().Type())

	part := t1.GetDeviceByName("sda1", false)
	require.NotNil(t, part)
	require.NotNil(t, part.Format())
	assert.Equal(t, "ext4", part.Format().Type())
	assert.NotNil(t, part.OriginalFormat())
}

func TestPopulateIgnoresRamDevices(t *testing.T) {
	t1 := tree.New()
	ram := diskDescriptor("ram0")
	src := &fakeSource{passes: [][]Descriptor{{ram}}}
	ctx := NewContext(t1, Config{}, fakeOps(), src)

	require.NoError(t, Populate(ctx))

	assert.Nil(t, t1.GetDeviceByName("ram0", false))
}

func TestPopulateHonorsExclusiveDisks(t *testing.T) {
	t1 := tree.New()
	src := &fakeSource{passes: [][]Descriptor{
		{diskDescriptor("sda"), diskDescriptor("sdb")},
	}}
	ctx := NewContext(t1, Config{ExclusiveDisks: []string{"sda"}}, fakeOps(), src)

	require.NoError(t, Populate(ctx))

	assert.NotNil(t, t1.GetDeviceByName("sda", false))
	assert.Nil(t, t1.GetDeviceByName("sdb", false))
}

func TestPopulateMarksProtectedDevices(t *testing.T) {
	t1 := tree.New()
	src := &fakeSource{passes: [][]Descriptor{{diskDescriptor("sda")}}}
	ctx := NewContext(t1, Config{ProtectedDevSpecs: []string{"sda"}}, fakeOps(), src)

	require.NoError(t, Populate(ctx))

	disk := t1.GetDeviceByName("sda", false)
	require.NotNil(t, disk)
	assert.True(t, disk.Protected())
}

// deviceSnapshot is the round-trip identity view a caller should be
// able to compare across two independent populate() runs over the
// same system: device_id, size, format type/uuid, and parents named
// by device_id rather than by pointer or tree position.
type deviceSnapshot struct {
	DeviceID   string
	SizeBytes  int64
	FormatType string
	FormatUUID string
	ParentIDs  []string
}

func snapshotTree(t1 *tree.DeviceTree, names []string) map[string]deviceSnapshot {
	out := make(map[string]deviceSnapshot, len(names))
	for _, name := range names {
		dev := t1.GetDeviceByName(name, false)
		if dev == nil {
			continue
		}
		snap := deviceSnapshot{
			DeviceID:  dev.DeviceID(),
			SizeBytes: dev.Size().Bytes(),
		}
		if f := dev.Format(); f != nil {
			snap.FormatType = f.Type()
			snap.FormatUUID = f.UUID()
		}
		for _, p := range dev.Parents().Slice() {
			snap.ParentIDs = append(snap.ParentIDs, p.DeviceID())
		}
		sort.Strings(snap.ParentIDs)
		out[dev.DeviceID()] = snap
	}
	return out
}

// TestPopulateRoundTripsDeviceIdentity asserts the identity property
// every populate() run must hold: re-running discovery against the
// same descriptors twice, from two empty trees, yields devices that
// compare equal by device_id, size, format type/uuid, and
// parents-by-device_id, regardless of how the tree happened to order
// or name things internally.
func TestPopulateRoundTripsDeviceIdentity(t *testing.T) {
	passes := [][]Descriptor{
		{diskDescriptor("sda"), partitionDescriptor("sda", "sda1", 1, "ext4")},
	}

	t1 := tree.New()
	ctx1 := NewContext(t1, Config{}, fakeOps(), &fakeSource{passes: passes})
	require.NoError(t, Populate(ctx1))

	t2 := tree.New()
	ctx2 := NewContext(t2, Config{}, fakeOps(), &fakeSource{passes: passes})
	require.NoError(t, Populate(ctx2))

	snap1 := snapshotTree(t1, ctx1.Names())
	snap2 := snapshotTree(t2, ctx2.Names())

	if diff := cmp.Diff(snap1, snap2); diff != "" {
		t.Errorf("populate() is not identity-stable across independent runs (-first +second):\n%s", diff)
	}
}
