// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package ops

import "fmt"

// Call records one invocation made against a Fake* implementation, so a
// test can assert on exactly what would have been run without actually
// shelling out.
type Call struct {
	Op   string
	Args []string
}

func (c Call) String() string {
	return fmt.Sprintf("%s(%v)", c.Op, c.Args)
}

// FakeDiskLabel is an in-memory DiskLabelOps that records every call and
// never touches a real block device.
type FakeDiskLabel struct {
	Calls []Call
	Err   error
}

var _ DiskLabelOps = (*FakeDiskLabel)(nil)

func (f *FakeDiskLabel) record(op string, args ...string) error {
	f.Calls = append(f.Calls, Call{Op: op, Args: args})
	return f.Err
}

// CreateLabel records the call.
func (f *FakeDiskLabel) CreateLabel(device string, labelType string) error {
	return f.record("CreateLabel", device, labelType)
}

// CreatePartition records the call.
func (f *FakeDiskLabel) CreatePartition(device string, partType string, start, end uint64) error {
	return f.record("CreatePartition", device, partType, fmt.Sprint(start), fmt.Sprint(end))
}

// RemovePartition records the call.
func (f *FakeDiskLabel) RemovePartition(device string, partNum uint64) error {
	return f.record("RemovePartition", device, fmt.Sprint(partNum))
}

// SetFlag records the call.
func (f *FakeDiskLabel) SetFlag(device string, partNum uint64, flag string, state bool) error {
	return f.record("SetFlag", device, fmt.Sprint(partNum), flag, fmt.Sprint(state))
}

// Commit records the call.
func (f *FakeDiskLabel) Commit(device string) error {
	return f.record("Commit", device)
}

// FakeLvm is an in-memory LvmOps.
type FakeLvm struct {
	Calls []Call
	Err   error
}

var _ LvmOps = (*FakeLvm)(nil)

func (f *FakeLvm) record(op string, args ...string) error {
	f.Calls = append(f.Calls, Call{Op: op, Args: args})
	return f.Err
}

func (f *FakeLvm) PVCreate(device string) error { return f.record("PVCreate", device) }
func (f *FakeLvm) PVRemove(device string) error { return f.record("PVRemove", device) }

func (f *FakeLvm) VGCreate(name string, peSize string, pvs []string) error {
	return f.record("VGCreate", append([]string{name, peSize}, pvs...)...)
}
func (f *FakeLvm) VGRemove(name string) error { return f.record("VGRemove", name) }

func (f *FakeLvm) VGExtend(name string, pvs []string) error {
	return f.record("VGExtend", append([]string{name}, pvs...)...)
}
func (f *FakeLvm) VGReduce(name string, pvs []string) error {
	return f.record("VGReduce", append([]string{name}, pvs...)...)
}

func (f *FakeLvm) LVCreate(vgName, lvName string, sizeBytes uint64, extraArgs []string) error {
	return f.record("LVCreate", vgName, lvName, fmt.Sprint(sizeBytes))
}
func (f *FakeLvm) LVCreateThinPool(vgName, poolName string, sizeBytes uint64) error {
	return f.record("LVCreateThinPool", vgName, poolName, fmt.Sprint(sizeBytes))
}
func (f *FakeLvm) LVCreateThin(vgName, poolName, lvName string, sizeBytes uint64) error {
	return f.record("LVCreateThin", vgName, poolName, lvName, fmt.Sprint(sizeBytes))
}
func (f *FakeLvm) LVCreateSnapshot(vgName, origin, snapName string, sizeBytes uint64) error {
	return f.record("LVCreateSnapshot", vgName, origin, snapName, fmt.Sprint(sizeBytes))
}
func (f *FakeLvm) LVRemove(vgName, lvName string) error {
	return f.record("LVRemove", vgName, lvName)
}
func (f *FakeLvm) LVResize(vgName, lvName string, sizeBytes uint64) error {
	return f.record("LVResize", vgName, lvName, fmt.Sprint(sizeBytes))
}
func (f *FakeLvm) LVActivate(vgName, lvName string, active bool) error {
	return f.record("LVActivate", vgName, lvName, fmt.Sprint(active))
}

// FakeMd is an in-memory MdOps.
type FakeMd struct {
	Calls []Call
	Err   error
}

var _ MdOps = (*FakeMd)(nil)

func (f *FakeMd) record(op string, args ...string) error {
	f.Calls = append(f.Calls, Call{Op: op, Args: args})
	return f.Err
}

func (f *FakeMd) Create(device string, level string, members []string, metadataVersion string, spares int) error {
	return f.record("Create", append([]string{device, level, metadataVersion, fmt.Sprint(spares)}, members...)...)
}
func (f *FakeMd) Assemble(device string, members []string) error {
	return f.record("Assemble", append([]string{device}, members...)...)
}
func (f *FakeMd) Stop(device string) error { return f.record("Stop", device) }
func (f *FakeMd) FailAndRemove(device string, member string) error {
	return f.record("FailAndRemove", device, member)
}
func (f *FakeMd) ZeroSuperblock(member string) error { return f.record("ZeroSuperblock", member) }
func (f *FakeMd) AddMember(device string, member string, spare bool) error {
	return f.record("AddMember", device, member, fmt.Sprint(spare))
}

// FakeDm is an in-memory DmOps.
type FakeDm struct {
	Calls []Call
	Err   error
}

var _ DmOps = (*FakeDm)(nil)

func (f *FakeDm) record(op string, args ...string) error {
	f.Calls = append(f.Calls, Call{Op: op, Args: args})
	return f.Err
}

func (f *FakeDm) Create(name string, table string) error { return f.record("Create", name, table) }
func (f *FakeDm) Remove(name string) error               { return f.record("Remove", name) }
func (f *FakeDm) Suspend(name string) error              { return f.record("Suspend", name) }
func (f *FakeDm) Resume(name string) error               { return f.record("Resume", name) }

// FakeCrypto is an in-memory CryptoOps. It tracks which devices are
// "open" under which mapper name so tests can assert luksOpen/luksClose
// pairing without a real dm-crypt device.
type FakeCrypto struct {
	Calls []Call
	Err   error
	Open  map[string]string // mapName -> device
	UUIDs map[string]string // device -> uuid
}

var _ CryptoOps = (*FakeCrypto)(nil)

func (f *FakeCrypto) record(op string, args ...string) error {
	f.Calls = append(f.Calls, Call{Op: op, Args: args})
	return f.Err
}

func (f *FakeCrypto) LuksFormat(device, passphrase, label, hash, cipher string, keySize int) error {
	return f.record("LuksFormat", device, label, hash, cipher, fmt.Sprint(keySize))
}

func (f *FakeCrypto) LuksOpen(device, mapName, passphrase string) error {
	if err := f.record("LuksOpen", device, mapName); err != nil {
		return err
	}
	if f.Open == nil {
		f.Open = map[string]string{}
	}
	f.Open[mapName] = device
	return nil
}

func (f *FakeCrypto) LuksClose(mapName string) error {
	if err := f.record("LuksClose", mapName); err != nil {
		return err
	}
	delete(f.Open, mapName)
	return nil
}

func (f *FakeCrypto) LuksAddKey(device, existingPassphrase, newPassphrase string) error {
	return f.record("LuksAddKey", device)
}

func (f *FakeCrypto) LuksRemoveKey(device, passphrase string) error {
	return f.record("LuksRemoveKey", device)
}

func (f *FakeCrypto) LuksUUID(device string) (string, error) {
	if err := f.record("LuksUUID", device); err != nil {
		return "", err
	}
	return f.UUIDs[device], nil
}

// FakeUdev is an in-memory UdevOps that always succeeds.
type FakeUdev struct {
	Calls []Call
}

var _ UdevOps = (*FakeUdev)(nil)

func (f *FakeUdev) Settle() error {
	f.Calls = append(f.Calls, Call{Op: "Settle"})
	return nil
}

func (f *FakeUdev) Trigger(device string) error {
	f.Calls = append(f.Calls, Call{Op: "Trigger", Args: []string{device}})
	return nil
}

// FakeFs is an in-memory FsOps.
type FakeFs struct {
	Calls []Call
	Err   error
	UUIDs map[string]string // device -> uuid
}

var _ FsOps = (*FakeFs)(nil)

func (f *FakeFs) record(op string, args ...string) error {
	f.Calls = append(f.Calls, Call{Op: op, Args: args})
	return f.Err
}

func (f *FakeFs) Mkfs(fsType, device, label string, extraArgs []string) error {
	return f.record("Mkfs", fsType, device, label)
}
func (f *FakeFs) Mkswap(device, label string) error { return f.record("Mkswap", device, label) }
func (f *FakeFs) Resize(fsType, device string, newSizeBytes uint64) error {
	return f.record("Resize", fsType, device, fmt.Sprint(newSizeBytes))
}
func (f *FakeFs) FsUUID(fsType, device string) (string, error) {
	if err := f.record("FsUUID", fsType, device); err != nil {
		return "", err
	}
	return f.UUIDs[device], nil
}
