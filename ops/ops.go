// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

// Package ops defines the narrow interfaces the device and format layers
// use to reach external tools: parted/sfdisk for disklabels, lvm2 for the
// LVM cascade, mdadm for software RAID, cryptsetup for LUKS, dmsetup for
// raw device-mapper targets, udevadm for settle/trigger, and mkfs.* for
// filesystem formatting. Each interface has a real implementation that
// shells out via the cmd package and a Fake implementation that records
// calls in memory, so the device graph can be exercised in tests without
// root privileges or real block devices.
package ops

// DiskLabelOps creates, wipes and partitions disklabels (MBR/GPT).
type DiskLabelOps interface {
	CreateLabel(device string, labelType string) error
	CreatePartition(device string, partType string, start, end uint64) error
	RemovePartition(device string, partNum uint64) error
	SetFlag(device string, partNum uint64, flag string, state bool) error
	Commit(device string) error
}

// LvmOps drives the LVM2 cascade: physical volumes, volume groups and
// logical volumes (plain, thin pool, thin, snapshot, cache, mirror).
type LvmOps interface {
	PVCreate(device string) error
	PVRemove(device string) error
	VGCreate(name string, peSize string, pvs []string) error
	VGRemove(name string) error
	VGExtend(name string, pvs []string) error
	VGReduce(name string, pvs []string) error
	LVCreate(vgName, lvName string, sizeBytes uint64, extraArgs []string) error
	LVCreateThinPool(vgName, poolName string, sizeBytes uint64) error
	LVCreateThin(vgName, poolName, lvName string, sizeBytes uint64) error
	LVCreateSnapshot(vgName, origin, snapName string, sizeBytes uint64) error
	LVRemove(vgName, lvName string) error
	LVResize(vgName, lvName string, sizeBytes uint64) error
	LVActivate(vgName, lvName string, active bool) error
}

// MdOps drives mdadm array lifecycle operations.
type MdOps interface {
	Create(device string, level string, members []string, metadataVersion string, spares int) error
	Assemble(device string, members []string) error
	Stop(device string) error
	FailAndRemove(device string, member string) error
	ZeroSuperblock(member string) error
	AddMember(device string, member string, spare bool) error
}

// DmOps drives raw device-mapper targets (used by multipath/dmraid
// wrappers and for mapping LUKS devices when CryptoOps isn't granular
// enough).
type DmOps interface {
	Create(name string, table string) error
	Remove(name string) error
	Suspend(name string) error
	Resume(name string) error
}

// CryptoOps drives cryptsetup for LUKS format/open/close and passphrase
// management, grounded on the cryptsetup invocations in the teacher's
// encryption helper.
type CryptoOps interface {
	LuksFormat(device, passphrase, label, hash, cipher string, keySize int) error
	LuksOpen(device, mapName, passphrase string) error
	LuksClose(mapName string) error
	LuksAddKey(device, existingPassphrase, newPassphrase string) error
	LuksRemoveKey(device, passphrase string) error
	LuksUUID(device string) (string, error)
}

// UdevOps triggers and waits on udev so newly created/removed nodes show
// up (or disappear) under /dev before the populator re-reads topology.
type UdevOps interface {
	Settle() error
	Trigger(device string) error
}

// FsOps formats and resizes filesystems via mkfs.*/resize2fs/xfs_growfs
// style tooling, and runs mkswap.
type FsOps interface {
	Mkfs(fsType, device, label string, extraArgs []string) error
	Mkswap(device, label string) error
	Resize(fsType, device string, newSizeBytes uint64) error
	FsUUID(fsType, device string) (string, error)
}
