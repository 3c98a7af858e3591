// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package device

import (
	"github.com/blivet-go/blivet/errors"
	"github.com/blivet-go/blivet/format"
	"github.com/blivet-go/blivet/ops"
	"github.com/blivet-go/blivet/size"
)

// PartType is a partition's role within its disklabel.
type PartType string

const (
	PartTypeNormal    PartType = "normal"
	PartTypeExtended  PartType = "extended"
	PartTypeLogical   PartType = "logical"
	PartTypeProtected PartType = "protected"
)

// WeightPlatform is the minimal platform predicate set the
// allocator's partition-weight rule (see Partition.Weight) needs from
// a target system, kept here so device doesn't import platform.
type WeightPlatform interface {
	IsArm() bool
	IsX86() bool
	IsEFI() bool
	IsPPC() bool
	IsIPSeries() bool
	IsPMac() bool
}

// Partition is a slice of a Disk's (or another partitionable
// ancestor's) disklabel geometry. Its parent list is capped at one:
// the disk it lives on.
type Partition struct {
	Base

	PartNumber   uint64
	PartType     PartType
	PartTypeUUID string
	Bootable     bool
	StartSector  uint64
	EndSector    uint64
	SectorSize   uint64

	// ReqBaseWeight, if non-nil, pins Weight() to that value
	// regardless of the platform-derived rule.
	ReqBaseWeight *int

	ops ops.DiskLabelOps
}

var _ Device = (*Partition)(nil)

// NewPartition returns a Partition named name on disk disk.
func NewPartition(name string, disk Device, o ops.DiskLabelOps) (*Partition, error) {
	p := &Partition{ops: o, SectorSize: 512}
	p.Init(p, func(parent Device) error {
		if p.Parents().Len() >= 1 {
			return errors.NewDeviceError("partition %s already has a disk parent", name)
		}
		if !parent.Partitionable() {
			return errors.NewDeviceError("%s is not partitionable", parent.Name())
		}
		return nil
	}, func(parent Device) error {
		if p.Exists() {
			return errors.NewDeviceError("cannot remove %s's only disk parent", name)
		}
		return nil
	})
	if err := p.SetName(name); err != nil {
		return nil, err
	}
	if disk != nil {
		if err := p.AddParent(disk); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Partition) Type() string        { return "partition" }
func (p *Partition) IsDisk() bool        { return false }
func (p *Partition) Partitionable() bool { return false }
func (p *Partition) Partitioned() bool   { return false }

// Disk returns the unique partitionable ancestor this partition lives on.
func (p *Partition) Disk() Device {
	if p.Parents().Len() == 0 {
		return nil
	}
	return p.Parents().At(0)
}

// Size derives the partition's size from its sector geometry once it
// exists; a not-yet-created partition reports the requested Base.Size.
func (p *Partition) Size() size.Size {
	if !p.Exists() || p.EndSector < p.StartSector {
		return p.Base.Size()
	}
	return size.Size((p.EndSector - p.StartSector + 1) * p.SectorSize)
}

// Weight orders this partition's placement relative to others on the
// same target, following the fixed (platform, fstype, mountpoint,
// bootable) rule. fstype and mountpoint describe the format this
// partition is slated to carry.
func (p *Partition) Weight(plat WeightPlatform, fstype, mountpoint string) int {
	if p.ReqBaseWeight != nil {
		return *p.ReqBaseWeight
	}
	switch {
	case mountpoint == "/" && plat.IsArm():
		return -100
	case mountpoint == "/":
		return 0
	case mountpoint == "/boot":
		return 2000
	case fstype == "biosboot" && plat.IsX86():
		return 5000
	case fstype == "efi" && mountpoint == "/boot/efi" && plat.IsEFI():
		return 5000
	case fstype == "prepboot" && plat.IsPPC() && plat.IsIPSeries():
		return 5000
	case fstype == "appleboot" && plat.IsPPC() && plat.IsPMac():
		return 5000
	default:
		return 0
	}
}

func (p *Partition) Create() error {
	if p.Exists() {
		return errors.NewDeviceError("partition %s already exists", p.Name())
	}
	disk := p.Disk()
	if disk == nil {
		return errors.NewDeviceError("partition %s has no disk", p.Name())
	}
	if err := p.ops.CreatePartition(disk.Path(), string(p.PartType), p.StartSector*p.SectorSize, (p.EndSector+1)*p.SectorSize-1); err != nil {
		return errors.NewDeviceError("create partition %s: %v", p.Name(), err)
	}
	p.SetExists(true)
	return nil
}

func (p *Partition) Destroy() error {
	if !p.Exists() {
		return errors.NewDeviceError("partition %s does not exist", p.Name())
	}
	disk := p.Disk()
	if disk == nil {
		return errors.NewDeviceError("partition %s has no disk", p.Name())
	}
	if err := p.ops.RemovePartition(disk.Path(), p.PartNumber); err != nil {
		return errors.NewDeviceError("destroy partition %s: %v", p.Name(), err)
	}
	p.SetExists(false)

	// Drop this partition's slot from every disklabel a caller might
	// still be holding a reference to: the disk's current format and the
	// one snapshotted at discovery time. They're the same object until a
	// format replacement makes them diverge, so skip the slot lookup
	// twice for the common case.
	seen := make(map[*format.DiskLabel]bool)
	for _, fmtv := range [...]interface{}{disk.Format(), disk.OriginalFormat()} {
		dl, ok := fmtv.(*format.DiskLabel)
		if !ok || dl == nil || seen[dl] {
			continue
		}
		seen[dl] = true
		if slot := dl.FindPartition(p.PartNumber); slot != nil {
			if err := dl.RemovePartition(slot); err != nil {
				return errors.NewDeviceError("destroy partition %s: %v", p.Name(), err)
			}
		}
	}

	if dl, ok := disk.Format().(*format.DiskLabel); ok {
		if err := dl.Commit(); err != nil {
			return errors.NewDeviceError("destroy partition %s: %v", p.Name(), err)
		}
	}
	return nil
}
