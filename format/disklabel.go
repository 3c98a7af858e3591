// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package format

import (
	"github.com/blivet-go/blivet/errors"
	"github.com/blivet-go/blivet/ops"
	"github.com/blivet-go/blivet/size"
)

// magicPartitionNumber returns the type-dependent reserved partition
// slot: Mac disklabels reserve partition 1 for the driver partition,
// Sun disklabels reserve partition 3 for the whole-disk "backup"
// slice, and every other label type reserves nothing.
func magicPartitionNumber(labelType string) uint64 {
	switch labelType {
	case "mac":
		return 1
	case "sun":
		return 3
	default:
		return 0
	}
}

// PartitionSlot is one entry of a DiskLabel's in-memory geometry,
// derived from the partition table rather than owned by it; the
// DeviceTree's PartitionDevice is the object callers actually act on.
type PartitionSlot struct {
	Number   uint64
	Start    size.Size
	End      size.Size
	PartType string // "primary", "extended", "logical" (msdos only)
	TypeUUID string // GPT partition type GUID, or msdos type byte as hex
	Flags    map[string]bool
}

// Size returns the slot's length.
func (p *PartitionSlot) Size() size.Size { return p.End - p.Start + 1 }

// DiskLabel is the Format variant that owns a disk's partition table.
// Mutations (AddPartition/RemovePartition/SetFlag) only change the
// in-memory geometry; Commit/CommitToDisk push it out via DiskLabelOps.
type DiskLabel struct {
	Base

	LabelType  string // msdos, gpt, mac, sun, dasd, loop
	SectorSize uint64
	Partitions []*PartitionSlot

	ops ops.DiskLabelOps

	nextNumber uint64
}

var _ Format = (*DiskLabel)(nil)

// NewDiskLabel returns a DiskLabel format for device, using labelType
// ("msdos", "gpt", "mac", "sun", "dasd" or "loop") and the given
// DiskLabelOps to push geometry changes to the kernel.
func NewDiskLabel(device, labelType string, sectorSize uint64, o ops.DiskLabelOps) *DiskLabel {
	if sectorSize == 0 {
		sectorSize = 512
	}
	dl := &DiskLabel{
		LabelType:  labelType,
		SectorSize: sectorSize,
		ops:        o,
		nextNumber: 1,
	}
	dl.device = device
	return dl
}

func (d *DiskLabel) Type() string       { return "disklabel" }
func (d *DiskLabel) Mountable() bool    { return false }
func (d *DiskLabel) Resizable() bool    { return false }
func (d *DiskLabel) MinSize() size.Size { return 0 }
func (d *DiskLabel) MaxSize() size.Size { return 0 }

// Supported reports whether this label type is one the core can
// actually create/modify, as opposed to merely recognizing it.
func (d *DiskLabel) Supported() bool {
	switch d.LabelType {
	case "msdos", "gpt", "mac", "sun", "dasd", "loop":
		return true
	default:
		return false
	}
}

// MagicPartitionNumber returns this label's reserved partition slot,
// or 0 if the label type reserves none.
func (d *DiskLabel) MagicPartitionNumber() uint64 {
	return magicPartitionNumber(d.LabelType)
}

func (d *DiskLabel) overlaps(start, end size.Size) bool {
	for _, p := range d.Partitions {
		if start <= p.End && end >= p.Start {
			return true
		}
	}
	return false
}

// AddPartition reserves [start,end] in the in-memory geometry for a
// new partition of partType ("primary", "extended", "logical", or ""
// for GPT/others that don't distinguish) and typeUUID, and returns the
// slot. It does not touch the device; call Commit/CommitToDisk for that.
func (d *DiskLabel) AddPartition(start, end size.Size, partType, typeUUID string) (*PartitionSlot, error) {
	if end < start {
		return nil, errors.NewDeviceError("partition end %s precedes start %s", end, start)
	}
	if d.overlaps(start, end) {
		return nil, errors.NewDeviceError("partition [%s,%s] overlaps an existing partition on %s", start, end, d.device)
	}

	num := d.nextNumber
	if magic := d.MagicPartitionNumber(); magic != 0 && num == magic {
		num++
	}
	d.nextNumber = num + 1

	p := &PartitionSlot{
		Number:   num,
		Start:    start,
		End:      end,
		PartType: partType,
		TypeUUID: typeUUID,
		Flags:    make(map[string]bool),
	}
	d.Partitions = append(d.Partitions, p)
	return p, nil
}

// FindPartition returns the slot numbered num, or nil if none matches.
func (d *DiskLabel) FindPartition(num uint64) *PartitionSlot {
	for _, p := range d.Partitions {
		if p.Number == num {
			return p
		}
	}
	return nil
}

// RemovePartition drops slot p from the in-memory geometry.
func (d *DiskLabel) RemovePartition(p *PartitionSlot) error {
	for i, curr := range d.Partitions {
		if curr == p {
			d.Partitions = append(d.Partitions[:i], d.Partitions[i+1:]...)
			return nil
		}
	}
	return errors.NewDeviceError("partition %d is not present on %s", p.Number, d.device)
}

// SetFlag sets or clears a boolean partition flag (e.g. "boot", "esp",
// "lvm", "raid") on slot p, both in memory and (if the label exists)
// on disk.
func (d *DiskLabel) SetFlag(p *PartitionSlot, flag string, state bool) error {
	p.Flags[flag] = state
	if !d.exists {
		return nil
	}
	if err := d.ops.SetFlag(d.device, p.Number, flag, state); err != nil {
		return errors.NewInvalidDiskLabelError("set flag %s=%v on %s partition %d: %v", flag, state, d.device, p.Number, err)
	}
	return nil
}

// Commit pushes the in-memory geometry to the device without
// necessarily forcing the kernel to reread the partition table; it
// creates the label itself first if one isn't present yet.
func (d *DiskLabel) Commit() error {
	if !d.exists {
		if err := d.ops.CreateLabel(d.device, d.LabelType); err != nil {
			return errors.NewInvalidDiskLabelError("create %s label on %s: %v", d.LabelType, d.device, err)
		}
		d.exists = true
	}

	for _, p := range d.Partitions {
		if err := d.ops.CreatePartition(d.device, p.PartType, uint64(p.Start.Bytes()), uint64(p.End.Bytes())); err != nil {
			return errors.NewInvalidDiskLabelError("create partition %d on %s: %v", p.Number, d.device, err)
		}
		for flag, state := range p.Flags {
			if !state {
				continue
			}
			if err := d.ops.SetFlag(d.device, p.Number, flag, state); err != nil {
				return errors.NewInvalidDiskLabelError("set flag %s on %s partition %d: %v", flag, d.device, p.Number, err)
			}
		}
	}
	return nil
}

// CommitToDisk commits the geometry and then calls DiskLabelOps.Commit
// for the device; the real implementation of that waits for udev to
// settle, so /dev nodes for the new layout appear before the
// populator's next pass.
func (d *DiskLabel) CommitToDisk() error {
	if err := d.Commit(); err != nil {
		return err
	}
	if err := d.ops.Commit(d.device); err != nil {
		return errors.NewInvalidDiskLabelError("commit %s to disk: %v", d.device, err)
	}
	return nil
}
