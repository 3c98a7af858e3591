// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package device

import (
	"strings"

	"github.com/blivet-go/blivet/errors"
	"github.com/blivet-go/blivet/ops"
	"github.com/blivet-go/blivet/size"
)

// LVMVolumeGroupDevice is an LVM volume group: a container over one or
// more PV-formatted parents, whose extent accounting (pe_count *
// pe_size == Σ usable PV size) is recomputed from parents on demand
// rather than cached, so it can never drift.
type LVMVolumeGroupDevice struct {
	Base

	PESize   size.Size
	Exported bool

	ops ops.LvmOps
}

var _ Device = (*LVMVolumeGroupDevice)(nil)

// NewLVMVolumeGroupDevice returns an LVMVolumeGroupDevice named name
// with the given physical extent size (4M if zero).
func NewLVMVolumeGroupDevice(name string, peSize size.Size, o ops.LvmOps) (*LVMVolumeGroupDevice, error) {
	if peSize == 0 {
		peSize = 4 * size.M
	}
	vg := &LVMVolumeGroupDevice{PESize: peSize, ops: o}
	vg.Init(vg, func(parent Device) error {
		if parent.Format() == nil || parent.Format().Type() != "lvmpv" {
			return errors.NewDeviceError("%s does not carry an lvmpv format", parent.Name())
		}
		return nil
	}, nil)
	if err := vg.SetName(name); err != nil {
		return nil, err
	}
	return vg, nil
}

func (vg *LVMVolumeGroupDevice) Type() string        { return "lvmvg" }
func (vg *LVMVolumeGroupDevice) IsDisk() bool        { return false }
func (vg *LVMVolumeGroupDevice) Partitionable() bool { return false }
func (vg *LVMVolumeGroupDevice) Partitioned() bool   { return false }

// PVCount is the number of physical volumes backing this VG.
func (vg *LVMVolumeGroupDevice) PVCount() int { return vg.Parents().Len() }

// PECount is the total physical extent count across all PVs, derived
// from each PV's usable size rather than cached.
func (vg *LVMVolumeGroupDevice) PECount() uint64 {
	total := size.Size(0)
	for _, p := range vg.Parents().Slice() {
		total = total.Add(p.Size())
	}
	if vg.PESize == 0 {
		return 0
	}
	return uint64(total.DivScalar(vg.PESize))
}

// PEFree is the extent count not yet allocated to any LV.
func (vg *LVMVolumeGroupDevice) PEFree() uint64 {
	used := size.Size(0)
	for _, c := range vg.Children() {
		used = used.Add(c.Size())
	}
	free := uint64(0)
	total := vg.PECount()
	if vg.PESize > 0 {
		usedPE := uint64(used.DivScalar(vg.PESize))
		if usedPE < total {
			free = total - usedPE
		}
	}
	return free
}

func (vg *LVMVolumeGroupDevice) Create() error {
	if vg.Exists() {
		return errors.NewDeviceError("%s already exists", vg.Name())
	}
	if vg.Parents().Len() == 0 {
		return errors.NewNoSlavesError("volume group %s has no physical volumes", vg.Name())
	}
	pvs := make([]string, 0, vg.Parents().Len())
	for _, p := range vg.Parents().Slice() {
		pvs = append(pvs, p.Path())
	}
	if err := vg.ops.VGCreate(vg.Name(), vg.PESize.String(), pvs); err != nil {
		return errors.NewDeviceError("vgcreate %s: %v", vg.Name(), err)
	}
	vg.SetExists(true)
	return nil
}

func (vg *LVMVolumeGroupDevice) Destroy() error {
	if !vg.Exists() {
		return errors.NewDeviceError("%s does not exist", vg.Name())
	}
	if err := vg.ops.VGRemove(vg.Name()); err != nil {
		return errors.NewDeviceError("vgremove %s: %v", vg.Name(), err)
	}
	vg.SetExists(false)
	return nil
}

// SegType is an LVM logical volume's segment type.
type SegType string

const (
	SegLinear   SegType = "linear"
	SegStriped  SegType = "striped"
	SegMirror   SegType = "mirror"
	SegThin     SegType = "thin"
	SegThinPool SegType = "thin-pool"
	SegVDO      SegType = "vdo"
	SegCached   SegType = "cached"
	SegSnapshot SegType = "snapshot"
)

// internalSuffixes is the set of reserved LV name suffixes LVM uses
// for an internal LV's hidden metadata/data volumes.
var internalSuffixes = []string{"_tdata", "_tmeta", "_rmeta", "_rimage", "_cdata", "_cmeta", "_pmspare", "_mlog"}

// LVMLogicalVolumeDevice is an LVM logical volume of any segment type.
// Its single parent is the owning VG.
type LVMLogicalVolumeDevice struct {
	Base

	LVName       string
	SegType      SegType
	Copies       int
	LogSize      size.Size
	MetadataSize size.Size

	// Origin is the snapshot's source LV, set only for SegSnapshot.
	Origin *LVMLogicalVolumeDevice
	// Pool is the backing thin pool or VDO volume, set only for thin/vdo LVs.
	Pool *LVMLogicalVolumeDevice
	// ParentLV is the non-internal LV an internal LV's hidden metadata
	// or data volume belongs to, set only when Internal() is true. It
	// is tracked separately from the ParentList, which always holds
	// just the owning VG: an internal LV is still a direct VG child,
	// ParentLV merely records which sibling LV it serves.
	ParentLV *LVMLogicalVolumeDevice

	ops ops.LvmOps
}

var _ Device = (*LVMLogicalVolumeDevice)(nil)

// NewLVMLogicalVolumeDevice returns an LVMLogicalVolumeDevice named
// lvName (exposed in the tree as "<vg>-<lv>") inside vg.
func NewLVMLogicalVolumeDevice(lvName string, vg *LVMVolumeGroupDevice, segType SegType, o ops.LvmOps) (*LVMLogicalVolumeDevice, error) {
	lv := &LVMLogicalVolumeDevice{LVName: lvName, SegType: segType, ops: o}
	lv.Init(lv, func(parent Device) error {
		if lv.Parents().Len() >= 1 {
			return errors.NewDeviceError("LV %s already belongs to a VG", lvName)
		}
		if parent.Type() != "lvmvg" {
			return errors.NewDeviceError("%s is not a volume group", parent.Name())
		}
		return nil
	}, func(Device) error {
		return errors.NewDeviceError("cannot remove LV %s's volume group", lvName)
	})
	if err := lv.SetName(vg.Name() + "-" + lvName); err != nil {
		return nil, err
	}
	if err := lv.AddParent(vg); err != nil {
		return nil, err
	}
	return lv, nil
}

func (lv *LVMLogicalVolumeDevice) Type() string        { return "lvmlv" }
func (lv *LVMLogicalVolumeDevice) IsDisk() bool        { return false }
func (lv *LVMLogicalVolumeDevice) Partitionable() bool { return false }
func (lv *LVMLogicalVolumeDevice) Partitioned() bool   { return false }

// VG returns the owning volume group.
func (lv *LVMLogicalVolumeDevice) VG() *LVMVolumeGroupDevice {
	if lv.Parents().Len() == 0 {
		return nil
	}
	return lv.Parents().At(0).(*LVMVolumeGroupDevice)
}

// MapName is the device-mapper name the kernel exposes this LV under.
func (lv *LVMLogicalVolumeDevice) MapName() string {
	vg := lv.VG()
	if vg == nil {
		return ""
	}
	return vg.Name() + "-" + lv.LVName
}

// Internal reports whether lvName is one of LVM's reserved internal
// sub-LV names (_tdata, _tmeta, _rmeta, _rimage, _cdata, _cmeta,
// _pmspare, _mlog), which the populator surfaces read-only.
func (lv *LVMLogicalVolumeDevice) Internal() bool {
	for _, suffix := range internalSuffixes {
		if strings.HasSuffix(lv.LVName, suffix) {
			return true
		}
	}
	return false
}

// ParentLVName strips an internal LV's "[...]" bracketing and its
// reserved suffix, returning the plain LV name it belongs to. Returns
// "" if internalName carries none of the recognized suffixes.
func ParentLVName(internalName string) string {
	name := strings.Trim(internalName, "[]")
	for _, suffix := range internalSuffixes {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return ""
}

func (lv *LVMLogicalVolumeDevice) Create() error {
	if lv.Exists() {
		return errors.NewDeviceError("%s already exists", lv.Name())
	}
	vg := lv.VG()
	if vg == nil {
		return errors.NewDeviceError("LV %s has no volume group", lv.Name())
	}

	var err error
	switch lv.SegType {
	case SegThinPool:
		err = lv.ops.LVCreateThinPool(vg.Name(), lv.LVName, uint64(lv.Size().Bytes()))
	case SegThin:
		if lv.Pool == nil {
			return errors.NewDeviceError("thin LV %s has no backing pool", lv.Name())
		}
		err = lv.ops.LVCreateThin(vg.Name(), lv.Pool.LVName, lv.LVName, uint64(lv.Size().Bytes()))
	case SegSnapshot:
		if lv.Origin == nil {
			return errors.NewDeviceError("snapshot LV %s has no origin", lv.Name())
		}
		err = lv.ops.LVCreateSnapshot(vg.Name(), lv.Origin.LVName, lv.LVName, uint64(lv.Size().Bytes()))
	default:
		err = lv.ops.LVCreate(vg.Name(), lv.LVName, uint64(lv.Size().Bytes()), nil)
	}
	if err != nil {
		return errors.NewDeviceError("create LV %s: %v", lv.Name(), err)
	}
	lv.SetExists(true)
	return nil
}

func (lv *LVMLogicalVolumeDevice) Destroy() error {
	if !lv.Exists() {
		return errors.NewDeviceError("%s does not exist", lv.Name())
	}
	vg := lv.VG()
	if vg == nil {
		return errors.NewDeviceError("LV %s has no volume group", lv.Name())
	}
	if err := lv.ops.LVRemove(vg.Name(), lv.LVName); err != nil {
		return errors.NewDeviceError("remove LV %s: %v", lv.Name(), err)
	}
	lv.SetExists(false)
	return nil
}
