// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package format

import (
	"github.com/blivet-go/blivet/errors"
	"github.com/blivet-go/blivet/ops"
	"github.com/blivet-go/blivet/size"
)

// LVMPhysicalVolume is the Format variant stamped on a device that
// belongs to an LVM volume group. The VG itself is a separate
// container Device in the tree; this format only carries the
// PV-level metadata the populator reads off the device.
type LVMPhysicalVolume struct {
	Base

	VGName string
	VGUUID string
	PEStart size.Size
	PEFree  size.Size
	FreeSz  size.Size

	ops ops.LvmOps
}

var _ Format = (*LVMPhysicalVolume)(nil)

// NewLVMPhysicalVolume returns an LVMPhysicalVolume format for device.
func NewLVMPhysicalVolume(device string, o ops.LvmOps) *LVMPhysicalVolume {
	pv := &LVMPhysicalVolume{ops: o}
	pv.device = device
	return pv
}

func (p *LVMPhysicalVolume) Type() string       { return "lvmpv" }
func (p *LVMPhysicalVolume) Mountable() bool    { return false }
func (p *LVMPhysicalVolume) Resizable() bool    { return false }
func (p *LVMPhysicalVolume) MinSize() size.Size { return 1 * size.M }
func (p *LVMPhysicalVolume) MaxSize() size.Size { return 0 }
func (p *LVMPhysicalVolume) Supported() bool    { return true }

// Free returns the PV's currently unallocated extent space.
func (p *LVMPhysicalVolume) Free() size.Size { return p.FreeSz }

// Create stamps the PV signature on the device.
func (p *LVMPhysicalVolume) Create() error {
	if err := p.ops.PVCreate(p.device); err != nil {
		return errors.NewDeviceError("pvcreate %s: %v", p.device, err)
	}
	p.exists = true
	return nil
}

// Destroy wipes the PV signature from the device.
func (p *LVMPhysicalVolume) Destroy() error {
	if err := p.ops.PVRemove(p.device); err != nil {
		return errors.NewDeviceError("pvremove %s: %v", p.device, err)
	}
	p.exists = false
	return nil
}
