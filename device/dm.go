// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package device

import (
	"fmt"

	"github.com/blivet-go/blivet/errors"
	"github.com/blivet-go/blivet/ops"
)

// DM is the common behavior of every device-mapper node: a stable
// dm_uuid and the mapper name the kernel exposes it under.
type DM struct {
	Base

	DMUUID  string
	MapName string

	ops ops.DmOps
}

func (d *DM) Type() string        { return "dm" }
func (d *DM) IsDisk() bool        { return false }
func (d *DM) Partitionable() bool { return false }
func (d *DM) Partitioned() bool   { return false }

func (d *DM) Create() error {
	if d.Exists() {
		return errors.NewDMError(nil, "%s already exists", d.Name())
	}
	if err := d.ops.Create(d.MapName, ""); err != nil {
		return errors.NewDMError(err, "create %s", d.MapName)
	}
	d.SetExists(true)
	return nil
}

func (d *DM) Destroy() error {
	if !d.Exists() {
		return errors.NewDMError(nil, "%s does not exist", d.Name())
	}
	if err := d.ops.Remove(d.MapName); err != nil {
		return errors.NewDMError(err, "remove %s", d.MapName)
	}
	d.SetExists(false)
	return nil
}

// DMLinear is a plain linear device-mapper target over one backing parent.
type DMLinear struct {
	DM
}

var _ Device = (*DMLinear)(nil)

// NewDMLinear returns a DMLinear named name mapping backing.
func NewDMLinear(name string, backing Device, o ops.DmOps) (*DMLinear, error) {
	l := &DMLinear{DM: DM{ops: o}}
	l.Init(l, nil, func(Device) error {
		return errors.NewDeviceError("cannot remove %s's backing device", name)
	})
	if err := l.SetName(name); err != nil {
		return nil, err
	}
	l.MapName = name
	if backing != nil {
		if err := l.AddParent(backing); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *DMLinear) Type() string { return "dm-linear" }

// DMCrypt is a dm-crypt target that is not necessarily LUKS-backed
// (e.g. a plain dm-crypt mapping); LUKSDevice is the LUKS-specific
// specialization the populator actually produces for luks format
// parents.
type DMCrypt struct {
	DM
}

var _ Device = (*DMCrypt)(nil)

// NewDMCrypt returns a DMCrypt named name mapping backing, for a
// dm-crypt target discovered without LUKS metadata (e.g. a plain
// mapping set up outside the graph).
func NewDMCrypt(name string, backing Device, o ops.DmOps) (*DMCrypt, error) {
	c := &DMCrypt{DM: DM{ops: o}}
	c.Init(c, nil, func(Device) error {
		return errors.NewDeviceError("cannot remove %s's backing device", name)
	})
	if err := c.SetName(name); err != nil {
		return nil, err
	}
	c.MapName = name
	if backing != nil {
		if err := c.AddParent(backing); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *DMCrypt) Type() string { return "dm-crypt" }

// LUKSDevice is the cleartext device mapped from exactly one parent
// whose format is LUKS. Its RawDevice is the raw device of that
// backing parent, the one that carries the LUKS format.
type LUKSDevice struct {
	DM

	crypto ops.CryptoOps
}

var _ Device = (*LUKSDevice)(nil)

// RawDevice returns the backing parent's raw device, or the LUKSDevice
// itself while it has no parent.
func (l *LUKSDevice) RawDevice() Device {
	if l.Parents().Len() == 0 {
		return l
	}
	return l.Parents().At(0).RawDevice()
}

// NewLUKSDevice returns a LUKSDevice named name, mapped from luksParent
// (whose format must be *format.LUKS).
func NewLUKSDevice(name string, luksParent Device, o ops.CryptoOps) (*LUKSDevice, error) {
	l := &LUKSDevice{DM: DM{}}
	l.Init(l, func(parent Device) error {
		if l.Parents().Len() >= 1 {
			return errors.NewDeviceError("LUKS device %s already has a backing parent", name)
		}
		if parent.Format() == nil || parent.Format().Type() != "luks" {
			return errors.NewLUKSError("%s does not carry a LUKS format", parent.Name())
		}
		return nil
	}, func(Device) error {
		return errors.NewDeviceError("cannot remove %s's LUKS parent", name)
	})
	if err := l.SetName(name); err != nil {
		return nil, err
	}
	l.MapName = name
	l.crypto = o
	if luksParent != nil {
		if err := l.AddParent(luksParent); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *LUKSDevice) Type() string { return "luks/dm-crypt" }

func (l *LUKSDevice) Create() error {
	if l.Exists() {
		return errors.NewLUKSError("%s already open", l.Name())
	}
	if err := l.crypto.LuksOpen(l.Parents().At(0).Path(), l.MapName, ""); err != nil {
		return errors.NewLUKSError("open %s: %v", l.MapName, err)
	}
	l.SetExists(true)
	return nil
}

func (l *LUKSDevice) Destroy() error {
	if !l.Exists() {
		return errors.NewLUKSError("%s is not open", l.Name())
	}
	if err := l.crypto.LuksClose(l.MapName); err != nil {
		return errors.NewLUKSError("close %s: %v", l.MapName, err)
	}
	l.SetExists(false)
	return nil
}

// MultipathDevice aggregates several disk parents representing
// redundant paths to the same LUN behind a single wwn-keyed mapper
// device.
type MultipathDevice struct {
	DM

	WWID string
}

var _ Device = (*MultipathDevice)(nil)

// NewMultipathDevice returns a MultipathDevice named name for wwid.
func NewMultipathDevice(name, wwid string, o ops.DmOps) (*MultipathDevice, error) {
	m := &MultipathDevice{DM: DM{ops: o}, WWID: wwid}
	m.Init(m, func(parent Device) error {
		if !parent.IsDisk() {
			return errors.NewMPathError(nil, "%s is not a disk", parent.Name())
		}
		return nil
	}, func(Device) error {
		if m.Parents().Len() <= 1 {
			return errors.NewMPathError(nil, "multipath device %s needs at least one path", name)
		}
		return nil
	})
	if err := m.SetName(name); err != nil {
		return nil, err
	}
	m.MapName = name
	return m, nil
}

func (m *MultipathDevice) Type() string { return "multipath" }

// DMRaidArrayDevice is a firmware/BIOS RAID set assembled via
// dmraid/mdadm-isw; its parents are the member disks.
type DMRaidArrayDevice struct {
	DM

	SetName_ string
}

var _ Device = (*DMRaidArrayDevice)(nil)

// NewDMRaidArrayDevice returns a DMRaidArrayDevice named name for the
// firmware RAID set raidSetName.
func NewDMRaidArrayDevice(name, raidSetName string, o ops.DmOps) (*DMRaidArrayDevice, error) {
	r := &DMRaidArrayDevice{DM: DM{ops: o}, SetName_: raidSetName}
	r.Init(r, func(parent Device) error {
		if !parent.IsDisk() {
			return errors.NewRaidError("%s is not a disk", parent.Name())
		}
		return nil
	}, nil)
	if err := r.SetName(name); err != nil {
		return nil, err
	}
	r.MapName = name
	return r, nil
}

func (r *DMRaidArrayDevice) Type() string { return "dmraid" }

// String satisfies fmt.Stringer for debug logging of the firmware set name.
func (r *DMRaidArrayDevice) String() string {
	return fmt.Sprintf("dmraid set %s (%s)", r.SetName_, r.Name())
}
