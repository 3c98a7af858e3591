// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package format

import "github.com/blivet-go/blivet/size"

// Wrapper is the Format variant for analogous single-device wrapper
// formats recognized read-only by the populator but not (yet) created
// or destroyed by the core: dm-integrity headers and BitLocker
// (BITLK) headers. Both wrap an inner payload format the same way
// LUKS does, but neither has a narrow ops interface of its own.
type Wrapper struct {
	Base

	kind string // "integrity" or "bitlk"
}

var _ Format = (*Wrapper)(nil)

// NewIntegrity returns a dm-integrity wrapper format for device.
func NewIntegrity(device string) *Wrapper {
	w := &Wrapper{kind: "integrity"}
	w.device = device
	w.exists = true
	return w
}

// NewBITLK returns a BitLocker wrapper format for device.
func NewBITLK(device string) *Wrapper {
	w := &Wrapper{kind: "bitlk"}
	w.device = device
	w.exists = true
	return w
}

func (w *Wrapper) Type() string       { return w.kind }
func (w *Wrapper) Mountable() bool    { return false }
func (w *Wrapper) Resizable() bool    { return false }
func (w *Wrapper) MinSize() size.Size { return 0 }
func (w *Wrapper) MaxSize() size.Size { return 0 }

// Supported is false: the core recognizes these formats during
// discovery but has no ops interface to create, open or destroy them.
func (w *Wrapper) Supported() bool { return false }

// MultipathMember is the Format variant stamped on a path device that
// is one leg of a multipath device; like BTRFSMember, it carries only
// the grouping key (the WWID), leaving the container device (the
// multipath map) to the tree.
type MultipathMember struct {
	Base

	WWID string
}

var _ Format = (*MultipathMember)(nil)

// NewMultipathMember returns a MultipathMember format for device.
func NewMultipathMember(device, wwid string) *MultipathMember {
	m := &MultipathMember{WWID: wwid}
	m.device = device
	m.exists = true
	return m
}

func (m *MultipathMember) Type() string       { return "multipath_member" }
func (m *MultipathMember) Mountable() bool    { return false }
func (m *MultipathMember) Resizable() bool    { return false }
func (m *MultipathMember) MinSize() size.Size { return 0 }
func (m *MultipathMember) MaxSize() size.Size { return 0 }
func (m *MultipathMember) Supported() bool    { return true }

// DMRaidMember is the Format variant stamped on a device that is one
// member of a firmware/BIOS DMRaid set managed by dmraid/mdadm-isw
// rather than native MD.
type DMRaidMember struct {
	Base

	SetName string
}

var _ Format = (*DMRaidMember)(nil)

// NewDMRaidMember returns a DMRaidMember format for device.
func NewDMRaidMember(device, setName string) *DMRaidMember {
	m := &DMRaidMember{SetName: setName}
	m.device = device
	m.exists = true
	return m
}

func (m *DMRaidMember) Type() string       { return "dmraidmember" }
func (m *DMRaidMember) Mountable() bool    { return false }
func (m *DMRaidMember) Resizable() bool    { return false }
func (m *DMRaidMember) MinSize() size.Size { return 0 }
func (m *DMRaidMember) MaxSize() size.Size { return 0 }
func (m *DMRaidMember) Supported() bool    { return true }
