// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package format

import (
	"github.com/blivet-go/blivet/errors"
	"github.com/blivet-go/blivet/ops"
	"github.com/blivet-go/blivet/size"
)

// MDRaidMember is the Format variant stamped on a device that belongs
// to an MD software RAID array. The array itself is a separate
// container Device; this format only carries the member-level
// superblock metadata.
type MDRaidMember struct {
	Base

	// MDUUID is the array's UUID, shared by every member.
	MDUUID string

	// BiosRaid marks a member of a BIOS/firmware RAID set (isw, ddf,
	// etc.), which the populator assembles with mdadm but which the
	// core otherwise treats like any other MD array.
	BiosRaid bool

	ops ops.MdOps
}

var _ Format = (*MDRaidMember)(nil)

// NewMDRaidMember returns an MDRaidMember format for device.
func NewMDRaidMember(device string, o ops.MdOps) *MDRaidMember {
	m := &MDRaidMember{ops: o}
	m.device = device
	return m
}

func (m *MDRaidMember) Type() string       { return "mdmember" }
func (m *MDRaidMember) Mountable() bool    { return false }
func (m *MDRaidMember) Resizable() bool    { return false }
func (m *MDRaidMember) MinSize() size.Size { return 2 * size.M }
func (m *MDRaidMember) MaxSize() size.Size { return 0 }
func (m *MDRaidMember) Supported() bool    { return true }

// ZeroSuperblock wipes this member's MD superblock so the device no
// longer appears as part of the array on the next scan.
func (m *MDRaidMember) ZeroSuperblock() error {
	if err := m.ops.ZeroSuperblock(m.device); err != nil {
		return errors.NewMDRaidError(err, "zero superblock on %s", m.device)
	}
	m.exists = false
	return nil
}
