// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package format

import "github.com/blivet-go/blivet/size"

// BTRFSMember is the Format variant stamped on a device that is one
// member of a multi-device BTRFS volume. UUID carries the per-device
// UUID_SUB reported by blkid; VolUUID carries the filesystem (volume)
// UUID shared by every member, which the populator's BTRFS cascade
// uses to group members into a single container device.
type BTRFSMember struct {
	Base

	VolUUID string
}

var _ Format = (*BTRFSMember)(nil)

// NewBTRFSMember returns a BTRFSMember format for device.
func NewBTRFSMember(device, uuidSub, volUUID string) *BTRFSMember {
	m := &BTRFSMember{VolUUID: volUUID}
	m.device = device
	m.uuid = uuidSub
	m.exists = true
	return m
}

func (m *BTRFSMember) Type() string       { return "btrfs" }
func (m *BTRFSMember) Mountable() bool    { return false }
func (m *BTRFSMember) Resizable() bool    { return false }
func (m *BTRFSMember) MinSize() size.Size { return 256 * size.M }
func (m *BTRFSMember) MaxSize() size.Size { return 0 }
func (m *BTRFSMember) Supported() bool    { return true }
