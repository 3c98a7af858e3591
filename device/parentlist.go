// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

// Package device implements the polymorphic device graph: Disk,
// Partition, the device-mapper family (Linear, Crypt, LUKS,
// Multipath, DMRaid), MD RAID arrays, the LVM VG/LV family, BTRFS
// volumes/subvolumes/snapshots, Loop/File/Optical/NoDevice/TmpFS, and
// the ParentList each of them is built on.
package device

import "github.com/blivet-go/blivet/errors"

// PreAddHook is consulted before a parent is appended to a ParentList;
// it may refuse the membership (format mismatch, cap exceeded).
type PreAddHook func(p Device) error

// PreRemoveHook is consulted before a parent is removed from a
// ParentList; it may refuse (minimum member count not met).
type PreRemoveHook func(p Device) error

// ParentList is an ordered list of parent devices with reference
// uniqueness. index/insert/pop are deliberately absent so callers
// cannot depend on positional semantics beyond append order;
// Append/Remove are the only mutators.
type ParentList struct {
	items     []Device
	preAdd    PreAddHook
	preRemove PreRemoveHook
}

// NewParentList returns an empty ParentList gated by the given hooks.
// Either hook may be nil, in which case that check always passes.
func NewParentList(preAdd PreAddHook, preRemove PreRemoveHook) *ParentList {
	return &ParentList{preAdd: preAdd, preRemove: preRemove}
}

// Len returns the number of parents.
func (pl *ParentList) Len() int { return len(pl.items) }

// At returns the parent at index i.
func (pl *ParentList) At(i int) Device { return pl.items[i] }

// Slice returns a copy of the parent list in order.
func (pl *ParentList) Slice() []Device {
	out := make([]Device, len(pl.items))
	copy(out, pl.items)
	return out
}

// Contains reports whether p is already a member.
func (pl *ParentList) Contains(p Device) bool {
	for _, curr := range pl.items {
		if curr == p {
			return true
		}
	}
	return false
}

// Append adds p to the end of the list, after running pre_add(p).
func (pl *ParentList) Append(p Device) error {
	if pl.Contains(p) {
		return errors.NewDeviceTreeError("%s is already a parent", p.Name())
	}
	if pl.preAdd != nil {
		if err := pl.preAdd(p); err != nil {
			return err
		}
	}
	pl.items = append(pl.items, p)
	return nil
}

// Remove drops p from the list, after running pre_remove(p).
func (pl *ParentList) Remove(p Device) error {
	idx := -1
	for i, curr := range pl.items {
		if curr == p {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errors.NewDeviceTreeError("%s is not a parent", p.Name())
	}
	if pl.preRemove != nil {
		if err := pl.preRemove(p); err != nil {
			return err
		}
	}
	pl.items = append(pl.items[:idx], pl.items[idx+1:]...)
	return nil
}

// SetAll replaces the entire parent list: every current parent is
// removed, then each of news is appended in order. A failure partway
// through aborts the whole assignment and restores the prior list.
func (pl *ParentList) SetAll(news []Device) error {
	saved := pl.Slice()
	savedPreAdd, savedPreRemove := pl.preAdd, pl.preRemove

	restore := func() {
		pl.items = saved
		pl.preAdd, pl.preRemove = savedPreAdd, savedPreRemove
	}

	for _, p := range pl.Slice() {
		if err := pl.Remove(p); err != nil {
			restore()
			return err
		}
	}
	for _, p := range news {
		if err := pl.Append(p); err != nil {
			restore()
			return err
		}
	}
	return nil
}
