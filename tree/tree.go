// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

// Package tree implements the DeviceTree registry: the forward device
// map, the hidden set, the name/uuid/sysfs/symlink indices, and the
// structural operations (add/remove/hide/unhide/recursive_remove)
// every other component is built on.
package tree

import (
	"github.com/blivet-go/blivet/action"
	"github.com/blivet-go/blivet/device"
	"github.com/blivet-go/blivet/errors"
)

// DeviceTree is the registry of every live and hidden device, plus
// the pending action list callers stage changes through.
type DeviceTree struct {
	devices map[string]device.Device // live, by name
	hidden  map[string]device.Device // hidden, by name

	byUUID      map[string]device.Device
	bySysfsPath map[string]device.Device
	byDeviceID  map[string]device.Device
	bySymlink   map[string]device.Device

	// names is the monotonically extended list of every name ever
	// observed or pre-registered, used for unique-name generation;
	// it is never shrunk by remove_device.
	names []string

	actions *action.List
}

// New returns an empty DeviceTree.
func New() *DeviceTree {
	return &DeviceTree{
		devices:     make(map[string]device.Device),
		hidden:      make(map[string]device.Device),
		byUUID:      make(map[string]device.Device),
		bySysfsPath: make(map[string]device.Device),
		byDeviceID:  make(map[string]device.Device),
		bySymlink:   make(map[string]device.Device),
		actions:     action.NewList(),
	}
}

// Actions returns the tree's action list.
func (t *DeviceTree) Actions() *action.List { return t.actions }

// Names returns the full history of device names ever seen.
func (t *DeviceTree) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

func (t *DeviceTree) recordName(name string) {
	for _, n := range t.names {
		if n == name {
			return
		}
	}
	t.names = append(t.names, name)
}

func (t *DeviceTree) index(d device.Device) {
	t.recordName(d.Name())
	if d.UUID() != "" {
		t.byUUID[d.UUID()] = d
	}
	if d.SysfsPath() != "" {
		t.bySysfsPath[d.SysfsPath()] = d
	}
	if d.DeviceID() != "" {
		t.byDeviceID[d.DeviceID()] = d
	}
	for _, s := range d.Symlinks() {
		t.bySymlink[s] = d
	}
}

func (t *DeviceTree) unindex(d device.Device) {
	if t.byUUID[d.UUID()] == d {
		delete(t.byUUID, d.UUID())
	}
	if t.bySysfsPath[d.SysfsPath()] == d {
		delete(t.bySysfsPath, d.SysfsPath())
	}
	if t.byDeviceID[d.DeviceID()] == d {
		delete(t.byDeviceID, d.DeviceID())
	}
	for _, s := range d.Symlinks() {
		if t.bySymlink[s] == d {
			delete(t.bySymlink, s)
		}
	}
}

// AddDevice registers d as a live device, maintaining every index.
func (t *DeviceTree) AddDevice(d device.Device) error {
	if _, ok := t.devices[d.Name()]; ok {
		return errors.NewDeviceTreeError("a device named %s is already registered", d.Name())
	}
	t.devices[d.Name()] = d
	t.index(d)
	return nil
}

// RemoveDevice unregisters d, which must have no children.
func (t *DeviceTree) RemoveDevice(d device.Device) error {
	if _, ok := t.devices[d.Name()]; !ok {
		if _, ok := t.hidden[d.Name()]; !ok {
			return errors.NewDeviceTreeError("%s is not registered", d.Name())
		}
	}
	if len(d.Children()) > 0 {
		return errors.NewDeviceTreeError("cannot remove %s: it still has children", d.Name())
	}
	delete(t.devices, d.Name())
	delete(t.hidden, d.Name())
	t.unindex(d)
	return nil
}

// Hide moves d from the live set to the hidden set. A hidden device's
// dependents are left alone; callers typically hide from the leaves up.
func (t *DeviceTree) Hide(d device.Device) error {
	if _, ok := t.devices[d.Name()]; !ok {
		return errors.NewDeviceTreeError("%s is not a live device", d.Name())
	}
	delete(t.devices, d.Name())
	t.hidden[d.Name()] = d
	return nil
}

// Unhide moves d back from the hidden set to the live set.
func (t *DeviceTree) Unhide(d device.Device) error {
	if _, ok := t.hidden[d.Name()]; !ok {
		return errors.NewDeviceTreeError("%s is not hidden", d.Name())
	}
	delete(t.hidden, d.Name())
	t.devices[d.Name()] = d
	return nil
}

// GetDeviceByName looks up a device by name; hidden controls whether
// the hidden set is searched as well as the live set.
func (t *DeviceTree) GetDeviceByName(name string, hidden bool) device.Device {
	if d, ok := t.devices[name]; ok {
		return d
	}
	if hidden {
		if d, ok := t.hidden[name]; ok {
			return d
		}
	}
	return nil
}

// GetDeviceByUUID looks up a device by its own UUID (not its format's).
// incomplete allows matching a device that is still being assembled
// (e.g. an LVM VG known only by uuid with no PVs attached yet).
func (t *DeviceTree) GetDeviceByUUID(uuid string, hidden, incomplete bool) device.Device {
	d := t.lookupLiveOrHidden(t.byUUID, uuid, hidden)
	if d == nil {
		return nil
	}
	if !incomplete && d.Parents().Len() == 0 {
		return nil
	}
	return d
}

func (t *DeviceTree) lookupLiveOrHidden(index map[string]device.Device, key string, hidden bool) device.Device {
	d, ok := index[key]
	if !ok {
		return nil
	}
	if _, live := t.devices[d.Name()]; live {
		return d
	}
	if hidden {
		if _, h := t.hidden[d.Name()]; h {
			return d
		}
	}
	return nil
}

// GetDeviceBySysfsPath looks up a device by its sysfs path.
func (t *DeviceTree) GetDeviceBySysfsPath(path string, hidden bool) device.Device {
	return t.lookupLiveOrHidden(t.bySysfsPath, path, hidden)
}

// GetDeviceByDeviceID looks up a device by its stable persistence id
// (e.g. "LVM-<lv-uuid>").
func (t *DeviceTree) GetDeviceByDeviceID(id string, hidden bool) device.Device {
	return t.lookupLiveOrHidden(t.byDeviceID, id, hidden)
}

// GetDeviceByPath looks up a device by its devnode path or any of its
// symlinks (e.g. /dev/disk/by-uuid/...).
func (t *DeviceTree) GetDeviceByPath(path string, hidden bool) device.Device {
	for name, d := range t.devices {
		_ = name
		if d.Path() == path {
			return d
		}
	}
	if d := t.lookupLiveOrHidden(t.bySymlink, path, hidden); d != nil {
		return d
	}
	if hidden {
		for _, d := range t.hidden {
			if d.Path() == path {
				return d
			}
		}
	}
	return nil
}

// GetChildren returns the transitive closure of d's descendants.
func (t *DeviceTree) GetChildren(d device.Device) []device.Device {
	seen := map[device.Device]bool{}
	var out []device.Device
	var walk func(device.Device)
	walk = func(curr device.Device) {
		for _, c := range curr.Children() {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
			walk(c)
		}
	}
	walk(d)
	return out
}

// GetDependentDevices is an alias for GetChildren: every device whose
// existence depends transitively on d.
func (t *DeviceTree) GetDependentDevices(d device.Device) []device.Device {
	return t.GetChildren(d)
}

// RecursiveRemove destroys (or, if actions is false, directly
// unregisters) every leaf at or below d, then d itself. A protected
// device at or below d stops the whole removal with a DeviceTreeError
// when it is reached; devices already removed by then stay removed.
func (t *DeviceTree) RecursiveRemove(d device.Device, actions bool, modparent bool) error {
	if d.Protected() {
		return errors.NewDeviceTreeError("%s is protected and cannot be removed", d.Name())
	}

	// Destroy leaves first: repeatedly find a child with no further
	// children until only d itself remains. A protected leaf strictly
	// below d (e.g. one protected LV in an otherwise unprotected VG)
	// can never be destroyed, so it must abort the whole removal
	// rather than being skipped: leavesBelow(d) would keep returning it
	// forever otherwise.
	for {
		leaves := t.leavesBelow(d)
		if len(leaves) == 0 {
			break
		}
		for _, leaf := range leaves {
			if leaf.Protected() {
				return errors.NewDeviceTreeError("%s is protected and cannot be removed", leaf.Name())
			}
			if err := t.destroyOne(leaf, actions); err != nil {
				return err
			}
		}
	}

	return t.destroyOne(d, actions)
}

func (t *DeviceTree) leavesBelow(d device.Device) []device.Device {
	var leaves []device.Device
	for _, c := range d.Children() {
		if len(c.Children()) == 0 {
			leaves = append(leaves, c)
		} else {
			leaves = append(leaves, t.leavesBelow(c)...)
		}
	}
	return leaves
}

func (t *DeviceTree) destroyOne(d device.Device, useActions bool) error {
	if useActions {
		actType := action.TypeDestroyDevice
		objType := action.ObjectDevice
		for _, existing := range t.actions.Find(&actType, &objType, d) {
			t.actions.Cancel(existing)
		}
		t.actions.Register(action.New(action.TypeDestroyDevice, action.ObjectDevice, d, nil))
		return nil
	}
	if d.Exists() {
		if err := d.Destroy(); err != nil {
			return err
		}
	}
	for _, p := range d.Parents().Slice() {
		_ = d.RemoveParent(p)
	}
	return t.RemoveDevice(d)
}
