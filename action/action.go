// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

// Package action implements the append-only scheduled-operation record
// the device tree exposes to callers: register, find, cancel and
// ordered execution against each action's device (and optional
// format), via the device/format lifecycle contract.
package action

import (
	"sort"

	"github.com/blivet-go/blivet/device"
	"github.com/blivet-go/blivet/errors"
	"github.com/blivet-go/blivet/format"
)

// Type is the kind of scheduled operation.
type Type int

const (
	TypeDestroyFormat Type = iota
	TypeDestroyDevice
	TypeResizeFormatShrink
	TypeResizeDeviceShrink
	TypeCreateDevice
	TypeResizeDeviceGrow
	TypeResizeFormatGrow
	TypeCreateFormat
)

// precedence gives each Type its ordering weight; lower runs first.
// Matches the fixed action-type precedence: destroy-format,
// destroy-device, resize-format-shrink, resize-device-shrink,
// create-device, resize-device-grow, resize-format-grow,
// create-format.
var precedence = map[Type]int{
	TypeDestroyFormat:      0,
	TypeDestroyDevice:      1,
	TypeResizeFormatShrink: 2,
	TypeResizeDeviceShrink: 3,
	TypeCreateDevice:       4,
	TypeResizeDeviceGrow:   5,
	TypeResizeFormatGrow:   6,
	TypeCreateFormat:       7,
}

func (t Type) String() string {
	switch t {
	case TypeDestroyFormat:
		return "destroy-format"
	case TypeDestroyDevice:
		return "destroy-device"
	case TypeResizeFormatShrink:
		return "resize-format-shrink"
	case TypeResizeDeviceShrink:
		return "resize-device-shrink"
	case TypeCreateDevice:
		return "create-device"
	case TypeResizeDeviceGrow:
		return "resize-device-grow"
	case TypeResizeFormatGrow:
		return "resize-format-grow"
	case TypeCreateFormat:
		return "create-format"
	default:
		return "unknown"
	}
}

// ObjectType distinguishes a device action from a format action.
type ObjectType int

const (
	ObjectDevice ObjectType = iota
	ObjectFormat
)

// Action holds a device and an optional format, and applies or
// reverts via the device's/format's create/destroy/setup/teardown
// lifecycle methods.
type Action struct {
	ActionType Type
	Object     ObjectType
	Device     device.Device
	Format     format.Format

	cancelled bool
	applied   bool
}

// New returns an Action. newSize/ is carried by the caller setting
// Device.SetTargetSize or Format fields before registering a resize
// action; Action itself only sequences and applies lifecycle calls.
func New(actionType Type, obj ObjectType, d device.Device, f format.Format) *Action {
	return &Action{ActionType: actionType, Object: obj, Device: d, Format: f}
}

// Apply runs this action's effect against its device/format.
func (a *Action) Apply() error {
	if a.cancelled {
		return nil
	}
	if a.applied {
		return errors.NewDeviceError("action already applied")
	}

	var err error
	switch a.ActionType {
	case TypeCreateDevice:
		err = a.Device.Create()
	case TypeDestroyDevice:
		err = a.Device.Destroy()
	case TypeCreateFormat:
		err = a.Device.SetFormat(a.Format)
	case TypeDestroyFormat:
		err = a.Device.SetFormat(format.NewNone())
	case TypeResizeDeviceGrow, TypeResizeDeviceShrink:
		err = a.Device.SetTargetSize(a.Device.TargetSize())
	case TypeResizeFormatGrow, TypeResizeFormatShrink:
		if fs, ok := a.Format.(*format.Filesystem); ok {
			err = fs.Resize(a.Device.TargetSize())
		}
	}
	if err != nil {
		return err
	}
	a.applied = true
	return nil
}

// List is the device tree's ordered, append-only action record.
type List struct {
	actions []*Action
}

// NewList returns an empty action List.
func NewList() *List { return &List{} }

// Register appends a to the list.
func (l *List) Register(a *Action) { l.actions = append(l.actions, a) }

// Find returns every non-cancelled action matching the given filters.
// A zero value for actionType or objectType (via nil filters) matches
// anything; d, if non-nil, restricts to that device.
func (l *List) Find(actionType *Type, objectType *ObjectType, d device.Device) []*Action {
	var out []*Action
	for _, a := range l.actions {
		if a.cancelled {
			continue
		}
		if actionType != nil && a.ActionType != *actionType {
			continue
		}
		if objectType != nil && a.Object != *objectType {
			continue
		}
		if d != nil && a.Device != d {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Cancel marks a as cancelled so ProcessActions skips it.
func (l *List) Cancel(a *Action) {
	a.cancelled = true
}

// CancelForDevices cancels every pending action against any of disks,
// used by the populator when it observes a concurrent size change
// that invalidates previously-scheduled resize actions.
func (l *List) CancelForDevices(disks []device.Device) {
	set := make(map[device.Device]bool, len(disks))
	for _, d := range disks {
		set[d] = true
	}
	for _, a := range l.actions {
		if set[a.Device] {
			a.cancelled = true
		}
	}
}

// Process applies every non-cancelled action in precedence order,
// stopping at the first failure. Ties within a precedence bucket
// preserve registration order (stable sort), matching "dependency
// order": a device's creation action is registered after its
// parents', so within TypeCreateDevice, parent creates still run
// first.
func (l *List) Process() error {
	ordered := make([]*Action, 0, len(l.actions))
	for _, a := range l.actions {
		if !a.cancelled {
			ordered = append(ordered, a)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return precedence[ordered[i].ActionType] < precedence[ordered[j].ActionType]
	})

	for _, a := range ordered {
		if err := a.Apply(); err != nil {
			return err
		}
	}
	return nil
}
