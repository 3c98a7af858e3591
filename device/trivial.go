// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package device

import "github.com/blivet-go/blivet/errors"

// FileDevice is a regular file acting as a disk image, the backing
// store for exactly one LoopDevice.
type FileDevice struct {
	Base
}

var _ Device = (*FileDevice)(nil)

// NewFileDevice returns a FileDevice named name (the backing file's path).
func NewFileDevice(name string) (*FileDevice, error) {
	f := &FileDevice{}
	f.Init(f, nil, nil)
	if err := f.SetName(name); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FileDevice) Type() string        { return "file" }
func (f *FileDevice) IsDisk() bool        { return false }
func (f *FileDevice) Partitionable() bool { return false }
func (f *FileDevice) Partitioned() bool   { return false }
func (f *FileDevice) Create() error       { f.SetExists(true); return nil }
func (f *FileDevice) Destroy() error {
	if !f.Exists() {
		return errors.NewDeviceError("%s does not exist", f.Name())
	}
	f.SetExists(false)
	return nil
}

// LoopDevice is a loop-mounted view of exactly one FileDevice parent,
// the first stage of the disk-image-file synthesis the populator runs
// before injecting a synthetic descriptor for the rest of the stack.
type LoopDevice struct {
	Base
}

var _ Device = (*LoopDevice)(nil)

// NewLoopDevice returns a LoopDevice named name backed by backing.
func NewLoopDevice(name string, backing *FileDevice) (*LoopDevice, error) {
	l := &LoopDevice{}
	l.Init(l, func(parent Device) error {
		if l.Parents().Len() >= 1 {
			return errors.NewDeviceError("loop device %s already has a backing file", name)
		}
		if _, ok := parent.(*FileDevice); !ok {
			return errors.NewDeviceError("%s is not a file device", parent.Name())
		}
		return nil
	}, func(Device) error {
		return errors.NewDeviceError("cannot remove loop device %s's backing file", name)
	})
	if err := l.SetName(name); err != nil {
		return nil, err
	}
	if backing != nil {
		if err := l.AddParent(backing); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *LoopDevice) Type() string        { return "loop" }
func (l *LoopDevice) IsDisk() bool        { return true }
func (l *LoopDevice) Partitionable() bool { return true }
func (l *LoopDevice) Partitioned() bool   { return l.Format() != nil && l.Format().Type() == "disklabel" }
func (l *LoopDevice) Create() error       { l.SetExists(true); return nil }
func (l *LoopDevice) Destroy() error {
	if !l.Exists() {
		return errors.NewDeviceError("%s does not exist", l.Name())
	}
	l.SetExists(false)
	return nil
}

// OpticalDevice is a CD/DVD/BD drive: read-only, never created or
// destroyed through the graph.
type OpticalDevice struct {
	Base
}

var _ Device = (*OpticalDevice)(nil)

// NewOpticalDevice returns an OpticalDevice named name.
func NewOpticalDevice(name string) (*OpticalDevice, error) {
	o := &OpticalDevice{}
	o.Init(o, nil, nil)
	if err := o.SetName(name); err != nil {
		return nil, err
	}
	o.SetExists(true)
	return o, nil
}

func (o *OpticalDevice) Type() string        { return "cdrom" }
func (o *OpticalDevice) IsDisk() bool        { return true }
func (o *OpticalDevice) Partitionable() bool { return false }
func (o *OpticalDevice) Partitioned() bool   { return false }
func (o *OpticalDevice) Create() error {
	return errors.NewDeviceError("optical device %s cannot be created", o.Name())
}
func (o *OpticalDevice) Destroy() error {
	return errors.NewDeviceError("optical device %s cannot be destroyed", o.Name())
}

// NoDevice is a placeholder for a format with no owning device, e.g.
// an ISO9660 filesystem image mounted directly via loop without ever
// registering a device for the loop itself.
type NoDevice struct {
	Base
}

var _ Device = (*NoDevice)(nil)

// NewNoDevice returns a NoDevice named name.
func NewNoDevice(name string) (*NoDevice, error) {
	n := &NoDevice{}
	n.Init(n, nil, nil)
	if err := n.SetName(name); err != nil {
		return nil, err
	}
	n.SetExists(true)
	return n, nil
}

func (n *NoDevice) Type() string        { return "nodev" }
func (n *NoDevice) IsDisk() bool        { return false }
func (n *NoDevice) Partitionable() bool { return false }
func (n *NoDevice) Partitioned() bool   { return false }
func (n *NoDevice) Create() error       { return errors.NewDeviceError("%s cannot be created", n.Name()) }
func (n *NoDevice) Destroy() error      { return errors.NewDeviceError("%s cannot be destroyed", n.Name()) }

// TmpFSDevice is the synthetic device backing a tmpfs mount, which has
// no real block device or backing store.
type TmpFSDevice struct {
	Base
}

var _ Device = (*TmpFSDevice)(nil)

// NewTmpFSDevice returns a TmpFSDevice named name.
func NewTmpFSDevice(name string) (*TmpFSDevice, error) {
	t := &TmpFSDevice{}
	t.Init(t, nil, nil)
	if err := t.SetName(name); err != nil {
		return nil, err
	}
	t.SetExists(true)
	return t, nil
}

func (t *TmpFSDevice) Type() string        { return "tmpfs" }
func (t *TmpFSDevice) IsDisk() bool        { return false }
func (t *TmpFSDevice) Partitionable() bool { return false }
func (t *TmpFSDevice) Partitioned() bool   { return false }
func (t *TmpFSDevice) Create() error       { t.SetExists(true); return nil }
func (t *TmpFSDevice) Destroy() error      { t.SetExists(false); return nil }
