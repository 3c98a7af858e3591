// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package device

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/blivet-go/blivet/errors"
	"github.com/blivet-go/blivet/format"
	"github.com/blivet-go/blivet/size"
)

// Device is the common behavior of every node in the graph. Concrete
// subtypes (Disk, Partition, the DM family, MD arrays, the LVM VG/LV
// family, the BTRFS family, Loop/File/Optical/NoDevice/TmpFS) embed
// Base and add type-specific fields, invariants and lifecycle.
type Device interface {
	Name() string
	SetName(name string) error
	DeviceID() string
	SetDeviceID(id string)
	UUID() string
	SetUUID(uuid string)
	SysfsPath() string
	SetSysfsPath(path string)
	Path() string
	SetPath(path string)

	Symlinks() []string
	AddSymlink(path string)

	Tags() []string
	AddTag(tag string)
	HasTag(tag string) bool

	Size() size.Size
	SetSize(s size.Size)
	CurrentSize() size.Size
	SetCurrentSize(s size.Size)
	TargetSize() size.Size
	SetTargetSize(s size.Size) error
	MinSize() size.Size
	MaxSize() size.Size
	Resizable() bool

	Exists() bool
	SetExists(exists bool)
	Status() string
	SetStatus(status string)
	Controllable() bool
	SetControllable(c bool)
	Protected() bool
	SetProtected(p bool)

	Parents() *ParentList
	Children() []Device
	AddParent(p Device) error
	RemoveParent(p Device) error

	Format() format.Format
	SetFormat(f format.Format) error
	OriginalFormat() format.Format
	SnapshotOriginalFormat()

	IsDisk() bool
	Partitionable() bool
	Partitioned() bool

	// RawDevice returns the unencrypted inner device for a LUKS
	// wrapper, or the device itself for everything else.
	RawDevice() Device

	// Type is the subtype tag, e.g. "disk", "partition", "lvmvg".
	Type() string

	// Create stamps this device into existence (exists=false -> true).
	// Devices discovered by the populator are already exists=true and
	// are never Create()d.
	Create() error

	// Destroy tears this device down (exists=true -> false). The
	// device must have no children; callers use the tree's
	// recursive_remove to enforce that.
	Destroy() error

	addChildRef(c Device)
	removeChildRef(c Device)
}

var nameExp = regexp.MustCompile(`[/\x00]`)

// ValidateName reports whether name is acceptable for any device
// subtype: no path separators, no NUL, not "." or "..", and no
// leading hyphen or Unicode whitespace.
func ValidateName(name string) error {
	if name == "" {
		return errors.NewDeviceError("device name must not be empty")
	}
	if name == "." || name == ".." {
		return errors.NewDeviceError("device name %q is reserved", name)
	}
	if nameExp.MatchString(name) {
		return errors.NewDeviceError("device name %q contains a path separator or NUL", name)
	}
	if strings.HasPrefix(name, "-") {
		return errors.NewDeviceError("device name %q must not start with a hyphen", name)
	}
	r := []rune(name)[0]
	if unicode.IsSpace(r) {
		return errors.NewDeviceError("device name %q must not start with whitespace", name)
	}
	return nil
}

// Base is the field set and method implementation shared by every
// device subtype. It implements every Device method except
// IsDisk/Partitionable/Partitioned/Type/Create/Destroy, which are
// subtype-specific; Resizable/MinSize/MaxSize/RawDevice are
// implemented here and a subtype may override them.
type Base struct {
	name      string
	deviceID  string
	uuid      string
	sysfsPath string
	path      string
	symlinks  []string
	tags      map[string]bool

	sizeVal     size.Size
	currentSize size.Size
	targetSize  size.Size
	minSize     size.Size
	maxSize     size.Size
	resizable   bool

	exists       bool
	status       string
	controllable bool
	protected    bool

	parents  *ParentList
	children []Device

	fmt         format.Format
	originalFmt format.Format

	self Device // set by the embedding subtype's constructor, for addChildRef
}

// Init wires self (the embedding subtype) into Base so parent/child
// bookkeeping and the ParentList hooks can reach it; every subtype
// constructor must call this before returning.
func (b *Base) Init(self Device, preAdd PreAddHook, preRemove PreRemoveHook) {
	b.self = self
	b.controllable = true
	b.fmt = format.NewNone()
	b.parents = NewParentList(
		func(p Device) error {
			if preAdd != nil {
				if err := preAdd(p); err != nil {
					return err
				}
			}
			return nil
		},
		preRemove,
	)
}

// AddParent appends p to this device's parents and registers the
// reverse edge on p, keeping p.children consistent.
func (b *Base) AddParent(p Device) error {
	if err := b.parents.Append(p); err != nil {
		return err
	}
	p.addChildRef(b.self)
	return nil
}

// RemoveParent removes p from this device's parents and the reverse
// edge on p.
func (b *Base) RemoveParent(p Device) error {
	if err := b.parents.Remove(p); err != nil {
		return err
	}
	p.removeChildRef(b.self)
	return nil
}

func (b *Base) addChildRef(c Device) {
	for _, curr := range b.children {
		if curr == c {
			return
		}
	}
	b.children = append(b.children, c)
}

func (b *Base) removeChildRef(c Device) {
	for i, curr := range b.children {
		if curr == c {
			b.children = append(b.children[:i], b.children[i+1:]...)
			return
		}
	}
}

func (b *Base) Name() string { return b.name }

// SetName validates and assigns the device's name.
func (b *Base) SetName(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	b.name = name
	return nil
}

func (b *Base) DeviceID() string        { return b.deviceID }
func (b *Base) SetDeviceID(id string)   { b.deviceID = id }
func (b *Base) UUID() string            { return b.uuid }
func (b *Base) SetUUID(uuid string)     { b.uuid = uuid }
func (b *Base) SysfsPath() string       { return b.sysfsPath }
func (b *Base) SetSysfsPath(path string){ b.sysfsPath = path }
func (b *Base) Path() string            { return b.path }
func (b *Base) SetPath(path string)     { b.path = path }

func (b *Base) Symlinks() []string { return b.symlinks }
func (b *Base) AddSymlink(path string) {
	for _, s := range b.symlinks {
		if s == path {
			return
		}
	}
	b.symlinks = append(b.symlinks, path)
}

func (b *Base) Tags() []string {
	out := make([]string, 0, len(b.tags))
	for t := range b.tags {
		out = append(out, t)
	}
	return out
}

func (b *Base) AddTag(tag string) {
	if b.tags == nil {
		b.tags = make(map[string]bool)
	}
	b.tags[tag] = true
}

func (b *Base) HasTag(tag string) bool { return b.tags[tag] }

func (b *Base) Size() size.Size        { return b.sizeVal }
func (b *Base) SetSize(s size.Size)    { b.sizeVal = s }
func (b *Base) CurrentSize() size.Size { return b.currentSize }
func (b *Base) SetCurrentSize(s size.Size) { b.currentSize = s }
func (b *Base) TargetSize() size.Size  { return b.targetSize }

// SetTargetSize validates newSize against [MinSize,MaxSize] before
// recording it as a pending resize request. Subtypes that override
// Resizable/MinSize/MaxSize get bounds-checked automatically since
// this reads through b.self.
func (b *Base) SetTargetSize(newSize size.Size) error {
	if !b.self.Resizable() {
		return errors.NewDeviceError("%s is not resizable", b.name)
	}
	if newSize < b.self.MinSize() || (b.self.MaxSize() > 0 && newSize > b.self.MaxSize()) {
		return errors.NewDeviceError("requested size %s for %s is outside [%s,%s]", newSize, b.name, b.self.MinSize(), b.self.MaxSize())
	}
	b.targetSize = newSize
	return nil
}

func (b *Base) MinSize() size.Size { return b.minSize }
func (b *Base) MaxSize() size.Size { return b.maxSize }
func (b *Base) Resizable() bool    { return b.resizable }

// SetResizable is used by subtype constructors to declare whether
// this instance supports resize, and the bounds if so.
func (b *Base) SetResizable(resizable bool, min, max size.Size) {
	b.resizable = resizable
	b.minSize = min
	b.maxSize = max
}

func (b *Base) Exists() bool        { return b.exists }
func (b *Base) SetExists(exists bool) { b.exists = exists }
func (b *Base) Status() string      { return b.status }
func (b *Base) SetStatus(status string) { b.status = status }
func (b *Base) Controllable() bool  { return b.controllable }

// SetControllable flips controllable, but a protected device can
// never become controllable again without first being unprotected.
func (b *Base) SetControllable(c bool) {
	if b.protected && c {
		return
	}
	b.controllable = c
}

func (b *Base) Protected() bool { return b.protected }

// SetProtected marks the device protected, which also forces
// controllable to false per the invariant `protected ⇒ !controllable`.
func (b *Base) SetProtected(p bool) {
	b.protected = p
	if p {
		b.controllable = false
	}
}

func (b *Base) Parents() *ParentList { return b.parents }

func (b *Base) Children() []Device {
	out := make([]Device, len(b.children))
	copy(out, b.children)
	return out
}

func (b *Base) Format() format.Format { return b.fmt }

// SetFormat atomically replaces the format, refusing to attach a
// format that exists on a device that does not (exists ⇒ all
// prerequisites exist, and a format can't precede its device).
func (b *Base) SetFormat(f format.Format) error {
	if f == nil {
		f = format.NewNone()
	}
	if f.Exists() && !b.exists {
		return errors.NewDeviceError("cannot attach an existing format to non-existent device %s", b.name)
	}
	b.fmt = f
	return nil
}

func (b *Base) OriginalFormat() format.Format { return b.originalFmt }

// SnapshotOriginalFormat records the current format as the device's
// original_format. Only the first call records a snapshot; later calls
// (the populator makes one each time it handles the device's format)
// leave it unchanged.
func (b *Base) SnapshotOriginalFormat() {
	if b.originalFmt == nil {
		b.originalFmt = b.fmt
	}
}

// RawDevice returns self for every subtype except LUKSDevice, which
// overrides this to return its mapped parent's raw inner device.
func (b *Base) RawDevice() Device { return b.self }
