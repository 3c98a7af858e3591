// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

// Package format implements the Format side of the device graph: the
// content stamped on top of a device (a disklabel, a filesystem, a
// LUKS header, an LVM physical volume signature, an MD member
// superblock, ...). A Format is owned by exactly one Device and knows
// how to create, destroy and introspect itself via the narrow ops
// interfaces; it never reaches into the device tree directly.
package format

import (
	"github.com/blivet-go/blivet/size"
)

// Format is the common behavior of every format variant. Concrete
// variants (DiskLabel, Filesystem, LUKS, LVMPhysicalVolume,
// MDRaidMember, BTRFSMember, Integrity, BITLK) embed Base and add
// type-specific fields and methods.
type Format interface {
	// Type is the format's tag, e.g. "ext4", "disklabel", "luks", "lvmpv".
	Type() string

	UUID() string
	SetUUID(uuid string)

	Label() string
	SetLabel(label string)

	// Device is the devnode path this format is stamped on.
	Device() string
	SetDevice(path string)

	// Exists reports whether this format has actually been written to
	// its device, as opposed to being a pending, in-memory request.
	Exists() bool
	SetExists(exists bool)

	// Options is the raw comma-separated option string carried through
	// to mount(8) or the equivalent tool invocation.
	Options() string
	SetOptions(options string)

	Mountable() bool
	Resizable() bool

	MinSize() size.Size
	MaxSize() size.Size

	// Supported reports whether this format type can actually be acted
	// on (created/destroyed/resized) on the running system, as opposed
	// to merely being recognized and passed through read-only.
	Supported() bool
}

// Base is the common field set embedded by every format variant. It
// implements every Format method except Type()/Mountable()/
// Resizable()/MinSize()/MaxSize()/Supported(), which are
// variant-specific.
type Base struct {
	uuid    string
	label   string
	device  string
	exists  bool
	options string
}

// UUID returns the format's own UUID, distinct from any device UUID.
func (b *Base) UUID() string { return b.uuid }

// SetUUID overwrites the format's UUID, e.g. after mkfs reports the
// UUID it actually wrote, which may differ from a requested one.
func (b *Base) SetUUID(uuid string) { b.uuid = uuid }

// Label returns the format's volume label, if any.
func (b *Base) Label() string { return b.label }

// SetLabel sets the format's volume label.
func (b *Base) SetLabel(label string) { b.label = label }

// Device returns the devnode path this format is stamped on.
func (b *Base) Device() string { return b.device }

// SetDevice reassigns the devnode path, e.g. when a device is renamed
// or renumbered during populate.
func (b *Base) SetDevice(path string) { b.device = path }

// Exists reports whether this format has actually been written.
func (b *Base) Exists() bool { return b.exists }

// SetExists flips the exists flag, e.g. once a create action commits.
func (b *Base) SetExists(exists bool) { b.exists = exists }

// Options returns the raw mount/tool option string.
func (b *Base) Options() string { return b.options }

// SetOptions overwrites the mount/tool option string.
func (b *Base) SetOptions(options string) { b.options = options }

// none is the null format: a device with no recognized content.
// populate() stamps this on every device whose descriptor carries no
// ID_FS_TYPE, rather than leaving Format nil, so callers never need a
// nil check before calling Format methods.
type none struct {
	Base
}

// NewNone returns the null format for a freshly discovered or freshly
// created device that carries no recognized content.
func NewNone() Format { return &none{} }

func (n *none) Type() string        { return "" }
func (n *none) Mountable() bool     { return false }
func (n *none) Resizable() bool     { return false }
func (n *none) MinSize() size.Size  { return 0 }
func (n *none) MaxSize() size.Size  { return 0 }
func (n *none) Supported() bool     { return true }

var _ Format = (*none)(nil)
