// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package device

import (
	"github.com/blivet-go/blivet/errors"
	"github.com/blivet-go/blivet/format"
)

// BTRFSVolumeDevice is a (possibly multi-device) BTRFS filesystem. Its
// parents are the member devices, each carrying a BTRFSMember format
// that shares this volume's VolUUID; the container derives its
// membership from that shared UUID rather than storing it twice.
type BTRFSVolumeDevice struct {
	Base

	VolUUID        string
	DataLevel      string // "single", "dup", "raid0", "raid1", "raid10", ...
	MetadataLevel  string
	DefaultSubvolID uint64

	subvolumes []Device
}

var _ Device = (*BTRFSVolumeDevice)(nil)

// NewBTRFSVolumeDevice returns a BTRFSVolumeDevice named name for
// filesystem volUUID.
func NewBTRFSVolumeDevice(name, volUUID string) (*BTRFSVolumeDevice, error) {
	v := &BTRFSVolumeDevice{VolUUID: volUUID, DataLevel: "single", MetadataLevel: "dup"}
	v.Init(v, func(parent Device) error {
		m, ok := parent.Format().(*format.BTRFSMember)
		if !ok {
			return errors.NewBTRFSValueError("%s does not carry a btrfs member format", parent.Name())
		}
		if m.VolUUID != volUUID {
			return errors.NewBTRFSValueError("%s's volume UUID %s does not match volume %s", parent.Name(), m.VolUUID, volUUID)
		}
		return nil
	}, func(Device) error {
		if v.Parents().Len() <= 1 {
			return errors.NewBTRFSValueError("btrfs volume %s needs at least one member", name)
		}
		return nil
	})
	if err := v.SetName(name); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *BTRFSVolumeDevice) Type() string        { return "btrfs" }
func (v *BTRFSVolumeDevice) IsDisk() bool        { return false }
func (v *BTRFSVolumeDevice) Partitionable() bool { return false }
func (v *BTRFSVolumeDevice) Partitioned() bool   { return false }

// Subvolumes returns the volume's registered subvolumes (and snapshots).
func (v *BTRFSVolumeDevice) Subvolumes() []Device {
	out := make([]Device, len(v.subvolumes))
	copy(out, v.subvolumes)
	return out
}

// registerSubvolume is called by NewBTRFSSubVolumeDevice /
// NewBTRFSSnapShotDevice so the volume's subvolume list stays current.
func (v *BTRFSVolumeDevice) registerSubvolume(s Device) {
	v.subvolumes = append(v.subvolumes, s)
}

func (v *BTRFSVolumeDevice) Create() error {
	if v.Exists() {
		return errors.NewBTRFSValueError("%s already exists", v.Name())
	}
	if v.Parents().Len() == 0 {
		return errors.NewNoSlavesError("btrfs volume %s has no members", v.Name())
	}
	// mkfs.btrfs across all members is driven by the Filesystem
	// format attached to the first member; the volume device itself
	// has no direct ops dependency.
	v.SetExists(true)
	return nil
}

func (v *BTRFSVolumeDevice) Destroy() error {
	if !v.Exists() {
		return errors.NewBTRFSValueError("%s does not exist", v.Name())
	}
	v.SetExists(false)
	return nil
}

// BTRFSSubVolumeDevice is a named subtree of a BTRFSVolumeDevice (or
// of another subvolume); its sole parent is that owning volume or
// subvolume.
type BTRFSSubVolumeDevice struct {
	Base

	VolID uint64
	// SubPath is this subvolume's path within the owning volume, e.g.
	// "@home" or "@snapshots/2026-07-30".
	SubPath string
}

var _ Device = (*BTRFSSubVolumeDevice)(nil)

// NewBTRFSSubVolumeDevice returns a BTRFSSubVolumeDevice named name,
// owned by parent (a *BTRFSVolumeDevice or another
// *BTRFSSubVolumeDevice).
func NewBTRFSSubVolumeDevice(name string, parent Device, subPath string) (*BTRFSSubVolumeDevice, error) {
	s := &BTRFSSubVolumeDevice{SubPath: subPath}
	s.Init(s, func(p Device) error {
		if s.Parents().Len() >= 1 {
			return errors.NewDeviceError("subvolume %s already has an owner", name)
		}
		switch p.Type() {
		case "btrfs", "btrfs-subvolume", "btrfs-snapshot":
			return nil
		default:
			return errors.NewBTRFSValueError("%s cannot own a btrfs subvolume", p.Name())
		}
	}, func(Device) error {
		return errors.NewDeviceError("cannot remove subvolume %s's owner", name)
	})
	if err := s.SetName(name); err != nil {
		return nil, err
	}
	if err := s.AddParent(parent); err != nil {
		return nil, err
	}
	if vol := rootVolume(parent); vol != nil {
		vol.registerSubvolume(s)
	}
	return s, nil
}

func rootVolume(d Device) *BTRFSVolumeDevice {
	switch t := d.(type) {
	case *BTRFSVolumeDevice:
		return t
	case *BTRFSSubVolumeDevice:
		if t.Parents().Len() == 0 {
			return nil
		}
		return rootVolume(t.Parents().At(0))
	case *BTRFSSnapShotDevice:
		if t.Parents().Len() == 0 {
			return nil
		}
		return rootVolume(t.Parents().At(0))
	default:
		return nil
	}
}

func (s *BTRFSSubVolumeDevice) Type() string        { return "btrfs-subvolume" }
func (s *BTRFSSubVolumeDevice) IsDisk() bool        { return false }
func (s *BTRFSSubVolumeDevice) Partitionable() bool { return false }
func (s *BTRFSSubVolumeDevice) Partitioned() bool   { return false }

func (s *BTRFSSubVolumeDevice) Create() error {
	if s.Exists() {
		return errors.NewBTRFSValueError("%s already exists", s.Name())
	}
	s.SetExists(true)
	return nil
}

func (s *BTRFSSubVolumeDevice) Destroy() error {
	if !s.Exists() {
		return errors.NewBTRFSValueError("%s does not exist", s.Name())
	}
	s.SetExists(false)
	return nil
}

// BTRFSSnapShotDevice is a subvolume additionally carrying a Source,
// which must live in the same volume and already exist.
type BTRFSSnapShotDevice struct {
	BTRFSSubVolumeDevice

	Source Device
}

var _ Device = (*BTRFSSnapShotDevice)(nil)

// NewBTRFSSnapShotDevice returns a BTRFSSnapShotDevice named name,
// owned by parent and snapshotting source.
func NewBTRFSSnapShotDevice(name string, parent, source Device, subPath string) (*BTRFSSnapShotDevice, error) {
	if !source.Exists() {
		return nil, errors.NewBTRFSValueError("snapshot source %s does not exist", source.Name())
	}
	if rootVolume(parent) != rootVolume(source) {
		return nil, errors.NewBTRFSValueError("snapshot source %s is not in the same volume as %s", source.Name(), name)
	}

	s := &BTRFSSnapShotDevice{Source: source}
	s.Init(s, func(p Device) error {
		if s.Parents().Len() >= 1 {
			return errors.NewDeviceError("snapshot %s already has an owner", name)
		}
		switch p.Type() {
		case "btrfs", "btrfs-subvolume", "btrfs-snapshot":
			return nil
		default:
			return errors.NewBTRFSValueError("%s cannot own a btrfs snapshot", p.Name())
		}
	}, func(Device) error {
		return errors.NewDeviceError("cannot remove snapshot %s's owner", name)
	})
	s.SubPath = subPath
	if err := s.SetName(name); err != nil {
		return nil, err
	}
	if err := s.AddParent(parent); err != nil {
		return nil, err
	}
	if vol := rootVolume(parent); vol != nil {
		vol.registerSubvolume(s)
	}
	return s, nil
}

func (s *BTRFSSnapShotDevice) Type() string { return "btrfs-snapshot" }
