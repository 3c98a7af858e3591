// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package device

import (
	"strings"

	"github.com/blivet-go/blivet/errors"
	"github.com/blivet-go/blivet/ops"
)

// MDLevel is a software RAID level, including the two pseudo-levels
// used for container/biosraid modeling.
type MDLevel string

const (
	MDLevelLinear    MDLevel = "linear"
	MDLevel0         MDLevel = "raid0"
	MDLevel1         MDLevel = "raid1"
	MDLevel4         MDLevel = "raid4"
	MDLevel5         MDLevel = "raid5"
	MDLevel6         MDLevel = "raid6"
	MDLevel10        MDLevel = "raid10"
	MDLevelContainer MDLevel = "container"
)

// minMembers is the smallest member count each level tolerates,
// grounded on mdadm's own level validation.
var minMembers = map[MDLevel]int{
	MDLevelLinear:    2,
	MDLevel0:         2,
	MDLevel1:         2,
	MDLevel4:         3,
	MDLevel5:         3,
	MDLevel6:         4,
	MDLevel10:        2,
	MDLevelContainer: 1,
}

// MDRaidArrayDevice is a software RAID array. Container and biosraid
// instances model Intel/Dell firmware RAID: the container device's
// children are the member-set metadata devices, and real arrays are
// built as children of the container.
type MDRaidArrayDevice struct {
	Base

	Level           MDLevel
	MetadataVersion string
	ChunkSize       uint64
	MDUUID          string // array UUID

	// BiosRaid marks this array as belonging to a firmware/BIOS RAID
	// container rather than being a plain native MD array.
	BiosRaid bool
	// Container marks this array as the fwraid container device
	// itself (a synthetic parent holding the member disks).
	Container bool

	spares int

	ops ops.MdOps
}

var _ Device = (*MDRaidArrayDevice)(nil)

// NewMDRaidArrayDevice returns an MDRaidArrayDevice named name at the
// given level.
func NewMDRaidArrayDevice(name string, level MDLevel, o ops.MdOps) (*MDRaidArrayDevice, error) {
	m := &MDRaidArrayDevice{Level: level, MetadataVersion: "1.2", ops: o}
	m.Init(m, func(parent Device) error {
		if !parent.IsDisk() && parent.Type() != "partition" && parent.Type() != "lvmlv" {
			return errors.NewNoSlavesError("%s is not a valid MD member type", parent.Name())
		}
		return nil
	}, func(Device) error {
		min := minMembers[m.Level]
		if m.Parents().Len()-1 < min {
			return errors.NewRaidError("removing a member of %s would leave fewer than %d members for level %s", name, min, m.Level)
		}
		return nil
	})
	if err := m.SetName(name); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MDRaidArrayDevice) Type() string        { return "mdarray" }
func (m *MDRaidArrayDevice) IsDisk() bool        { return true }
func (m *MDRaidArrayDevice) Partitionable() bool { return true }
func (m *MDRaidArrayDevice) Partitioned() bool   { return m.Format() != nil && m.Format().Type() == "disklabel" }

// TotalDevices is the member count, including spares.
func (m *MDRaidArrayDevice) TotalDevices() int { return m.Parents().Len() }

// Spares is the member count beyond what the level requires for full
// redundancy, derived rather than stored so it can't drift.
func (m *MDRaidArrayDevice) Spares() int {
	need := minMembers[m.Level]
	if m.Parents().Len() <= need {
		return 0
	}
	return m.Parents().Len() - need
}

// MDAdmFormatUUID renders MDUUID in mdadm's canonical colon-grouped
// form (xxxxxxxx:xxxxxxxx:xxxxxxxx:xxxxxxxx) from the plain hex form.
func (m *MDRaidArrayDevice) MDAdmFormatUUID() string {
	hex := strings.ReplaceAll(m.MDUUID, "-", "")
	if len(hex) != 32 {
		return m.MDUUID
	}
	return hex[0:8] + ":" + hex[8:16] + ":" + hex[16:24] + ":" + hex[24:32]
}

func (m *MDRaidArrayDevice) Create() error {
	if m.Exists() {
		return errors.NewMDRaidError(nil, "%s already exists", m.Name())
	}
	min := minMembers[m.Level]
	if m.Parents().Len() < min {
		return errors.NewRaidError("level %s needs at least %d members, got %d", m.Level, min, m.Parents().Len())
	}

	members := make([]string, 0, m.Parents().Len())
	for _, p := range m.Parents().Slice() {
		members = append(members, p.Path())
	}
	if err := m.ops.Create(m.Path(), string(m.Level), members, m.MetadataVersion, m.Spares()); err != nil {
		return errors.NewMDRaidError(err, "create %s", m.Name())
	}
	m.SetExists(true)
	return nil
}

func (m *MDRaidArrayDevice) Destroy() error {
	if !m.Exists() {
		return errors.NewMDRaidError(nil, "%s does not exist", m.Name())
	}
	if err := m.ops.Stop(m.Path()); err != nil {
		return errors.NewMDRaidError(err, "stop %s", m.Name())
	}
	m.SetExists(false)
	return nil
}
