// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package populator

import (
	"sort"

	"github.com/blivet-go/blivet/device"
)

// DevicePopulator instantiates a concrete Device for a descriptor that
// has no existing device in the tree yet. Match must be cheap and
// side-effect free; Run does the actual construction and registration.
type DevicePopulator interface {
	// Priority orders helpers within the registry; higher runs first.
	Priority() int
	// Match reports whether this helper claims responsibility for d.
	Match(ctx *Context, d Descriptor) bool
	// Run constructs the device, adds it to ctx.Tree, and returns it.
	Run(ctx *Context, d Descriptor) (device.Device, error)
}

// FormatPopulator attaches a Format to dev (already in the tree) based
// on d, and may cascade into creating container devices (LVM VG/LVs,
// MD array, BTRFS volume/subvolumes, DM-RAID array, LUKS mapping).
type FormatPopulator interface {
	Priority() int
	Match(ctx *Context, d Descriptor, dev device.Device) bool
	Run(ctx *Context, d Descriptor, dev device.Device) error
}

// DeviceRegistry holds every registered DevicePopulator, sorted by
// descending priority at construction time so Dispatch can do a
// single linear scan.
type DeviceRegistry struct {
	helpers []DevicePopulator
}

// NewDeviceRegistry returns a registry containing every standard
// DevicePopulator, ordered per §4.3: the disk helpers all claim
// device_is_disk, but the more specific subtype helpers (iSCSI, FCoE,
// MD biosraid, DASD, zFCP, NVMe, NVMe-oF) carry higher priority and
// win first; Multipath/LVM/DM/MD beat the plain Disk default; Loop,
// Optical and Partition round out the list.
func NewDeviceRegistry(flags Flags) *DeviceRegistry {
	r := &DeviceRegistry{helpers: []DevicePopulator{
		partitionDevicePopulator{},
		diskDevicePopulator{},
		iscsiDevicePopulator{},
		fcoeDevicePopulator{},
		mdBiosRaidDevicePopulator{},
		dasdDevicePopulator{},
		zfcpDevicePopulator{},
		nvmeNamespaceDevicePopulator{},
		nvmeFabricsDevicePopulator{},
		loopDevicePopulator{},
		opticalDevicePopulator{},
		mdArrayDevicePopulator{},
		lvmLVDevicePopulator{},
		luksDevicePopulator{},
	}}
	if flags.Multipath {
		r.helpers = append(r.helpers, multipathDevicePopulator{})
	}
	if flags.DMRaid {
		r.helpers = append(r.helpers, dmRaidArrayDevicePopulator{})
	}
	r.sort()
	return r
}

func (r *DeviceRegistry) sort() {
	sort.SliceStable(r.helpers, func(i, j int) bool {
		return r.helpers[i].Priority() > r.helpers[j].Priority()
	})
}

// Dispatch returns the first (highest-priority) helper matching d, or
// nil if nothing claims it.
func (r *DeviceRegistry) Dispatch(ctx *Context, d Descriptor) DevicePopulator {
	for _, h := range r.helpers {
		if h.Match(ctx, d) {
			return h
		}
	}
	return nil
}

// FormatRegistry holds every registered FormatPopulator, sorted by
// descending priority.
type FormatRegistry struct {
	helpers []FormatPopulator
}

// NewFormatRegistry returns a registry containing every standard
// FormatPopulator, tried in descending priority: the boot-partition
// specializations (500) first, then DiskLabel and the container-cascade
// helpers (LVM PV, MD member, LUKS, Integrity, BTRFS member, plus the
// Multipath and DM-RAID members when their flags are set) at 100 in
// that order, and finally the generic passthrough (1) that wins when
// nothing more specific matched.
func NewFormatRegistry(flags Flags) *FormatRegistry {
	r := &FormatRegistry{helpers: []FormatPopulator{
		diskLabelFormatPopulator{},
		lvmPVFormatPopulator{},
		mdMemberFormatPopulator{},
		luksFormatPopulator{},
		integrityFormatPopulator{},
		btrfsMemberFormatPopulator{},
		efiBootFormatPopulator{},
		macEFIBootFormatPopulator{},
		appleBootFormatPopulator{},
		genericFilesystemFormatPopulator{},
	}}
	if flags.Multipath {
		r.helpers = append(r.helpers, multipathMemberFormatPopulator{})
	}
	if flags.DMRaid {
		r.helpers = append(r.helpers, dmRaidMemberFormatPopulator{})
	}
	r.sort()
	return r
}

func (r *FormatRegistry) sort() {
	sort.SliceStable(r.helpers, func(i, j int) bool {
		return r.helpers[i].Priority() > r.helpers[j].Priority()
	})
}

// Dispatch returns the first (highest-priority) helper matching
// (d, dev), or nil.
func (r *FormatRegistry) Dispatch(ctx *Context, d Descriptor, dev device.Device) FormatPopulator {
	for _, h := range r.helpers {
		if h.Match(ctx, d, dev) {
			return h
		}
	}
	return nil
}
