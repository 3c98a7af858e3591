// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package populator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blivet-go/blivet/device"
	"github.com/blivet-go/blivet/format"
	"github.com/blivet-go/blivet/log"
	"github.com/blivet-go/blivet/ops"
	"github.com/blivet-go/blivet/size"
)

// diskLabelFormatPopulator attaches a DiskLabel to a disk or dm device
// that carries a recognized partition table and is not itself a
// biosraid member (those defer to the assembled array) or an iso9660
// stamped optical image.
type diskLabelFormatPopulator struct{}

func (diskLabelFormatPopulator) Priority() int { return 100 }

func (diskLabelFormatPopulator) Match(ctx *Context, d Descriptor, dev device.Device) bool {
	if d.DiskLabelType() == "" || d.IsBiosRaidMember() || d.FsType() == "iso9660" {
		return false
	}
	if !dev.Partitionable() {
		return false
	}
	return true
}

func (diskLabelFormatPopulator) Run(ctx *Context, d Descriptor, dev device.Device) error {
	dl := format.NewDiskLabel(dev.Path(), d.DiskLabelType(), 512, ctx.Ops.DiskLabel)
	dl.SetUUID(format.ParseUUID(d.DiskLabelUUID()))
	dl.SetExists(true)
	return dev.SetFormat(dl)
}

// lvmPVFormatPopulator attaches an LVMPhysicalVolume format to a
// member device and drives the LVM cascade: finding or creating the
// owning LVMVolumeGroupDevice, then finding or creating every logical
// volume the lvmLVCache lists for that group, wiring thin pool/thin/
// snapshot relationships as it goes.
type lvmPVFormatPopulator struct{}

func (lvmPVFormatPopulator) Priority() int { return 100 }

func (lvmPVFormatPopulator) Match(ctx *Context, d Descriptor, dev device.Device) bool {
	return d.FsType() == "LVM2_member"
}

func (lvmPVFormatPopulator) Run(ctx *Context, d Descriptor, dev device.Device) error {
	pv := format.NewLVMPhysicalVolume(dev.Path(), ctx.Ops.Lvm)
	pv.SetUUID(format.ParseUUID(d.FsUUID()))
	pv.SetExists(true)

	info, haveInfo := ctx.lvmPVCache[d.FsUUID()]
	if !haveInfo || info.VGName == "" {
		// An orphan PV: no vgs/pvs row yet, or the owning VG is
		// incomplete and this PV was flagged during cache assembly.
		ctx.lvmFilterRejects[dev.Name()] = true
		return dev.SetFormat(pv)
	}
	pv.VGName = info.VGName
	pv.VGUUID = info.VGUUID
	pv.PEFree = size.Size(int64(info.PEFree))
	if err := dev.SetFormat(pv); err != nil {
		return err
	}

	vg := ctx.Tree.GetDeviceByName(info.VGName, true)
	vgDev, ok := vg.(*device.LVMVolumeGroupDevice)
	if !ok {
		v, err := device.NewLVMVolumeGroupDevice(info.VGName, size.Size(int64(info.PESize)), ctx.Ops.Lvm)
		if err != nil {
			return err
		}
		v.SetUUID(device.ParseUUID(info.VGUUID))
		v.SetExists(info.VGExists)
		vgDev = v
		if err := ctx.Tree.AddDevice(vgDev); err != nil {
			return err
		}
		ctx.recordName(vgDev.Name())
	}
	if err := vgDev.AddParent(dev); err != nil {
		return err
	}

	return lvmCreateLVs(ctx, vgDev, info.VGName)
}

// lvmCreateLVs finds or creates every LVMLogicalVolumeDevice the
// context's lvmLVCache lists for vgName, ordered so thin pools and
// snapshot origins are created before the LVs that reference them
// (three passes: ordinary/pool LVs first, then thin/snapshot LVs, then
// LVM's internal sub-LVs).
func lvmCreateLVs(ctx *Context, vg *device.LVMVolumeGroupDevice, vgName string) error {
	rows := ctx.lvmLVCache[vgName]

	byName := make(map[string]*device.LVMLogicalVolumeDevice)
	lookup := func(lvName string) *device.LVMLogicalVolumeDevice {
		if lv, ok := byName[lvName]; ok {
			return lv
		}
		if existing := ctx.Tree.GetDeviceByName(vgName+"-"+lvName, true); existing != nil {
			if lv, ok := existing.(*device.LVMLogicalVolumeDevice); ok {
				byName[lvName] = lv
				return lv
			}
		}
		return nil
	}

	create := func(row LVMLVInfo) (*device.LVMLogicalVolumeDevice, error) {
		if lv := lookup(row.LVName); lv != nil {
			return lv, nil
		}
		lv, err := device.NewLVMLogicalVolumeDevice(row.LVName, vg, lvmSegType(row.Attr, row.SegType), ctx.Ops.Lvm)
		if err != nil {
			return nil, err
		}
		lv.SetExists(true)
		lv.SetSize(size.Size(int64(row.SizeBytes)))
		lv.Copies = lvmMirrorCopies(row.Attr)
		uuid := device.ParseUUID(row.UUID)
		lv.SetUUID(uuid)
		lv.SetDeviceID("LVM-" + uuid)
		if err := ctx.Tree.AddDevice(lv); err != nil {
			return nil, err
		}
		byName[row.LVName] = lv
		ctx.recordName(lv.Name())
		return lv, nil
	}

	// Pass 1: pools and plain/linear/striped/mirror LVs, which never
	// reference another LV by name.
	for _, row := range rows {
		if isInternalLVRow(row) {
			continue
		}
		if row.PoolLV != "" || row.Origin != "" {
			continue
		}
		if _, err := create(row); err != nil {
			return err
		}
	}
	// Pass 2: thin volumes (reference their pool) and snapshots
	// (reference their origin).
	for _, row := range rows {
		if isInternalLVRow(row) {
			continue
		}
		if row.PoolLV == "" && row.Origin == "" {
			continue
		}
		lv, err := create(row)
		if err != nil {
			return err
		}
		if row.PoolLV != "" {
			lv.Pool = lookup(row.PoolLV)
		}
		if row.Origin != "" {
			lv.Origin = lookup(row.Origin)
		}
	}
	// Pass 3: internal LVs (lvm2 attr codes i|r|e|I|l|T|C|o, name
	// bracketed like "[lvol0_tdata]"): LVM's hidden per-LV metadata/data
	// sub-volumes. Created with no logical parent LV, the same way the
	// cascade this is grounded on defers assigning it; the parent is
	// resolved afterward by stripping the reserved suffix from the
	// bracketed name and looking up the result among the LVs already
	// created above.
	for _, row := range rows {
		if !isInternalLVRow(row) {
			continue
		}
		stripped := row
		stripped.LVName = strings.Trim(row.LVName, "[]")
		lv, err := create(stripped)
		if err != nil {
			return err
		}
		if !lv.Internal() {
			continue
		}
		if parentName := device.ParentLVName(row.LVName); parentName != "" {
			lv.ParentLV = lookup(parentName)
		}
	}
	return nil
}

// isInternalLVRow reports whether row describes one of LVM's reserved
// internal sub-LVs rather than a volume a caller would ever address
// directly.
func isInternalLVRow(row LVMLVInfo) bool {
	if row.Attr == "" || !strings.HasSuffix(row.LVName, "]") {
		return false
	}
	return strings.ContainsRune("ireIlTCo", rune(row.Attr[0]))
}

// lvmSegType maps an lvs attribute string's volume-type character
// (column 1 of the lvm2 attr field) to a SegType, falling back to the
// cache's own SegType string when the attribute is unrecognized.
func lvmSegType(attr, segType string) device.SegType {
	if len(attr) > 0 {
		switch attr[0] {
		case 't':
			return device.SegThinPool
		case 'V':
			return device.SegThin
		case 's':
			return device.SegSnapshot
		case 'm', 'M':
			return device.SegMirror
		}
	}
	switch segType {
	case "thin-pool":
		return device.SegThinPool
	case "thin":
		return device.SegThin
	case "snapshot":
		return device.SegSnapshot
	case "mirror":
		return device.SegMirror
	case "striped":
		return device.SegStriped
	case "cache", "cache-pool":
		return device.SegCached
	case "vdo", "vdo-pool":
		return device.SegVDO
	default:
		return device.SegLinear
	}
}

// lvmMirrorCopies reads the lvs attribute string's copies column
// (digit at index 8) when present, defaulting to 1.
func lvmMirrorCopies(attr string) int {
	if len(attr) > 8 {
		if n, err := strconv.Atoi(string(attr[8])); err == nil && n > 0 {
			return n
		}
	}
	return 1
}

// mdMemberFormatPopulator attaches an MDRaidMember format to a device
// and drives the MD cascade: finding or creating the MDRaidArrayDevice
// the member's examine-cache entry (keyed by member path) names.
type mdMemberFormatPopulator struct{}

func (mdMemberFormatPopulator) Priority() int { return 100 }

func (mdMemberFormatPopulator) Match(ctx *Context, d Descriptor, dev device.Device) bool {
	return d.IsMD() || d.IsBiosRaidMember()
}

func (mdMemberFormatPopulator) Run(ctx *Context, d Descriptor, dev device.Device) error {
	mm := format.NewMDRaidMember(dev.Path(), ctx.Ops.Md)
	mm.MDUUID = d.MDUUID()
	mm.BiosRaid = d.IsBiosRaidMember()
	mm.SetExists(true)
	if err := dev.SetFormat(mm); err != nil {
		return err
	}

	info, ok := ctx.mdExamine[dev.Path()]
	if !ok {
		// No mdadm --examine row yet (array not yet assembled); the
		// member-only fallback path (mdArrayDevicePopulator) will pick
		// this up on a later pass once assembly completes.
		return nil
	}

	arr := ctx.Tree.GetDeviceByUUID(info.ArrayUUID, true, true)
	arrDev, ok := arr.(*device.MDRaidArrayDevice)
	if !ok {
		arrName := info.Container
		if arrName == "" {
			arrName = "md-" + info.ArrayUUID
		}
		a, err := device.NewMDRaidArrayDevice(arrName, device.MDLevel(info.Level), ctx.Ops.Md)
		if err != nil {
			return err
		}
		a.SetUUID(device.ParseUUID(info.ArrayUUID))
		a.SetDeviceID(arrName)
		a.SetExists(true)
		arrDev = a
		if err := ctx.Tree.AddDevice(arrDev); err != nil {
			return err
		}
		ctx.recordName(arrDev.Name())
	}
	return arrDev.AddParent(dev)
}

// luksFormatPopulator attaches a LUKS format to a member device. It
// never opens the mapping itself (that requires a passphrase the
// populator only has if the caller supplied one via Config); it just
// records MapName so the cleartext device can be matched to this
// header once discovery encounters the mapped node (see
// luksDevicePopulator / luksBackingDevice in device_helpers.go).
type luksFormatPopulator struct{}

func (luksFormatPopulator) Priority() int { return 100 }

func (luksFormatPopulator) Match(ctx *Context, d Descriptor, dev device.Device) bool {
	return d.IsLuks()
}

func (luksFormatPopulator) Run(ctx *Context, d Descriptor, dev device.Device) error {
	version := d.LuksVersion()
	if version == "" {
		version = "luks1"
	}
	l := format.NewLUKS(dev.Path(), version, ctx.Ops.Crypto)
	l.SetUUID(format.ParseUUID(d.LuksUUID()))
	l.SetExists(true)

	holders := d.Holders()
	switch {
	case len(holders) > 0:
		l.MapName = holders[0]
	default:
		l.MapName = "luks-" + d.LuksUUID()
	}

	if pass, ok := ctx.Config.LUKSPassphraseByID[d.LuksUUID()]; ok {
		l.Passphrase = pass
	} else if len(ctx.Config.LUKSPassphrases) > 0 {
		l.Passphrase = ctx.Config.LUKSPassphrases[0]
	} else if ctx.Config.Interactive {
		phrase, err := ops.PromptPassphrase(fmt.Sprintf("Passphrase for %s", dev.Name()))
		if err != nil {
			log.Warning("no passphrase recorded for %s: %v", dev.Name(), err)
		} else {
			l.Passphrase = phrase
		}
	}

	return dev.SetFormat(l)
}

// btrfsMemberFormatPopulator attaches a BTRFSMember format and drives
// the BTRFS cascade: finding or creating the BTRFSVolumeDevice every
// member sharing this filesystem's VolUUID belongs to.
type btrfsMemberFormatPopulator struct{}

func (btrfsMemberFormatPopulator) Priority() int { return 100 }

func (btrfsMemberFormatPopulator) Match(ctx *Context, d Descriptor, dev device.Device) bool {
	return d.FsType() == "btrfs"
}

func (btrfsMemberFormatPopulator) Run(ctx *Context, d Descriptor, dev device.Device) error {
	fsUUID := format.ParseUUID(d.FsUUID())
	bm := format.NewBTRFSMember(dev.Path(), d.FsUUIDSub(), fsUUID)
	if err := dev.SetFormat(bm); err != nil {
		return err
	}

	volName := "btrfs-" + fsUUID
	vol := ctx.Tree.GetDeviceByName(volName, true)
	volDev, ok := vol.(*device.BTRFSVolumeDevice)
	if !ok {
		v, err := device.NewBTRFSVolumeDevice(volName, fsUUID)
		if err != nil {
			return err
		}
		v.SetUUID(fsUUID)
		v.SetDeviceID("BTRFS-" + fsUUID)
		v.SetExists(true)
		volDev = v
		if err := ctx.Tree.AddDevice(volDev); err != nil {
			return err
		}
		ctx.recordName(volDev.Name())
	}
	if err := volDev.AddParent(dev); err != nil {
		return err
	}
	return synthesizeBTRFSSubvolumes(ctx, volDev, fsUUID)
}

// bootFormatPopulator is the shared match/attach logic for the
// platform-specific bootable-partition format specializations: EFI
// (vfat ESP), Mac EFI (hfsplus on an Apple_Boot-named slot) and Apple
// PowerMac boot (plain hfs). Each only claims a Partition already
// flagged bootable, carrying the base filesystem type the
// specialization narrows; MD arrays are not claimed.
type bootFormatPopulator struct {
	fsType     string
	minSize    size.Size
	maxSize    size.Size
}

func (b bootFormatPopulator) matchBase(ctx *Context, d Descriptor, dev device.Device) bool {
	if d.FsType() != b.fsType {
		return false
	}
	part, ok := dev.(*device.Partition)
	if !ok {
		return false
	}
	if !part.Bootable {
		return false
	}
	sz := dev.Size()
	return sz >= b.minSize && (b.maxSize == 0 || sz <= b.maxSize)
}

func (b bootFormatPopulator) run(ctx *Context, d Descriptor, dev device.Device) error {
	fs := format.NewFilesystem(dev.Path(), b.fsType, ctx.Ops.Fs)
	fs.SetUUID(format.ParseUUID(d.FsUUID()))
	fs.SetLabel(d.FsLabel())
	fs.SetExists(true)
	return dev.SetFormat(fs)
}

var efiBootShape = bootFormatPopulator{fsType: "vfat", minSize: 16 * size.M, maxSize: 1 * size.T}

type efiBootFormatPopulator struct{}

func (efiBootFormatPopulator) Priority() int { return 500 }
func (efiBootFormatPopulator) Match(ctx *Context, d Descriptor, dev device.Device) bool {
	return efiBootShape.matchBase(ctx, d, dev)
}
func (efiBootFormatPopulator) Run(ctx *Context, d Descriptor, dev device.Device) error {
	return efiBootShape.run(ctx, d, dev)
}

var macEFIBootShape = bootFormatPopulator{fsType: "hfsplus", minSize: 1 * size.M, maxSize: 8 * size.P}

type macEFIBootFormatPopulator struct{}

func (macEFIBootFormatPopulator) Priority() int { return 500 }
func (macEFIBootFormatPopulator) Match(ctx *Context, d Descriptor, dev device.Device) bool {
	if !macEFIBootShape.matchBase(ctx, d, dev) {
		return false
	}
	// Mac EFI's ESP equivalent is carried as a partition named
	// "Apple_Boot" rather than by type GUID alone.
	return d.PartitionType() == "Apple_Boot" || d.FsLabel() == "EFI"
}
func (macEFIBootFormatPopulator) Run(ctx *Context, d Descriptor, dev device.Device) error {
	return macEFIBootShape.run(ctx, d, dev)
}

var appleBootShape = bootFormatPopulator{fsType: "hfs", minSize: 1 * size.M, maxSize: 2 * size.T}

type appleBootFormatPopulator struct{}

func (appleBootFormatPopulator) Priority() int { return 500 }
func (appleBootFormatPopulator) Match(ctx *Context, d Descriptor, dev device.Device) bool {
	return appleBootShape.matchBase(ctx, d, dev)
}
func (appleBootFormatPopulator) Run(ctx *Context, d Descriptor, dev device.Device) error {
	return appleBootShape.run(ctx, d, dev)
}

// genericFilesystemFormatPopulator is the lowest-priority catch-all:
// any fstype none of the more specific helpers claimed is attached as
// a plain Filesystem, including unrecognized types (Filesystem itself
// reports Supported()==false for those, matching the passthrough
// behavior of an unknown format in the original).
type genericFilesystemFormatPopulator struct{}

func (genericFilesystemFormatPopulator) Priority() int { return 1 }

func (genericFilesystemFormatPopulator) Match(ctx *Context, d Descriptor, dev device.Device) bool {
	return d.FsType() != ""
}

func (genericFilesystemFormatPopulator) Run(ctx *Context, d Descriptor, dev device.Device) error {
	fs := format.NewFilesystem(dev.Path(), d.FsType(), ctx.Ops.Fs)
	fs.SetUUID(format.ParseUUID(d.FsUUID()))
	fs.SetLabel(d.FsLabel())
	fs.SetExists(true)
	return dev.SetFormat(fs)
}

// multipathMemberFormatPopulator attaches a MultipathMember format to
// a path device once its DM_WWN/WWID is known; the blkid-reported
// uuid/label on the individual path belong to whatever is stacked on
// top of the assembled multipath map, not the path itself, so neither
// is copied here.
type multipathMemberFormatPopulator struct{}

func (multipathMemberFormatPopulator) Priority() int { return 100 }

func (multipathMemberFormatPopulator) Match(ctx *Context, d Descriptor, dev device.Device) bool {
	return d.IsDisk() && d.WWID() != "" && len(ctx.multipath) > 0 && ctx.multipath[d.WWID()].WWID != ""
}

func (multipathMemberFormatPopulator) Run(ctx *Context, d Descriptor, dev device.Device) error {
	mm := format.NewMultipathMember(dev.Path(), d.WWID())
	return dev.SetFormat(mm)
}

// integrityFormatPopulator attaches a dm-integrity Wrapper format to a
// device the kernel reports as the raw member of an (already mapped)
// dm-integrity node. Like DMRaidMember/MultipathMember, this is
// read-only recognition: the core has no ops interface to set up or
// tear down an integrity device, so the mapped node itself is left to
// whatever higher-level tool opened it, the same way a LUKS mapping's
// cleartext device is surfaced separately by luksDevicePopulator.
type integrityFormatPopulator struct{}

func (integrityFormatPopulator) Priority() int { return 100 }

func (integrityFormatPopulator) Match(ctx *Context, d Descriptor, dev device.Device) bool {
	return d.IsDMIntegrity()
}

func (integrityFormatPopulator) Run(ctx *Context, d Descriptor, dev device.Device) error {
	return dev.SetFormat(format.NewIntegrity(dev.Path()))
}

// dmRaidMemberFormatPopulator attaches a DMRaidMember format to a
// member of a firmware/BIOS dmraid set and, once the member's raid
// set name is known (via the mdExamine cache, this core's stand-in
// for blockdev.dm.get_member_raid_sets), finds or creates the
// DMRaidArrayDevice for that set.
type dmRaidMemberFormatPopulator struct{}

func (dmRaidMemberFormatPopulator) Priority() int { return 100 }

func (dmRaidMemberFormatPopulator) Match(ctx *Context, d Descriptor, dev device.Device) bool {
	return d.IsBiosRaidMember() && d.MDContainer() == ""
}

func (dmRaidMemberFormatPopulator) Run(ctx *Context, d Descriptor, dev device.Device) error {
	info, haveSet := ctx.mdExamine[dev.Path()]
	setName := info.Container

	dm := format.NewDMRaidMember(dev.Path(), setName)
	if err := dev.SetFormat(dm); err != nil {
		return err
	}
	if !haveSet || setName == "" {
		return nil
	}

	arr := ctx.Tree.GetDeviceByName(setName, true)
	arrDev, ok := arr.(*device.DMRaidArrayDevice)
	if !ok {
		a, err := device.NewDMRaidArrayDevice(setName, setName, ctx.Ops.Dm)
		if err != nil {
			return err
		}
		a.SetDeviceID(setName)
		a.SetExists(true)
		arrDev = a
		if err := ctx.Tree.AddDevice(arrDev); err != nil {
			return err
		}
		ctx.recordName(arrDev.Name())
	}
	return arrDev.AddParent(dev)
}
