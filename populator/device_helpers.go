// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package populator

import (
	"strconv"

	"github.com/blivet-go/blivet/device"
	"github.com/blivet-go/blivet/format"
)

// diskDevicePopulator is the fallback for any whole-disk descriptor
// that no more specific disk subtype helper claims.
type diskDevicePopulator struct{}

func (diskDevicePopulator) Priority() int { return 10 }
func (diskDevicePopulator) Match(ctx *Context, d Descriptor) bool {
	return d.IsDisk() && !d.IsLoop()
}
func (diskDevicePopulator) Run(ctx *Context, d Descriptor) (device.Device, error) {
	disk, err := device.NewDisk(d.Name())
	if err != nil {
		return nil, err
	}
	applyDiskAttrs(disk, d)
	if err := ctx.Tree.AddDevice(disk); err != nil {
		return nil, err
	}
	return disk, nil
}

func applyDiskAttrs(disk *device.Disk, d Descriptor) {
	disk.SetDeviceID(d.Name())
	disk.SetSysfsPath(d.SysfsPath())
	disk.SetPath(d.DevPath())
	disk.Serial = d.Serial()
	disk.Vendor = d.Vendor()
	disk.Model = d.Model()
	disk.Bus = d.Bus()
	disk.WWN = d.WWN()
	for _, s := range d.Symlinks() {
		disk.AddSymlink(s)
	}
	disk.SetStatus("ro")
	if !d.ReadOnly() {
		disk.SetStatus("rw")
	}
}

// iscsiDevicePopulator claims disks attached over iSCSI, carrying the
// iSCSI session's target/portal/iface/lun alongside the base disk kwargs.
type iscsiDevicePopulator struct{}

func (iscsiDevicePopulator) Priority() int { return 20 }
func (iscsiDevicePopulator) Match(ctx *Context, d Descriptor) bool {
	return d.IsDisk() && d.IsISCSI()
}
func (iscsiDevicePopulator) Run(ctx *Context, d Descriptor) (device.Device, error) {
	disk, err := device.NewDisk(d.Name())
	if err != nil {
		return nil, err
	}
	applyDiskAttrs(disk, d)
	disk.Protocol = "iscsi"
	disk.ISCSITarget = d.ISCSITarget()
	disk.ISCSIPortal = d.ISCSIPortal()
	disk.ISCSIIface = d.ISCSIIface()
	disk.ISCSILun = strconv.FormatUint(d.ISCSILun(), 10)
	if err := ctx.Tree.AddDevice(disk); err != nil {
		return nil, err
	}
	return disk, nil
}

// fcoeDevicePopulator claims disks attached over Fibre Channel over Ethernet.
type fcoeDevicePopulator struct{}

func (fcoeDevicePopulator) Priority() int { return 20 }
func (fcoeDevicePopulator) Match(ctx *Context, d Descriptor) bool {
	return d.IsDisk() && d.IsFCoE()
}
func (fcoeDevicePopulator) Run(ctx *Context, d Descriptor) (device.Device, error) {
	disk, err := device.NewDisk(d.Name())
	if err != nil {
		return nil, err
	}
	applyDiskAttrs(disk, d)
	disk.Protocol = "fcoe"
	disk.FCoENic = d.FCoENic()
	disk.FCoEIdentifier = d.FCoEIdentifier()
	if err := ctx.Tree.AddDevice(disk); err != nil {
		return nil, err
	}
	return disk, nil
}

// mdBiosRaidDevicePopulator claims MD container members assembled by
// firmware/BIOS RAID (isw, ddf): the container disk itself, not its
// member components.
type mdBiosRaidDevicePopulator struct{}

func (mdBiosRaidDevicePopulator) Priority() int { return 20 }
func (mdBiosRaidDevicePopulator) Match(ctx *Context, d Descriptor) bool {
	return d.IsDisk() && d.MDContainer() != ""
}
func (mdBiosRaidDevicePopulator) Run(ctx *Context, d Descriptor) (device.Device, error) {
	disk, err := device.NewDisk(d.Name())
	if err != nil {
		return nil, err
	}
	applyDiskAttrs(disk, d)
	if err := ctx.Tree.AddDevice(disk); err != nil {
		return nil, err
	}
	return disk, nil
}

// dasdDevicePopulator claims s390x DASD disks.
type dasdDevicePopulator struct{}

func (dasdDevicePopulator) Priority() int { return 20 }
func (dasdDevicePopulator) Match(ctx *Context, d Descriptor) bool {
	return d.IsDisk() && d.IsDASD()
}
func (dasdDevicePopulator) Run(ctx *Context, d Descriptor) (device.Device, error) {
	disk, err := device.NewDisk(d.Name())
	if err != nil {
		return nil, err
	}
	applyDiskAttrs(disk, d)
	disk.Protocol = "dasd"
	disk.DASDBusID = d.DASDBusID()
	if err := ctx.Tree.AddDevice(disk); err != nil {
		return nil, err
	}
	return disk, nil
}

// zfcpDevicePopulator claims s390x zFCP-attached SCSI disks.
type zfcpDevicePopulator struct{}

func (zfcpDevicePopulator) Priority() int { return 20 }
func (zfcpDevicePopulator) Match(ctx *Context, d Descriptor) bool {
	return d.IsDisk() && d.IsZFCP()
}
func (zfcpDevicePopulator) Run(ctx *Context, d Descriptor) (device.Device, error) {
	disk, err := device.NewDisk(d.Name())
	if err != nil {
		return nil, err
	}
	applyDiskAttrs(disk, d)
	disk.Protocol = "zfcp"
	disk.ZFCPHBA = d.ZFCPHBA()
	disk.ZFCPWWPN = d.ZFCPWWPN()
	disk.ZFCPLun = d.ZFCPLun()
	if err := ctx.Tree.AddDevice(disk); err != nil {
		return nil, err
	}
	return disk, nil
}

// nvmeNamespaceDevicePopulator claims locally-attached NVMe namespaces.
type nvmeNamespaceDevicePopulator struct{}

func (nvmeNamespaceDevicePopulator) Priority() int { return 20 }
func (nvmeNamespaceDevicePopulator) Match(ctx *Context, d Descriptor) bool {
	return d.IsDisk() && d.IsNVMe()
}
func (nvmeNamespaceDevicePopulator) Run(ctx *Context, d Descriptor) (device.Device, error) {
	disk, err := device.NewDisk(d.Name())
	if err != nil {
		return nil, err
	}
	applyDiskAttrs(disk, d)
	disk.Protocol = "nvme"
	disk.NVMeNsid = strconv.FormatUint(d.NVMeNsid(), 10)
	if err := ctx.Tree.AddDevice(disk); err != nil {
		return nil, err
	}
	return disk, nil
}

// nvmeFabricsDevicePopulator claims NVMe-oF (fabrics-attached) namespaces.
type nvmeFabricsDevicePopulator struct{}

func (nvmeFabricsDevicePopulator) Priority() int { return 20 }
func (nvmeFabricsDevicePopulator) Match(ctx *Context, d Descriptor) bool {
	return d.IsDisk() && d.IsNVMeFabrics()
}
func (nvmeFabricsDevicePopulator) Run(ctx *Context, d Descriptor) (device.Device, error) {
	disk, err := device.NewDisk(d.Name())
	if err != nil {
		return nil, err
	}
	applyDiskAttrs(disk, d)
	disk.Protocol = "nvme-of"
	disk.NVMeNsid = strconv.FormatUint(d.NVMeNsid(), 10)
	disk.NVMeOFTransport = d.NVMeFabricsTransport()
	if err := ctx.Tree.AddDevice(disk); err != nil {
		return nil, err
	}
	return disk, nil
}

// partitionDevicePopulator claims partitions of an already-discovered
// disk. priority=0: every disk subtype helper must get first refusal
// since a partition node can otherwise look like a disk on DM stacks.
type partitionDevicePopulator struct{}

func (partitionDevicePopulator) Priority() int { return 0 }
func (partitionDevicePopulator) Match(ctx *Context, d Descriptor) bool {
	return d.IsPartition()
}
func (partitionDevicePopulator) Run(ctx *Context, d Descriptor) (device.Device, error) {
	diskName := d.PartitionDisk()
	disk := ctx.Tree.GetDeviceByName(diskName, false)
	if disk == nil {
		return nil, nil
	}
	part, err := device.NewPartition(d.Name(), disk, ctx.Ops.DiskLabel)
	if err != nil {
		return nil, err
	}
	part.SetDeviceID(d.Name())
	part.SetSysfsPath(d.SysfsPath())
	part.SetPath(d.DevPath())
	part.SetUUID(device.ParseUUID(d.PartitionUUID()))
	part.PartNumber = d.PartitionNumber()
	part.StartSector = d.PartitionStart()
	part.EndSector = d.PartitionEnd()
	part.PartTypeUUID = d.PartitionType()
	part.SetExists(true)
	for _, s := range d.Symlinks() {
		part.AddSymlink(s)
	}
	if err := ctx.Tree.AddDevice(part); err != nil {
		return nil, err
	}
	return part, nil
}

// loopDevicePopulator claims loop devices with a backing file.
type loopDevicePopulator struct{}

func (loopDevicePopulator) Priority() int { return 20 }
func (loopDevicePopulator) Match(ctx *Context, d Descriptor) bool {
	return d.IsLoop() && d.BackingFile() != ""
}
func (loopDevicePopulator) Run(ctx *Context, d Descriptor) (device.Device, error) {
	backing := ctx.Tree.GetDeviceByPath(d.BackingFile(), false)
	var file *device.FileDevice
	if backing == nil {
		f, err := device.NewFileDevice(d.BackingFile())
		if err != nil {
			return nil, err
		}
		f.SetExists(true)
		if err := ctx.Tree.AddDevice(f); err != nil {
			return nil, err
		}
		file = f
	} else {
		var ok bool
		file, ok = backing.(*device.FileDevice)
		if !ok {
			return nil, nil
		}
	}
	loop, err := device.NewLoopDevice(d.Name(), file)
	if err != nil {
		return nil, err
	}
	loop.SetDeviceID(d.Name())
	loop.SetSysfsPath(d.SysfsPath())
	loop.SetPath(d.DevPath())
	loop.SetExists(true)
	if err := ctx.Tree.AddDevice(loop); err != nil {
		return nil, err
	}
	return loop, nil
}

// opticalDevicePopulator claims CD/DVD drives.
type opticalDevicePopulator struct{}

func (opticalDevicePopulator) Priority() int { return 20 }
func (opticalDevicePopulator) Match(ctx *Context, d Descriptor) bool {
	return d.IsDisk() && d.IsOptical()
}
func (opticalDevicePopulator) Run(ctx *Context, d Descriptor) (device.Device, error) {
	opt, err := device.NewOpticalDevice(d.Name())
	if err != nil {
		return nil, err
	}
	opt.SetDeviceID(d.Name())
	opt.SetSysfsPath(d.SysfsPath())
	opt.SetPath(d.DevPath())
	opt.SetExists(true)
	if err := ctx.Tree.AddDevice(opt); err != nil {
		return nil, err
	}
	return opt, nil
}

// multipathDevicePopulator claims a dm-mpath node once at least one
// member disk tagged with its wwid has been discovered, and builds it
// from the members discovered so far.
type multipathDevicePopulator struct{}

func (multipathDevicePopulator) Priority() int { return 100 }
func (multipathDevicePopulator) Match(ctx *Context, d Descriptor) bool {
	return d.IsDMMultipath() && !d.IsDMPartition()
}
func (multipathDevicePopulator) Run(ctx *Context, d Descriptor) (device.Device, error) {
	wwid := d.WWID()
	var members []device.Device
	for _, name := range ctx.names {
		dev := ctx.Tree.GetDeviceByName(name, false)
		if dev == nil {
			continue
		}
		if mm, ok := dev.Format().(*format.MultipathMember); ok && mm.WWID == wwid {
			members = append(members, dev)
		}
	}
	if len(members) == 0 {
		return nil, nil
	}
	mp, err := device.NewMultipathDevice(d.Name(), wwid, ctx.Ops.Dm)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if err := mp.AddParent(m); err != nil {
			return nil, err
		}
	}
	mp.SetDeviceID(d.Name())
	mp.SetSysfsPath(d.SysfsPath())
	mp.SetPath(d.DevPath())
	mp.SetExists(true)
	if err := ctx.Tree.AddDevice(mp); err != nil {
		return nil, err
	}
	return mp, nil
}

// dmRaidArrayDevicePopulator is the fallback path for a dmraid set
// descriptor that the DMRaid format cascade (see format_helpers.go)
// hasn't already created via direct construction.
type dmRaidArrayDevicePopulator struct{}

func (dmRaidArrayDevicePopulator) Priority() int { return 20 }
func (dmRaidArrayDevicePopulator) Match(ctx *Context, d Descriptor) bool {
	return d.IsDMRaid() && !d.IsDMPartition()
}
func (dmRaidArrayDevicePopulator) Run(ctx *Context, d Descriptor) (device.Device, error) {
	if existing := ctx.Tree.GetDeviceByName(d.DMName(), false); existing != nil {
		return existing, nil
	}
	arr, err := device.NewDMRaidArrayDevice(d.DMName(), d.DMName(), ctx.Ops.Dm)
	if err != nil {
		return nil, err
	}
	arr.SetDeviceID(d.DMName())
	arr.SetSysfsPath(d.SysfsPath())
	arr.SetPath(d.DevPath())
	arr.SetExists(true)
	if err := ctx.Tree.AddDevice(arr); err != nil {
		return nil, err
	}
	return arr, nil
}

// mdArrayDevicePopulator is the fallback path for an MD array whose
// uuid the MD cascade (format_helpers.go) hasn't already registered,
// e.g. an array assembled before blivet-go started.
type mdArrayDevicePopulator struct{}

func (mdArrayDevicePopulator) Priority() int { return 15 }
func (mdArrayDevicePopulator) Match(ctx *Context, d Descriptor) bool {
	return d.IsDisk() && d.MDUUID() != "" && d.MDContainer() == ""
}
func (mdArrayDevicePopulator) Run(ctx *Context, d Descriptor) (device.Device, error) {
	mdUUID := device.ParseUUID(d.MDUUID())
	if existing := ctx.Tree.GetDeviceByUUID(mdUUID, false, true); existing != nil {
		return existing, nil
	}
	arr, err := device.NewMDRaidArrayDevice(d.Name(), device.MDLevel(d.MDLevel()), ctx.Ops.Md)
	if err != nil {
		return nil, err
	}
	arr.SetUUID(mdUUID)
	arr.SetDeviceID(d.Name())
	arr.SetSysfsPath(d.SysfsPath())
	arr.SetPath(d.DevPath())
	arr.SetExists(true)
	if err := ctx.Tree.AddDevice(arr); err != nil {
		return nil, err
	}
	return arr, nil
}

// lvmLVDevicePopulator is the fallback path for an activated LV node
// the LVM cascade (format_helpers.go) hasn't already created; in
// practice the cascade runs first so this rarely fires, but it keeps
// the registry contract honest for LVs activated out from under us.
type lvmLVDevicePopulator struct{}

func (lvmLVDevicePopulator) Priority() int { return 15 }
func (lvmLVDevicePopulator) Match(ctx *Context, d Descriptor) bool {
	return d.has("DM_LV_NAME")
}
func (lvmLVDevicePopulator) Run(ctx *Context, d Descriptor) (device.Device, error) {
	return ctx.Tree.GetDeviceByName(d.DMName(), false), nil
}

// luksDevicePopulator claims the cleartext dm-crypt node exposed once
// a LUKS mapping is opened.
type luksDevicePopulator struct{}

func (luksDevicePopulator) Priority() int { return 20 }
func (luksDevicePopulator) Match(ctx *Context, d Descriptor) bool {
	return d.IsDMCrypt()
}
func (luksDevicePopulator) Run(ctx *Context, d Descriptor) (device.Device, error) {
	backing := luksBackingDevice(ctx, d)
	if backing == nil {
		return nil, nil
	}
	luks, err := device.NewLUKSDevice(d.Name(), backing, ctx.Ops.Crypto)
	if err != nil {
		return nil, err
	}
	luks.SetDeviceID(d.Name())
	luks.SetSysfsPath(d.SysfsPath())
	luks.SetPath(d.DevPath())
	luks.SetExists(true)
	if err := ctx.Tree.AddDevice(luks); err != nil {
		return nil, err
	}
	return luks, nil
}

func luksBackingDevice(ctx *Context, d Descriptor) device.Device {
	for _, name := range ctx.names {
		dev := ctx.Tree.GetDeviceByName(name, false)
		if dev == nil {
			continue
		}
		lf, ok := dev.Format().(*format.LUKS)
		if !ok {
			continue
		}
		for _, holder := range d.Holders() {
			if holder == dev.Name() {
				return dev
			}
		}
		if lf.MapName == d.Name() {
			return dev
		}
	}
	return nil
}
