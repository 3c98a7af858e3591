// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package populator

import (
	"strings"

	"github.com/blivet-go/blivet/blconfig"
	"github.com/blivet-go/blivet/device"
)

// Populate runs the discovery loop against ctx.Source until a full
// pass adds nothing new, then marks the tree populated and applies
// the exclusive/ignored disk cleanup pass. When ctx.Config.LockPath is
// set, the whole pass runs under a blconfig.Guard, serializing it
// against any other populate run on the host and restoring whatever
// ephemeral config files a cascade helper rewrote along the way.
func Populate(ctx *Context) error {
	if ctx.Config.LockPath != "" {
		guard, err := blconfig.NewGuard(ctx.Config.LockPath, ctx.Config.EphemeralFiles)
		if err != nil {
			return err
		}
		if err := guard.Acquire(); err != nil {
			return err
		}
		defer guard.Release()
	}

	if ctx.Progress != nil {
		ctx.Progress.Desc("", "scanning block devices")
	}

	deviceRegistry := NewDeviceRegistry(ctx.Config.Flags)
	formatRegistry := NewFormatRegistry(ctx.Config.Flags)

	seen := make(map[string]bool)
	for {
		descriptors, err := ctx.Source.Enumerate()
		if err != nil {
			if ctx.Progress != nil {
				ctx.Progress.Failure()
			}
			return err
		}

		added := 0
		for _, d := range descriptors {
			if seen[d.Name()] {
				continue
			}
			seen[d.Name()] = true
			added++
			if err := handleDevice(ctx, d, deviceRegistry, formatRegistry, false); err != nil {
				if ctx.Progress != nil {
					ctx.Progress.Failure()
				}
				return err
			}
		}
		if ctx.Progress != nil {
			ctx.Progress.Step()
		}
		if added == 0 {
			break
		}
	}

	ctx.populated = true
	applyExclusionPass(ctx)
	if ctx.Progress != nil {
		ctx.Progress.Success()
	}
	return nil
}

// isIgnored reports whether a descriptor should never be admitted to
// the tree: ram disks, loop devices with no backing file, names on the
// ignored list, and, when an exclusive set is configured, whole disks
// outside it. MD members outside the exclusive set are not rejected
// here.
func isIgnored(ctx *Context, d Descriptor) bool {
	name := d.Name()
	if strings.HasPrefix(name, "ram") {
		return true
	}
	if d.IsLoop() && d.BackingFile() == "" {
		return true
	}
	if ctx.isIgnored(name) {
		return true
	}
	if len(ctx.exclusiveDisks) > 0 && d.IsDisk() && !ctx.isExclusive(name) {
		// Not itself exclusive; it may still be admitted later as a
		// dependency of an exclusive stack (partition, LV, ...), so
		// only whole disks are rejected outright here.
		return true
	}
	return false
}

// handleDevice implements §4.3's handle_device: look up or construct
// the Device for d, then attach its format. updateOrigFmt requests an
// original_format snapshot even for a device that was already in the
// tree (one whose original_format is already recorded keeps it)
// (used when a cascade helper re-invokes handleDevice on a node it
// just activated, e.g. a freshly opened LUKS mapping or LV).
func handleDevice(ctx *Context, d Descriptor, devices *DeviceRegistry, formats *FormatRegistry, updateOrigFmt bool) error {
	if ctx.Tree.GetDeviceBySysfsPath(d.SysfsPath(), true) != nil {
		return nil
	}

	ctx.recordName(d.Name())

	if isIgnored(ctx, d) {
		return nil
	}

	dev := ctx.Tree.GetDeviceByName(d.Name(), false)
	justAdded := dev == nil

	if dev != nil {
		if disk, ok := dev.(*device.Disk); ok && d.IsDMMultipath() {
			// This name now resolves to a multipath member; the old
			// disk's children (partitions, etc.) no longer apply.
			for _, c := range disk.Children() {
				if err := ctx.Tree.RecursiveRemove(c, false, false); err != nil {
					return err
				}
			}
			_ = disk.SetFormat(nil)
		}
	}

	if dev == nil {
		helper := devices.Dispatch(ctx, d)
		if helper == nil {
			return nil
		}
		created, err := helper.Run(ctx, d)
		if err != nil {
			return err
		}
		if created == nil {
			return nil
		}
		dev = created
		ctx.recordName(dev.Name())
	}

	if d.ReadOnly() {
		dev.SetStatus("ro")
	} else if dev.Status() == "" {
		dev.SetStatus("rw")
	}

	if ctx.protectedNames[dev.Name()] {
		dev.SetProtected(true)
	}

	if (d.IsDMMultipath() || d.IsDMRaid() || d.MDContainer() != "") && ctx.isExclusive(dev.Name()) {
		for _, p := range dev.Parents().Slice() {
			ctx.addExclusive(p.Name())
		}
	}

	if err := handleFormat(ctx, d, dev, formats); err != nil {
		return err
	}

	if justAdded || updateOrigFmt {
		dev.SnapshotOriginalFormat()
	}
	return nil
}

// handleFormat implements §4.3's handle_format, in the order the
// original discovery code actually runs it: the disklabel special
// case (step 3) is evaluated before the "no format type" bail-out
// (step 1/4) rather than after, since a partitioned disk typically
// reports no ID_FS_TYPE at all and would otherwise never get its
// disklabel scanned.
func handleFormat(ctx *Context, d Descriptor, dev device.Device, formats *FormatRegistry) error {
	isMPMember := isMultipathMember(ctx, d)

	if dev.IsDisk() && !d.IsBiosRaidMember() && !isMPMember && d.FsType() != "iso9660" {
		if (diskLabelFormatPopulator{}).Match(ctx, d, dev) {
			if err := (diskLabelFormatPopulator{}).Run(ctx, d, dev); err != nil {
				return err
			}
		}
		if dev.Partitioned() || ctx.isIgnored(dev.Name()) {
			return nil
		}
		if fmtv := dev.Format(); fmtv != nil && fmtv.Type() == "disklabel" && !dev.Partitionable() {
			return nil
		}
	}

	if isMPMember {
		return multipathMemberFormatPopulator{}.Run(ctx, d, dev)
	}

	if d.FsType() == "" {
		return nil
	}
	if fmtv := dev.Format(); fmtv != nil && fmtv.Type() != "" {
		return nil
	}

	helper := formats.Dispatch(ctx, d, dev)
	if helper == nil {
		return nil
	}
	return helper.Run(ctx, d, dev)
}

func isMultipathMember(ctx *Context, d Descriptor) bool {
	if len(ctx.multipath) == 0 || !d.IsDisk() {
		return false
	}
	return ctx.multipath[d.WWID()].WWID != ""
}

// applyExclusionPass drops or hides every disk not admitted by the
// exclusive/ignored configuration, along with its dependents, and
// marks LVM-filter rejects so downstream tooling skips PVs whose VG
// never completed.
func applyExclusionPass(ctx *Context) {
	for _, name := range ctx.Names() {
		dev := ctx.Tree.GetDeviceByName(name, false)
		if dev == nil || !dev.IsDisk() {
			continue
		}
		if ctx.isIgnored(name) || (len(ctx.exclusiveDisks) > 0 && !ctx.isExclusive(name)) {
			_ = ctx.Tree.RecursiveRemove(dev, false, false)
		}
	}
}
