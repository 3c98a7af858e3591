// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package populator

import (
	"path"

	"github.com/blivet-go/blivet/device"
)

// synthesizeBTRFSSubvolumes builds the BTRFSSubVolumeDevice/
// BTRFSSnapShotDevice tree the volume's cached subvolume listing
// describes, once per volume (a volume already carrying subvolumes is
// left untouched, since a later member attaching doesn't change the
// filesystem's own subvolume layout). Parent/snapshot-source
// references are resolved by id; rows whose referent hasn't been
// created yet are retried on the next pass, the same two-pass-style
// convergence the LVM cascade uses for thin/snapshot LVs.
func synthesizeBTRFSSubvolumes(ctx *Context, vol *device.BTRFSVolumeDevice, volUUID string) error {
	if len(vol.Subvolumes()) > 0 {
		return nil
	}
	rows := ctx.btrfsSubvol[volUUID]
	if len(rows) == 0 {
		return nil
	}

	byID := map[uint64]device.Device{vol.DefaultSubvolID: vol, 0: vol}
	remaining := append([]BTRFSSubvolInfo(nil), rows...)

	for len(remaining) > 0 {
		var next []BTRFSSubvolInfo
		progressed := false

		for _, row := range remaining {
			parent, haveParent := byID[row.ParentID]
			if !haveParent {
				next = append(next, row)
				continue
			}

			name := path.Base(row.Path)
			var sub device.Device
			var err error

			if row.SnapshotSourceID != 0 {
				source, haveSource := byID[row.SnapshotSourceID]
				if !haveSource {
					next = append(next, row)
					continue
				}
				sub, err = device.NewBTRFSSnapShotDevice(name, parent, source, row.Path)
			} else {
				sub, err = device.NewBTRFSSubVolumeDevice(name, parent, row.Path)
			}
			if err != nil {
				return err
			}
			sub.SetExists(true)
			sub.SetDeviceID("BTRFS-" + volUUID + "-" + name)
			if err := ctx.Tree.AddDevice(sub); err != nil {
				return err
			}
			ctx.recordName(sub.Name())

			byID[row.ID] = sub
			progressed = true
		}

		if !progressed {
			// Every remaining row references a parent or snapshot
			// source id not present in this listing; leave them
			// unsynthesized rather than loop forever.
			break
		}
		remaining = next
	}
	return nil
}
