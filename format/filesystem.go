// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package format

import (
	"github.com/blivet-go/blivet/errors"
	"github.com/blivet-go/blivet/ops"
	"github.com/blivet-go/blivet/size"
)

// fsTable carries the per-fstype limits and flags the teacher's mkfs
// dispatch and label-length checks encode inline; kept as a table here
// so adding a filesystem is a data change, not a control-flow change.
var fsTable = map[string]struct {
	mountable  bool
	resizable  bool
	minSize    size.Size
	maxSize    size.Size
	maxLabel   int
	supported  bool
}{
	"ext2":    {true, true, 2 * size.M, 16 * size.T, 16, true},
	"ext3":    {true, true, 2 * size.M, 16 * size.T, 16, true},
	"ext4":    {true, true, 2 * size.M, 1 * size.P, 16, true},
	"xfs":     {true, true, 16 * size.M, 8 * size.P, 12, true},
	"btrfs":   {true, true, 256 * size.M, 16 * size.P, 255, true},
	"vfat":    {true, true, 16 * size.M, 1 * size.T, 11, true},
	"hfs":     {true, false, 1 * size.M, 2 * size.T, 27, false},
	"hfsplus": {true, false, 1 * size.M, 8 * size.P, 255, false},
	"f2fs":    {true, false, 32 * size.M, 16 * size.T, 512, true},
	"swap":    {false, true, 1 * size.M, 128 * size.G, 15, true},
}

// Filesystem is the Format variant for mountable or swap content:
// ext2/3/4, xfs, vfat, hfs(+), f2fs, btrfs (as a mounted volume rather
// than a raw member), and swap.
type Filesystem struct {
	Base

	FSType     string
	MountPoint string

	// VolUUID is the BTRFS filesystem (volume) UUID, distinct from
	// UUID which for a BTRFS member is the per-device UUID_SUB.
	VolUUID string

	ops ops.FsOps
}

var _ Format = (*Filesystem)(nil)

// NewFilesystem returns a Filesystem format of fsType for device.
func NewFilesystem(device, fsType string, o ops.FsOps) *Filesystem {
	fs := &Filesystem{FSType: fsType, ops: o}
	fs.device = device
	return fs
}

func (f *Filesystem) Type() string { return f.FSType }

func (f *Filesystem) entry() (mountable, resizable bool, minSize, maxSize size.Size, supported bool) {
	e, ok := fsTable[f.FSType]
	if !ok {
		// Unrecognized fstype: treated like the teacher's passthrough
		// FormatPopulator branch, passed through read-only.
		return false, false, 0, 0, false
	}
	return e.mountable, e.resizable, e.minSize, e.maxSize, e.supported
}

func (f *Filesystem) Mountable() bool {
	m, _, _, _, _ := f.entry()
	return m
}

func (f *Filesystem) Resizable() bool {
	_, r, _, _, _ := f.entry()
	return r
}

func (f *Filesystem) MinSize() size.Size {
	_, _, min, _, _ := f.entry()
	return min
}

func (f *Filesystem) MaxSize() size.Size {
	_, _, _, max, _ := f.entry()
	return max
}

func (f *Filesystem) Supported() bool {
	_, _, _, _, s := f.entry()
	return s
}

// maxLabelLength returns the fstype's maximum volume label length, or
// 0 if the label is unbounded/not applicable.
func (f *Filesystem) maxLabelLength() int {
	return fsTable[f.FSType].maxLabel
}

// Mkfs stamps the filesystem onto its device. label is truncated to
// the fstype's maximum label length, mirroring the teacher's
// MaxLabelLength handling so a too-long label doesn't abort mkfs.
func (f *Filesystem) Mkfs(extraArgs []string) error {
	if !f.Supported() {
		return errors.NewFSFormatError(nil, "filesystem type %q is not supported", f.FSType)
	}

	label := f.label
	if max := f.maxLabelLength(); max > 0 && len(label) > max {
		label = label[:max]
	}

	var err error
	if f.FSType == "swap" {
		err = f.ops.Mkswap(f.device, label)
	} else {
		err = f.ops.Mkfs(f.FSType, f.device, label, extraArgs)
	}
	if err != nil {
		return errors.NewFSFormatError(err, "mkfs.%s %s", f.FSType, f.device)
	}

	f.exists = true
	f.label = label

	uuid, err := f.ops.FsUUID(f.FSType, f.device)
	if err == nil {
		f.uuid = uuid
	}
	return nil
}

// Resize grows or shrinks the filesystem to newSize in place.
func (f *Filesystem) Resize(newSize size.Size) error {
	if !f.Resizable() {
		return errors.NewFSResizeError("filesystem type %q does not support resize", f.FSType)
	}
	if newSize < f.MinSize() || (f.MaxSize() > 0 && newSize > f.MaxSize()) {
		return errors.NewFSResizeError("requested size %s for %s is outside [%s,%s]", newSize, f.device, f.MinSize(), f.MaxSize())
	}
	if err := f.ops.Resize(f.FSType, f.device, uint64(newSize.Bytes())); err != nil {
		return errors.NewFSResizeError("resize %s to %s: %v", f.device, newSize, err)
	}
	return nil
}
