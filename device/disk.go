// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package device

import (
	"github.com/blivet-go/blivet/errors"
	"github.com/blivet-go/blivet/format"
	"github.com/blivet-go/blivet/size"
)

// Disk is a raw block device: a local drive, or the root of a
// network-attached stack (iSCSI/FCoE/zFCP/DASD/NVMe/NVMe-oF), which
// carries its protocol-specific fields alongside the common ones.
// Existence is definitional: a Disk is never Create()d or Destroy()d
// through the graph, only discovered or removed from the tree.
type Disk struct {
	Base

	Bus    string
	Vendor string
	Model  string
	Serial string
	WWN    string

	// Protocol is "", "iscsi", "fcoe", "zfcp", "dasd", "nvme", or
	// "nvmeof"; the protocol-specific fields below are only
	// meaningful when Protocol is set.
	Protocol string

	// iSCSI
	ISCSITarget string
	ISCSIPortal string
	ISCSIIface  string
	ISCSILun    string

	// FCoE
	FCoENic        string
	FCoEIdentifier string

	// zFCP
	ZFCPHBA string
	ZFCPWWPN string
	ZFCPLun  string

	// DASD
	DASDBusID string
	DASDOpts  string

	// NVMe / NVMe-oF
	NVMeNsid     string
	NVMeOFTransport string
}

var _ Device = (*Disk)(nil)

// NewDisk returns a Disk named name, already marked as existing (a
// Disk is only ever discovered, never created by the graph).
func NewDisk(name string) (*Disk, error) {
	d := &Disk{}
	d.Init(d, nil, nil)
	if err := d.SetName(name); err != nil {
		return nil, err
	}
	d.SetExists(true)
	d.AddTag("local")
	return d, nil
}

func (d *Disk) Type() string         { return "disk" }
func (d *Disk) IsDisk() bool         { return true }
func (d *Disk) Partitionable() bool  { return true }
func (d *Disk) Partitioned() bool    { return d.Format() != nil && d.Format().Type() == "disklabel" }

func (d *Disk) Create() error {
	return errors.NewDeviceError("disk %s cannot be created through the graph", d.Name())
}

func (d *Disk) Destroy() error {
	return errors.NewDeviceError("disk %s cannot be destroyed through the graph", d.Name())
}

// FreeSpace returns the size not yet claimed by any partition slot in
// the disklabel's current geometry, or the whole disk if unlabeled.
func (d *Disk) FreeSpace() size.Size {
	dl, ok := d.Format().(*format.DiskLabel)
	if !ok {
		return d.Size()
	}
	used := size.Size(0)
	for _, p := range dl.Partitions {
		used = used.Add(p.Size())
	}
	return d.Size().Sub(used)
}
