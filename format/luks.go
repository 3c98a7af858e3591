// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package format

import (
	"github.com/blivet-go/blivet/errors"
	"github.com/blivet-go/blivet/ops"
	"github.com/blivet-go/blivet/size"
)

// LUKS is the Format variant for a dm-crypt/LUKS header. The mapped
// cleartext device (the DM device created by Open) is a separate
// Device in the tree whose sole parent format is this LUKS format;
// LUKS itself never holds a reference to it.
type LUKS struct {
	Base

	// LuksVersion is one of "luks1", "luks2", "luks2-hw-opal",
	// "luks2-hw-opal-only".
	LuksVersion    string
	LuksSectorSize uint64
	MapName        string

	// Passphrase is transient: held only long enough to drive Format/
	// Open, never persisted by the device tree.
	Passphrase string

	// Configured reports whether Passphrase has been supplied and
	// verified (by a successful Open), as opposed to merely requested.
	Configured bool

	Hash      string
	Cipher    string
	KeySize   int

	ops ops.CryptoOps
}

var _ Format = (*LUKS)(nil)

// NewLUKS returns a LUKS format for device at the given version.
func NewLUKS(device, luksVersion string, o ops.CryptoOps) *LUKS {
	l := &LUKS{
		LuksVersion: luksVersion,
		Hash:        "sha256",
		Cipher:      "aes-xts-plain64",
		KeySize:     512,
		ops:         o,
	}
	l.device = device
	return l
}

func (l *LUKS) Type() string       { return "luks" }
func (l *LUKS) Mountable() bool    { return false }
func (l *LUKS) Resizable() bool    { return false }
func (l *LUKS) MinSize() size.Size { return 2 * size.M }
func (l *LUKS) MaxSize() size.Size { return 0 }

func (l *LUKS) Supported() bool {
	switch l.LuksVersion {
	case "luks1", "luks2", "luks2-hw-opal", "luks2-hw-opal-only":
		return true
	default:
		return false
	}
}

// Format stamps a new LUKS header on the device using Passphrase,
// which must already be set, and marks Configured.
func (l *LUKS) Format() error {
	if l.Passphrase == "" {
		return errors.NewLUKSError("cannot format %s: no passphrase set", l.device)
	}
	if err := l.ops.LuksFormat(l.device, l.Passphrase, l.label, l.Hash, l.Cipher, l.KeySize); err != nil {
		return errors.NewLUKSError("luksFormat %s: %v", l.device, err)
	}
	l.exists = true
	l.Configured = true

	uuid, err := l.ops.LuksUUID(l.device)
	if err == nil {
		l.uuid = uuid
	}
	return nil
}

// Open activates the mapped cleartext device under mapName using
// Passphrase, which must already be set.
func (l *LUKS) Open(mapName string) error {
	if l.Passphrase == "" {
		return errors.NewLUKSError("cannot open %s: no passphrase set", l.device)
	}
	if err := l.ops.LuksOpen(l.device, mapName, l.Passphrase); err != nil {
		return errors.NewLUKSError("luksOpen %s: %v", l.device, err)
	}
	l.MapName = mapName
	l.Configured = true
	return nil
}

// Close tears down the mapped cleartext device.
func (l *LUKS) Close() error {
	if l.MapName == "" {
		return nil
	}
	if err := l.ops.LuksClose(l.MapName); err != nil {
		return errors.NewLUKSError("luksClose %s: %v", l.MapName, err)
	}
	l.MapName = ""
	return nil
}

// AddKey adds newPassphrase as an additional LUKS keyslot, authorized
// by an existing passphrase.
func (l *LUKS) AddKey(existingPassphrase, newPassphrase string) error {
	if err := l.ops.LuksAddKey(l.device, existingPassphrase, newPassphrase); err != nil {
		return errors.NewLUKSError("luksAddKey %s: %v", l.device, err)
	}
	return nil
}

// RemoveKey drops the keyslot matching passphrase.
func (l *LUKS) RemoveKey(passphrase string) error {
	if err := l.ops.LuksRemoveKey(l.device, passphrase); err != nil {
		return errors.NewLUKSError("luksRemoveKey %s: %v", l.device, err)
	}
	return nil
}
