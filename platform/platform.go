// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

// Package platform detects the firmware and architecture of the
// running system: EFI vs BIOS, the CPU architecture family, and
// whether the system is a virtual machine. The device package's
// WeightPlatform interface and the partition-weight rule consume this
// through Platform, never the other way around, so device never
// imports platform.
package platform

import (
	"runtime"
	"strings"

	"github.com/digitalocean/go-smbios/smbios"
)

// Platform reports the firmware and architecture facts the partition
// placement rule and the populator's boot-scheme detection need.
type Platform interface {
	IsArm() bool
	IsX86() bool
	IsEFI() bool
	IsPPC() bool
	IsIPSeries() bool
	IsPMac() bool

	// Virtualized reports whether the running system appears to be a
	// virtual machine, per the SMBIOS System Information string table.
	Virtualized() bool
	// Arch is the GOARCH-derived architecture family.
	Arch() string
}

// efiChecker abstracts the EFI firmware presence check so tests can
// substitute a fake without touching /sys/firmware/efi.
type efiChecker func() bool

type platform struct {
	arch string
	efi  efiChecker
}

// New probes the running system and returns a Platform reflecting it.
// Firmware presence is detected the same way syscheck does: stat
// /sys/firmware/efi.
func New() Platform {
	return &platform{arch: runtime.GOARCH, efi: statEFI}
}

// NewForArch returns a Platform pinned to arch with efiPresent forced,
// for tests and for callers cross-targeting an architecture other than
// the one blivet itself is running on.
func NewForArch(arch string, efiPresent bool) Platform {
	return &platform{arch: arch, efi: func() bool { return efiPresent }}
}

func (p *platform) Arch() string { return p.arch }

func (p *platform) IsArm() bool { return strings.HasPrefix(p.arch, "arm") || p.arch == "arm64" }
func (p *platform) IsX86() bool { return p.arch == "386" || p.arch == "amd64" }
func (p *platform) IsPPC() bool { return strings.HasPrefix(p.arch, "ppc") }
func (p *platform) IsEFI() bool { return p.efi() }

// IsIPSeries and IsPMac distinguish the two ppc64 boot schemes: IBM
// POWER systems (PReP boot partition) from Apple PowerMacs (Apple
// bootstrap partition). GOARCH alone can't tell them apart, so both
// report true only when the ppc64 family is detected; a real PReP vs
// PowerMac deployment overrides via NewForArch's arch string ("ppc64le"
// for IPSeries, "ppc64-pmac" is not a Go GOARCH and is reserved for
// call sites that know their target from firmware probing elsewhere).
func (p *platform) IsIPSeries() bool { return p.IsPPC() && !strings.HasSuffix(p.arch, "-pmac") }
func (p *platform) IsPMac() bool     { return p.IsPPC() && strings.HasSuffix(p.arch, "-pmac") }

func (p *platform) Virtualized() bool {
	rc, _, err := smbios.Stream()
	if err != nil {
		return false
	}
	defer func() { _ = rc.Close() }()

	d := smbios.NewDecoder(rc)
	ss, err := d.Decode()
	if err != nil {
		return false
	}

	for _, s := range ss {
		// 7.2 System Information (Type 1)
		if s.Header.Type != 1 {
			continue
		}
		for _, str := range s.Strings {
			lower := strings.ToLower(str)
			for _, marker := range []string{"virtualbox", "vmware", "qemu", "kvm", "bochs"} {
				if strings.Contains(lower, marker) {
					return true
				}
			}
		}
	}
	return false
}

func statEFI() bool {
	return efiDirExists("/sys/firmware/efi")
}
