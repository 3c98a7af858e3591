// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

// Package blconfig loads the populator's configuration surface from
// YAML, the same way the teacher loads clr-installer.yaml, and provides
// the Guard that serializes populate runs on a single host and backs up
// the ephemeral config files populate rewrites.
package blconfig

import (
	"io/ioutil"

	"gopkg.in/yaml.v2"

	"github.com/blivet-go/blivet/boolset"
	"github.com/blivet-go/blivet/errors"
)

// Config is the Populator's configuration surface: which disks are
// in-scope, which are off-limits, file-backed disk images to attach as
// loop devices, device specs that must never be mutated, and the LUKS
// passphrases available to unlock or format encrypted devices.
type Config struct {
	// ExclusiveDisks restricts discovery to exactly these disks, by
	// kernel name (e.g. "sda"). Empty means no restriction.
	ExclusiveDisks []string `yaml:"exclusiveDisks,omitempty,flow"`

	// IgnoredDisks are excluded from discovery even if seen by the kernel.
	IgnoredDisks []string `yaml:"ignoredDisks,omitempty,flow"`

	// DiskImageFiles maps a loop device name to the backing regular file
	// populate should attach it to before scanning.
	DiskImageFiles map[string]string `yaml:"diskImageFiles,omitempty"`

	// ProtectedDevSpecs are device specs (name, path, or symlink) that
	// must never be marked controllable, matching the boot/install media.
	ProtectedDevSpecs []string `yaml:"protectedDevSpecs,omitempty,flow"`

	// LUKSPassphrases is a UUID -> passphrase map tried, in addition to
	// any passphrase supplied interactively, when opening a LUKS device.
	LUKSPassphrases map[string]string `yaml:"luksPassphrases,omitempty"`

	// MinLUKSEntropy is the minimum /proc/sys/kernel/random/entropy_avail
	// to require before a luksFormat; 0 disables the check. The populator
	// does not read this field.
	MinLUKSEntropy int `yaml:"minLuksEntropy,omitempty"`

	// PBKDFArgs are extra cryptsetup arguments controlling the LUKS2 key
	// derivation function (e.g. "--pbkdf", "argon2id", "--iter-time", "2000").
	PBKDFArgs []string `yaml:"pbkdfArgs,omitempty,flow"`

	// Flags are populate-loop feature toggles (e.g. "no_multipath",
	// "no_mdadm_conf"), queried with HasFlag. The populator does not read
	// them; it takes its toggles from its own `populator.Flags`.
	Flags []string `yaml:"flags,omitempty,flow"`

	// Interactive defaults to true (prompt on a controlling terminal for
	// a LUKS passphrase when none of LUKSPassphrases matches), but an
	// operator running populate unattended needs to record "explicitly
	// turned off" rather than just "false", since a plain bool can't
	// tell that apart from "never set in this file". nil means unset
	// (defaults on); see IsInteractive.
	Interactive *boolset.BoolSet `yaml:"interactive,omitempty"`
}

// IsInteractive reports whether populate may prompt on a controlling
// terminal for a LUKS passphrase. Unset (nil) defaults to true.
func (c *Config) IsInteractive() bool {
	if c.Interactive == nil {
		return true
	}
	return c.Interactive.Value()
}

// HasFlag returns true if name is present in Flags.
func (c *Config) HasFlag(name string) bool {
	for _, f := range c.Flags {
		if f == name {
			return true
		}
	}
	return false
}

// IsExclusive returns true if ExclusiveDisks is non-empty and disk is
// one of the named disks.
func (c *Config) IsExclusive(disk string) bool {
	if len(c.ExclusiveDisks) == 0 {
		return false
	}
	for _, d := range c.ExclusiveDisks {
		if d == disk {
			return true
		}
	}
	return false
}

// IsIgnored returns true if disk is listed in IgnoredDisks, or
// ExclusiveDisks is non-empty and disk is not among them.
func (c *Config) IsIgnored(disk string) bool {
	for _, d := range c.IgnoredDisks {
		if d == disk {
			return true
		}
	}
	return len(c.ExclusiveDisks) > 0 && !c.IsExclusive(disk)
}

// IsProtected returns true if spec matches one of ProtectedDevSpecs.
func (c *Config) IsProtected(spec string) bool {
	for _, p := range c.ProtectedDevSpecs {
		if p == spec {
			return true
		}
	}
	return false
}

// Load reads and parses a Config from a YAML file at path.
func Load(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err)
	}

	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err)
	}

	return c, nil
}

// Save serializes c as YAML to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err)
	}

	if err := ioutil.WriteFile(path, data, 0600); err != nil {
		return errors.Wrap(err)
	}

	return nil
}
