// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package blconfig

import (
	"io/ioutil"
	"os"
	"testing"
)

func TestLoadAndSaveRoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "blconfig")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path := dir + "/config.yaml"

	want := &Config{
		ExclusiveDisks:    []string{"sda"},
		IgnoredDisks:      []string{"sdb"},
		ProtectedDevSpecs: []string{"/dev/sdc"},
		LUKSPassphrases:   map[string]string{"11111111-1111-1111-1111-111111111111": "swordfish"},
		MinLUKSEntropy:    256,
		Flags:             []string{"no_multipath"},
	}

	if err := want.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(got.ExclusiveDisks) != 1 || got.ExclusiveDisks[0] != "sda" {
		t.Fatalf("unexpected ExclusiveDisks: %v", got.ExclusiveDisks)
	}
	if !got.HasFlag("no_multipath") {
		t.Fatal("expected no_multipath flag to round-trip")
	}
	if got.LUKSPassphrases["11111111-1111-1111-1111-111111111111"] != "swordfish" {
		t.Fatal("expected LUKSPassphrases to round-trip")
	}
}

func TestIsExclusiveAndIgnored(t *testing.T) {
	c := &Config{ExclusiveDisks: []string{"sda", "sdb"}}

	if !c.IsExclusive("sda") {
		t.Fatal("expected sda to be exclusive")
	}
	if c.IsExclusive("sdc") {
		t.Fatal("did not expect sdc to be exclusive")
	}
	if !c.IsIgnored("sdc") {
		t.Fatal("expected sdc to be ignored when ExclusiveDisks is set and sdc is absent")
	}
	if c.IsIgnored("sda") {
		t.Fatal("did not expect sda to be ignored")
	}
}

func TestIsIgnoredExplicit(t *testing.T) {
	c := &Config{IgnoredDisks: []string{"sdz"}}

	if !c.IsIgnored("sdz") {
		t.Fatal("expected sdz to be ignored")
	}
	if c.IsIgnored("sda") {
		t.Fatal("did not expect sda to be ignored")
	}
}

func TestIsProtected(t *testing.T) {
	c := &Config{ProtectedDevSpecs: []string{"/dev/sda", "sda1"}}

	if !c.IsProtected("/dev/sda") {
		t.Fatal("expected /dev/sda to be protected")
	}
	if c.IsProtected("/dev/sdb") {
		t.Fatal("did not expect /dev/sdb to be protected")
	}
}
