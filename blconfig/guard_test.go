// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package blconfig

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestGuardAcquireBacksUpAndRelease(t *testing.T) {
	dir, err := ioutil.TempDir("", "blconfig-guard")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	mdadmConf := filepath.Join(dir, "mdadm.conf")
	original := []byte("ARRAY /dev/md0 UUID=deadbeef:deadbeef:deadbeef:deadbeef\n")
	if err := ioutil.WriteFile(mdadmConf, original, 0644); err != nil {
		t.Fatalf("seed mdadm.conf: %v", err)
	}

	lockPath := filepath.Join(dir, "populate.lock")
	g, err := NewGuard(lockPath, []string{mdadmConf})
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	if err := g.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if _, err := os.Stat(mdadmConf + BackupSuffix); err != nil {
		t.Fatalf("expected backup file to exist: %v", err)
	}

	// Simulate populate rewriting the file during the run.
	if err := ioutil.WriteFile(mdadmConf, []byte("ARRAY /dev/md1 UUID=other\n"), 0644); err != nil {
		t.Fatalf("rewrite mdadm.conf: %v", err)
	}

	g.Release()

	restored, err := ioutil.ReadFile(mdadmConf)
	if err != nil {
		t.Fatalf("ReadFile after Release: %v", err)
	}
	if string(restored) != string(original) {
		t.Fatalf("expected restored content %q, got %q", original, restored)
	}

	if _, err := os.Stat(mdadmConf + BackupSuffix); !os.IsNotExist(err) {
		t.Fatal("expected backup file to be removed after restore")
	}
}

func TestGuardAcquireMissingFileIsNonFatal(t *testing.T) {
	dir, err := ioutil.TempDir("", "blconfig-guard-missing")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	lockPath := filepath.Join(dir, "populate.lock")
	g, err := NewGuard(lockPath, []string{filepath.Join(dir, "does-not-exist.conf")})
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	if err := g.Acquire(); err != nil {
		t.Fatalf("Acquire should tolerate a missing ephemeral file: %v", err)
	}

	g.Release()
}

func TestGuardSecondAcquireFailsWhileLocked(t *testing.T) {
	dir, err := ioutil.TempDir("", "blconfig-guard-lock")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	lockPath := filepath.Join(dir, "populate.lock")

	first, err := NewGuard(lockPath, nil)
	if err != nil {
		t.Fatalf("NewGuard (first): %v", err)
	}
	if err := first.Acquire(); err != nil {
		t.Fatalf("Acquire (first): %v", err)
	}
	defer first.Release()

	second, err := NewGuard(lockPath, nil)
	if err != nil {
		t.Fatalf("NewGuard (second): %v", err)
	}
	if err := second.Acquire(); err == nil {
		t.Fatal("expected second Acquire to fail while the first holds the lock")
	}
}
