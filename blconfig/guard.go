// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package blconfig

import (
	"io/ioutil"
	"os"

	"github.com/nightlyone/lockfile"

	"github.com/blivet-go/blivet/errors"
	"github.com/blivet-go/blivet/log"
)

// BackupSuffix is appended to an ephemeral config file's name when
// Guard backs it up before populate rewrites it.
const BackupSuffix = ".anacbak"

// DefaultEphemeralFiles are the config files populate may rewrite
// during a pass (mdadm's array list, iscsi's initiator name) and that
// Guard backs up before, and restores after, every populate run.
var DefaultEphemeralFiles = []string{
	"/etc/mdadm.conf",
	"/etc/iscsi/initiatorname.iscsi",
}

// Guard serializes populate runs on a single host via an advisory lock
// file and backs up/restores the ephemeral config files populate
// rewrites, matching §5's single-host, cooperative-operator model: a
// second populate invocation on the same host fails to acquire the lock
// (Acquire returns an error) rather than racing the first one's
// /etc/mdadm.conf rewrite.
type Guard struct {
	lock     lockfile.Lockfile
	locked   bool
	files    []string
	backedUp []string
}

// NewGuard creates a Guard using lockPath as its advisory lock file and
// files as the set of ephemeral config files to protect. If files is
// nil, DefaultEphemeralFiles is used.
func NewGuard(lockPath string, files []string) (*Guard, error) {
	lf, err := lockfile.New(lockPath)
	if err != nil {
		return nil, errors.Errorf("invalid lock path %q: %v", lockPath, err)
	}

	if files == nil {
		files = DefaultEphemeralFiles
	}

	return &Guard{lock: lf, files: files}, nil
}

// Acquire takes the advisory lock and backs up the ephemeral config
// files. Backup failures are logged but non-fatal, per §5.
func (g *Guard) Acquire() error {
	if err := g.lock.TryLock(); err != nil {
		return errors.Errorf("another populate run holds the lock: %v", err)
	}
	g.locked = true

	for _, f := range g.files {
		if err := backupFile(f); err != nil {
			log.Warning("could not back up %s before populate: %v", f, err)
			continue
		}
		g.backedUp = append(g.backedUp, f)
	}

	return nil
}

// Release restores the ephemeral config files from their backups and
// releases the advisory lock. It is safe to call on a Guard whose
// Acquire failed partway through; it undoes whatever Acquire managed to
// do. Restore failures are logged but non-fatal.
func (g *Guard) Release() {
	for _, f := range g.backedUp {
		if err := restoreFile(f); err != nil {
			log.Warning("could not restore %s after populate: %v", f, err)
		}
	}
	g.backedUp = nil

	if g.locked {
		if err := g.lock.Unlock(); err != nil {
			log.Warning("could not release populate lock: %v", err)
		}
		g.locked = false
	}
}

func backupFile(path string) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	return ioutil.WriteFile(path+BackupSuffix, data, info.Mode())
}

func restoreFile(path string) error {
	backup := path + BackupSuffix

	data, err := ioutil.ReadFile(backup)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	info, err := os.Stat(backup)
	if err != nil {
		return err
	}

	if err := ioutil.WriteFile(path, data, info.Mode()); err != nil {
		return err
	}

	return os.Remove(backup)
}
