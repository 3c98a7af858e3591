// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package populator

import (
	"bufio"
	"os"
	"strings"

	"github.com/blivet-go/blivet/tree"
)

// MountEntry is one /proc/self/mountinfo row reduced to what the
// populator cares about: the source device node and the path it is
// mounted at.
type MountEntry struct {
	Source     string
	MountPoint string
	FsType     string
}

// ReadMountinfo parses /proc/self/mountinfo, the Go analogue of
// blivet's _MountinfoCache._get_cache. Each line is whitespace-
// separated fields up to a literal "-" separator, after which come
// fstype, mount source, and super options; fields before the
// separator are mount ID, parent ID, major:minor, root, mount point,
// and mount options (optionally followed by one or more "tag:N"
// optional fields, which is why the separator can't be assumed to
// sit at a fixed column).
func ReadMountinfo(path string) ([]MountEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []MountEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		sep := -1
		for i, f := range fields {
			if f == "-" {
				sep = i
				break
			}
		}
		if sep < 0 || sep+2 >= len(fields) || len(fields) < 5 {
			continue
		}
		entries = append(entries, MountEntry{
			MountPoint: fields[4],
			FsType:     fields[sep+1],
			Source:     fields[sep+2],
		})
	}
	return entries, scanner.Err()
}

// CurrentMounts reads /proc/self/mountinfo and marks every device in
// t whose path (or a dm "/dev/mapper/<name>" alias) appears as a
// mount source as "mounted", leaving every other device's status
// untouched. It never consults or writes /etc/fstab: this is a
// snapshot of what is actually mounted right now, not configuration.
func CurrentMounts(t *tree.DeviceTree) error {
	entries, err := ReadMountinfo("/proc/self/mountinfo")
	if err != nil {
		return err
	}

	mounted := make(map[string]string, len(entries))
	for _, e := range entries {
		mounted[e.Source] = e.MountPoint
	}

	for _, name := range t.Names() {
		dev := t.GetDeviceByName(name, false)
		if dev == nil {
			continue
		}
		paths := []string{dev.Path(), "/dev/mapper/" + dev.Name()}
		for _, p := range paths {
			if mp, ok := mounted[p]; ok && mp != "" {
				dev.SetStatus("mounted")
				break
			}
		}
	}
	return nil
}
