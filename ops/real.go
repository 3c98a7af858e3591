// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package ops

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/blivet-go/blivet/cmd"
	"github.com/blivet-go/blivet/errors"
)

// RealDiskLabel wires DiskLabelOps to parted, grounded on the teacher's
// parted invocations in block_devices_ops.go.
type RealDiskLabel struct{}

var _ DiskLabelOps = RealDiskLabel{}

// CreateLabel runs "parted device --script mklabel labelType".
func (RealDiskLabel) CreateLabel(device string, labelType string) error {
	if err := cmd.RunAndLog("parted", device, "--script", "mklabel", labelType); err != nil {
		return errors.NewDiskLabelScanError(err, "mklabel %s on %s", labelType, device)
	}
	return nil
}

// CreatePartition runs "parted device --script -- mkpart partType start end",
// start and end given in bytes.
func (RealDiskLabel) CreatePartition(device string, partType string, start, end uint64) error {
	startStr := fmt.Sprintf("%dB", start)
	endStr := fmt.Sprintf("%dB", end)

	args := []string{"parted", device, "--script", "--", "mkpart", partType, startStr, endStr}
	if err := cmd.RunAndLog(args...); err != nil {
		return errors.NewDiskLabelScanError(err, "mkpart %s %s-%s on %s", partType, startStr, endStr, device)
	}
	return nil
}

// RemovePartition runs "parted device --script -- rm partNum".
func (RealDiskLabel) RemovePartition(device string, partNum uint64) error {
	args := []string{"parted", device, "--script", "--", "rm", strconv.FormatUint(partNum, 10)}
	if err := cmd.RunAndLog(args...); err != nil {
		return errors.NewDiskLabelScanError(err, "rm partition %d on %s", partNum, device)
	}
	return nil
}

// SetFlag runs "parted device --script set partNum flag on|off".
func (RealDiskLabel) SetFlag(device string, partNum uint64, flag string, state bool) error {
	onOff := "off"
	if state {
		onOff = "on"
	}

	args := []string{"parted", device, "--script", "set",
		strconv.FormatUint(partNum, 10), flag, onOff}
	if err := cmd.RunAndLog(args...); err != nil {
		return errors.NewDiskLabelScanError(err, "set flag %s=%s on %s partition %d", flag, onOff, device, partNum)
	}
	return nil
}

// Commit settles udev so the kernel's new partition table is reflected
// under /dev before a caller relies on it.
func (RealDiskLabel) Commit(device string) error {
	if err := cmd.RunAndLog("udevadm", "settle"); err != nil {
		return errors.NewDiskLabelScanError(err, "settle after commit on %s", device)
	}
	return nil
}

// RealLvm wires LvmOps to the lvm2 command-line tools (pvcreate,
// vgcreate, lvcreate and friends).
type RealLvm struct{}

var _ LvmOps = RealLvm{}

func vgLvPath(vg, lv string) string { return vg + "/" + lv }

// PVCreate runs "pvcreate -f -y device".
func (RealLvm) PVCreate(device string) error {
	if err := cmd.RunAndLog("pvcreate", "-f", "-y", device); err != nil {
		return errors.NewDeviceError("pvcreate %s: %v", device, err)
	}
	return nil
}

// PVRemove runs "pvremove -f -y device".
func (RealLvm) PVRemove(device string) error {
	if err := cmd.RunAndLog("pvremove", "-f", "-y", device); err != nil {
		return errors.NewDeviceError("pvremove %s: %v", device, err)
	}
	return nil
}

// VGCreate runs "vgcreate [-s peSize] name pvs...".
func (RealLvm) VGCreate(name string, peSize string, pvs []string) error {
	args := []string{"vgcreate"}
	if peSize != "" {
		args = append(args, "-s", peSize)
	}
	args = append(args, name)
	args = append(args, pvs...)

	if err := cmd.RunAndLog(args...); err != nil {
		return errors.NewDeviceError("vgcreate %s: %v", name, err)
	}
	return nil
}

// VGRemove runs "vgremove -f name".
func (RealLvm) VGRemove(name string) error {
	if err := cmd.RunAndLog("vgremove", "-f", name); err != nil {
		return errors.NewDeviceError("vgremove %s: %v", name, err)
	}
	return nil
}

// VGExtend runs "vgextend name pvs...".
func (RealLvm) VGExtend(name string, pvs []string) error {
	args := append([]string{"vgextend", name}, pvs...)
	if err := cmd.RunAndLog(args...); err != nil {
		return errors.NewDeviceError("vgextend %s: %v", name, err)
	}
	return nil
}

// VGReduce runs "vgreduce name pvs...".
func (RealLvm) VGReduce(name string, pvs []string) error {
	args := append([]string{"vgreduce", name}, pvs...)
	if err := cmd.RunAndLog(args...); err != nil {
		return errors.NewDeviceError("vgreduce %s: %v", name, err)
	}
	return nil
}

// LVCreate runs "lvcreate -L sizeBytesB -n lvName extraArgs... vgName".
func (RealLvm) LVCreate(vgName, lvName string, sizeBytes uint64, extraArgs []string) error {
	args := []string{"lvcreate", "-L", fmt.Sprintf("%dB", sizeBytes), "-n", lvName}
	args = append(args, extraArgs...)
	args = append(args, vgName)

	if err := cmd.RunAndLog(args...); err != nil {
		return errors.NewDeviceError("lvcreate %s: %v", vgLvPath(vgName, lvName), err)
	}
	return nil
}

// LVCreateThinPool runs "lvcreate -L sizeBytesB -T vgName/poolName".
func (RealLvm) LVCreateThinPool(vgName, poolName string, sizeBytes uint64) error {
	args := []string{"lvcreate", "-L", fmt.Sprintf("%dB", sizeBytes), "-T", vgLvPath(vgName, poolName)}
	if err := cmd.RunAndLog(args...); err != nil {
		return errors.NewDeviceError("lvcreate thin-pool %s: %v", vgLvPath(vgName, poolName), err)
	}
	return nil
}

// LVCreateThin runs "lvcreate -V sizeBytesB -T vgName/poolName -n lvName".
func (RealLvm) LVCreateThin(vgName, poolName, lvName string, sizeBytes uint64) error {
	args := []string{"lvcreate", "-V", fmt.Sprintf("%dB", sizeBytes),
		"-T", vgLvPath(vgName, poolName), "-n", lvName}
	if err := cmd.RunAndLog(args...); err != nil {
		return errors.NewDeviceError("lvcreate thin %s: %v", vgLvPath(vgName, lvName), err)
	}
	return nil
}

// LVCreateSnapshot runs "lvcreate -s [-L sizeBytesB] -n snapName vgName/origin".
func (RealLvm) LVCreateSnapshot(vgName, origin, snapName string, sizeBytes uint64) error {
	args := []string{"lvcreate", "-s", "-n", snapName}
	if sizeBytes > 0 {
		args = append(args, "-L", fmt.Sprintf("%dB", sizeBytes))
	}
	args = append(args, vgLvPath(vgName, origin))

	if err := cmd.RunAndLog(args...); err != nil {
		return errors.NewDeviceError("lvcreate snapshot %s: %v", vgLvPath(vgName, snapName), err)
	}
	return nil
}

// LVRemove runs "lvremove -f vgName/lvName".
func (RealLvm) LVRemove(vgName, lvName string) error {
	if err := cmd.RunAndLog("lvremove", "-f", vgLvPath(vgName, lvName)); err != nil {
		return errors.NewDeviceError("lvremove %s: %v", vgLvPath(vgName, lvName), err)
	}
	return nil
}

// LVResize runs "lvresize -L sizeBytesB vgName/lvName".
func (RealLvm) LVResize(vgName, lvName string, sizeBytes uint64) error {
	args := []string{"lvresize", "-L", fmt.Sprintf("%dB", sizeBytes), vgLvPath(vgName, lvName)}
	if err := cmd.RunAndLog(args...); err != nil {
		return errors.NewDeviceError("lvresize %s: %v", vgLvPath(vgName, lvName), err)
	}
	return nil
}

// LVActivate runs "lvchange -a y|n vgName/lvName".
func (RealLvm) LVActivate(vgName, lvName string, active bool) error {
	state := "n"
	if active {
		state = "y"
	}
	if err := cmd.RunAndLog("lvchange", "-a", state, vgLvPath(vgName, lvName)); err != nil {
		return errors.NewDeviceError("lvchange -a %s %s: %v", state, vgLvPath(vgName, lvName), err)
	}
	return nil
}

// RealMd wires MdOps to mdadm, grounded on the teacher's removeRaidType
// mdadm invocations in block_devices_ops.go.
type RealMd struct{}

var _ MdOps = RealMd{}

// Create runs "mdadm --create device --run --level=level
// --raid-devices=N [--spare-devices=S] [--metadata=ver] members...".
func (RealMd) Create(device string, level string, members []string, metadataVersion string, spares int) error {
	args := []string{"mdadm", "--create", device, "--run",
		fmt.Sprintf("--level=%s", level),
		fmt.Sprintf("--raid-devices=%d", len(members)-spares)}

	if spares > 0 {
		args = append(args, fmt.Sprintf("--spare-devices=%d", spares))
	}
	if metadataVersion != "" {
		args = append(args, fmt.Sprintf("--metadata=%s", metadataVersion))
	}
	args = append(args, members...)

	if err := cmd.RunAndLog(args...); err != nil {
		return errors.NewMDRaidError(err, "create %s level %s", device, level)
	}
	return nil
}

// Assemble runs "mdadm --assemble device members...".
func (RealMd) Assemble(device string, members []string) error {
	args := append([]string{"mdadm", "--assemble", device}, members...)
	if err := cmd.RunAndLog(args...); err != nil {
		return errors.NewMDRaidError(err, "assemble %s", device)
	}
	return nil
}

// Stop runs "mdadm --stop device".
func (RealMd) Stop(device string) error {
	if err := cmd.RunAndLog("mdadm", "--stop", device); err != nil {
		return errors.NewMDRaidError(err, "stop %s", device)
	}
	return nil
}

// FailAndRemove runs "mdadm --fail device member" then "mdadm --remove device member".
func (RealMd) FailAndRemove(device string, member string) error {
	if err := cmd.RunAndLog("mdadm", "--fail", device, member); err != nil {
		return errors.NewMDRaidError(err, "fail %s on %s", member, device)
	}
	if err := cmd.RunAndLog("mdadm", "--remove", device, member); err != nil {
		return errors.NewMDRaidError(err, "remove %s from %s", member, device)
	}
	return nil
}

// ZeroSuperblock runs "mdadm --zero-superblock member".
func (RealMd) ZeroSuperblock(member string) error {
	if err := cmd.RunAndLog("mdadm", "--zero-superblock", member); err != nil {
		return errors.NewMDRaidError(err, "zero-superblock %s", member)
	}
	return nil
}

// AddMember runs "mdadm --add|--add-spare device member".
func (RealMd) AddMember(device string, member string, spare bool) error {
	args := []string{"mdadm"}
	if spare {
		args = append(args, "--add-spare")
	} else {
		args = append(args, "--add")
	}
	args = append(args, device, member)

	if err := cmd.RunAndLog(args...); err != nil {
		return errors.NewMDRaidError(err, "add %s to %s", member, device)
	}
	return nil
}

// RealDm wires DmOps to dmsetup, used for raw mapper targets backing
// multipath and dmraid.
type RealDm struct{}

var _ DmOps = RealDm{}

// Create runs "dmsetup create name" with the table description piped to stdin.
func (RealDm) Create(name string, table string) error {
	if err := cmd.PipeRunAndLog(table, "dmsetup", "create", name); err != nil {
		return errors.NewDMError(err, "create %s", name)
	}
	return nil
}

// Remove runs "dmsetup remove name".
func (RealDm) Remove(name string) error {
	if err := cmd.RunAndLog("dmsetup", "remove", name); err != nil {
		return errors.NewDMError(err, "remove %s", name)
	}
	return nil
}

// Suspend runs "dmsetup suspend name".
func (RealDm) Suspend(name string) error {
	if err := cmd.RunAndLog("dmsetup", "suspend", name); err != nil {
		return errors.NewDMError(err, "suspend %s", name)
	}
	return nil
}

// Resume runs "dmsetup resume name".
func (RealDm) Resume(name string) error {
	if err := cmd.RunAndLog("dmsetup", "resume", name); err != nil {
		return errors.NewDMError(err, "resume %s", name)
	}
	return nil
}

// RealCrypto wires CryptoOps to cryptsetup, grounded directly on the
// teacher's MapEncrypted/unMapEncrypted in storage/encrypt.go.
type RealCrypto struct{}

var _ CryptoOps = RealCrypto{}

// LuksFormat runs cryptsetup luksFormat with the passphrase piped to
// stdin, mirroring the teacher's MapEncrypted invocation.
func (RealCrypto) LuksFormat(device, passphrase, label, hash, cipher string, keySize int) error {
	args := []string{
		"cryptsetup",
		"--batch-mode",
		fmt.Sprintf("--hash=%s", hash),
		fmt.Sprintf("--cipher=%s", cipher),
		fmt.Sprintf("--key-size=%d", keySize),
	}

	if label != "" {
		args = append(args, "--label="+label)
	}

	args = append(args, "luksFormat", device, "-")

	if err := cmd.PipeRunAndLog(passphrase, args...); err != nil {
		return errors.NewLUKSError("luksFormat %s: %v", device, err)
	}
	return nil
}

// LuksOpen runs "cryptsetup --batch-mode luksOpen device mapName -"
// with the passphrase piped to stdin.
func (RealCrypto) LuksOpen(device, mapName, passphrase string) error {
	args := []string{"cryptsetup", "--batch-mode", "luksOpen", device, mapName, "-"}
	if err := cmd.PipeRunAndLog(passphrase, args...); err != nil {
		return errors.NewLUKSError("luksOpen %s as %s: %v", device, mapName, err)
	}
	return nil
}

// LuksClose runs "cryptsetup --batch-mode luksClose mapName".
func (RealCrypto) LuksClose(mapName string) error {
	if err := cmd.RunAndLog("cryptsetup", "--batch-mode", "luksClose", mapName); err != nil {
		return errors.NewLUKSError("luksClose %s: %v", mapName, err)
	}
	return nil
}

// LuksAddKey runs "cryptsetup luksAddKey device -" feeding both the
// existing and new passphrase over stdin, one per line.
func (RealCrypto) LuksAddKey(device, existingPassphrase, newPassphrase string) error {
	in := existingPassphrase + "\n" + newPassphrase + "\n"
	if err := cmd.PipeRunAndLog(in, "cryptsetup", "--batch-mode", "luksAddKey", device, "-"); err != nil {
		return errors.NewLUKSError("luksAddKey %s: %v", device, err)
	}
	return nil
}

// LuksRemoveKey runs "cryptsetup luksRemoveKey device -" feeding the
// passphrase to be removed over stdin.
func (RealCrypto) LuksRemoveKey(device, passphrase string) error {
	if err := cmd.PipeRunAndLog(passphrase, "cryptsetup", "--batch-mode", "luksRemoveKey", device, "-"); err != nil {
		return errors.NewLUKSError("luksRemoveKey %s: %v", device, err)
	}
	return nil
}

// LuksUUID runs "cryptsetup luksUUID device" and returns the trimmed UUID.
func (RealCrypto) LuksUUID(device string) (string, error) {
	w := bytes.NewBuffer(nil)
	if err := cmd.Run(w, "cryptsetup", "luksUUID", device); err != nil {
		return "", errors.NewLUKSError("luksUUID %s: %v", device, err)
	}
	return strings.TrimSpace(w.String()), nil
}

// RealUdev wires UdevOps to udevadm.
type RealUdev struct{}

var _ UdevOps = RealUdev{}

// Settle runs "udevadm settle".
func (RealUdev) Settle() error {
	if err := cmd.RunAndLog("udevadm", "settle"); err != nil {
		return errors.Wrap(err)
	}
	return nil
}

// Trigger runs "udevadm trigger device".
func (RealUdev) Trigger(device string) error {
	if err := cmd.RunAndLog("udevadm", "trigger", device); err != nil {
		return errors.Wrap(err)
	}
	return nil
}

// RealFs wires FsOps to mkfs.*/mkswap/resize2fs/xfs_growfs/blkid,
// grounded on the teacher's bdOps dispatch table in block_devices_ops.go.
type RealFs struct{}

var _ FsOps = RealFs{}

// Mkfs runs "mkfs.fsType extraArgs... [-L label] device".
func (RealFs) Mkfs(fsType, device, label string, extraArgs []string) error {
	args := []string{"mkfs." + fsType}
	args = append(args, extraArgs...)

	if label != "" {
		args = append(args, "-L", label)
	}

	args = append(args, device)

	if err := cmd.RunAndLog(args...); err != nil {
		return errors.NewFSFormatError(err, "mkfs.%s on %s", fsType, device)
	}
	return nil
}

// Mkswap runs "mkswap [-L label] device".
func (RealFs) Mkswap(device, label string) error {
	args := []string{"mkswap"}
	if label != "" {
		args = append(args, "-L", label)
	}
	args = append(args, device)

	if err := cmd.RunAndLog(args...); err != nil {
		return errors.NewFSFormatError(err, "mkswap on %s", device)
	}
	return nil
}

// Resize dispatches to the filesystem-specific resize tool.
func (RealFs) Resize(fsType, device string, newSizeBytes uint64) error {
	var args []string

	switch fsType {
	case "ext2", "ext3", "ext4":
		args = []string{"resize2fs", device, fmt.Sprintf("%dK", newSizeBytes/1024)}
	case "xfs":
		args = []string{"xfs_growfs", device}
	case "btrfs":
		args = []string{"btrfs", "filesystem", "resize", fmt.Sprintf("%d", newSizeBytes), device}
	default:
		return errors.NewFSResizeError("resize not supported for filesystem: %s", fsType)
	}

	if err := cmd.RunAndLog(args...); err != nil {
		return errors.NewFSResizeError("resize %s on %s: %v", fsType, device, err)
	}
	return nil
}

// FsUUID runs "blkid -s UUID -o value device" and returns the trimmed UUID.
func (RealFs) FsUUID(fsType, device string) (string, error) {
	w := bytes.NewBuffer(nil)
	if err := cmd.Run(w, "blkid", "-s", "UUID", "-o", "value", device); err != nil {
		return "", errors.NewFSError("reading UUID of %s (%s): %v", device, fsType, err)
	}
	return strings.TrimSpace(w.String()), nil
}
