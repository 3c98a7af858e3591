// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package populator

import (
	"github.com/blivet-go/blivet/ops"
	"github.com/blivet-go/blivet/progress"
	"github.com/blivet-go/blivet/tree"
)

// Flags mirrors blivet's flags.py: small global toggles that gate
// whether certain device/format helpers are even registered.
// Generalized here from a process-wide singleton into a Context field.
type Flags struct {
	Multipath             bool
	DMRaid                bool
	IncludeNodev           bool
	AllowImperfectDevices  bool
	GPT                    bool
}

// LUKSPolicy carries entropy/PBKDF hints, consistent with blivet's
// static_data/luks_data, for a caller's create-action. The populator
// does not read them or record them on a discovered LUKS format, and
// the core itself never calls cryptsetup luksFormat from here.
type LUKSPolicy struct {
	MinEntropy int
	PBKDFArgs  map[string]string
}

// Config is the populator's optional, all-defaultable input, matching
// §4.3's configuration list.
type Config struct {
	ExclusiveDisks    []string
	IgnoredDisks      []string
	DiskImageFiles    map[string]string // name -> backing file path
	ProtectedDevSpecs []string          // names, "UUID=...", "LABEL=...", or paths

	LUKSPassphrases    []string          // first entry used when no uuid-specific one matches; the rest are not tried
	LUKSPassphraseByID map[string]string // uuid -> passphrase

	// Interactive opts into prompting on the controlling terminal (via
	// ops.PromptPassphrase) for a LUKS device's passphrase when neither
	// LUKSPassphraseByID nor LUKSPassphrases yields one. Defaults to
	// false, matching a library caller's expectation that Populate never
	// blocks on terminal input unless asked to.
	Interactive bool

	Flags Flags
	LUKS  LUKSPolicy

	// LockPath, when non-empty, makes Populate take a blconfig.Guard
	// around the discovery loop: a single-host advisory lock plus a
	// backup/restore of EphemeralFiles (mdadm.conf, the iSCSI initiator
	// name, ...) that a cascade helper may rewrite mid-pass. Left empty,
	// Populate runs unguarded, matching a caller (e.g. a test Source)
	// that never touches those files.
	LockPath string
	// EphemeralFiles overrides blconfig.DefaultEphemeralFiles when
	// LockPath is set; nil means use the default list.
	EphemeralFiles []string
}

// Ops bundles every external-tool seam a populator helper might need
// to drive a cascade (e.g. activating a dm-raid set, opening a LUKS
// mapping) or to clean up a stale node. Discovery itself never shells
// out to create anything new that isn't already present on the system
// except where the cascades below explicitly call for activation.
type Ops struct {
	DiskLabel ops.DiskLabelOps
	Lvm       ops.LvmOps
	Md        ops.MdOps
	Dm        ops.DmOps
	Crypto    ops.CryptoOps
	Udev      ops.UdevOps
	Fs        ops.FsOps
}

// Source supplies the descriptors the populate loop enumerates each
// pass. A real implementation walks /sys/class/block via udevadm; the
// in-memory Fake used by tests just replays a scripted sequence of
// passes.
type Source interface {
	Enumerate() ([]Descriptor, error)
}

// Context is the populator's run-time state: the tree it is building,
// its configuration and ops, and the caches the LVM/multipath/MD/BTRFS
// cascades snapshot once per populate() call.
type Context struct {
	Tree     *tree.DeviceTree
	Config   Config
	Ops      Ops
	Source   Source
	Progress progress.Client // optional; nil if no observer is installed

	names []string

	lvmPVCache  map[string]LVMPVInfo            // keyed by PV uuid
	lvmLVCache  map[string][]LVMLVInfo          // keyed by vg name
	multipath   map[string]MultipathInfo        // keyed by wwid
	mdExamine   map[string]MDExamineInfo        // keyed by member device path
	btrfsSubvol map[string][]BTRFSSubvolInfo    // keyed by volume FsUUID

	exclusiveDisks map[string]bool
	ignoredDisks   map[string]bool
	protectedNames map[string]bool

	lvmFilterRejects map[string]bool // PV names belonging to an incomplete VG

	populated bool
}

// LVMPVInfo is the subset of `pvs`/`vgs` output the LVM cascade needs,
// the Go analogue of blockdev.lvm.pvinfo/vginfo.
type LVMPVInfo struct {
	VGName   string
	VGUUID   string
	PESize   uint64
	PECount  uint64
	PEFree   uint64
	VGExists bool
}

// LVMLVInfo is one row of `lvs` output for a single VG.
type LVMLVInfo struct {
	VGName     string
	LVName     string
	UUID       string
	Attr       string // lvm2 attribute string, e.g. "-wi-ao----"
	SegType    string
	SizeBytes  uint64
	Origin     string // for snapshots
	PoolLV     string // for thin volumes
	Active     bool
}

// MultipathInfo describes one multipath map's constituent paths.
type MultipathInfo struct {
	WWID    string
	Name    string
	Members []string
}

// MDExamineInfo is the subset of `mdadm --examine` output the MD
// cascade consults to find or create an array for a member.
type MDExamineInfo struct {
	ArrayUUID string
	Level     string
	Devices   uint64
	Container string
}

// BTRFSSubvolInfo is one row of a `btrfs subvolume list` query: a
// subvolume or snapshot's id, its path relative to the volume's top
// level, and the id of the subvolume it's nested under (0 meaning the
// volume's top level itself). SnapshotSourceID is nonzero only for
// snapshots, naming the id of the subvolume the snapshot was taken of.
type BTRFSSubvolInfo struct {
	ID               uint64
	Path             string
	ParentID         uint64
	SnapshotSourceID uint64
}

// NewContext returns a Context ready for Populate, with every cache
// and index initialized empty.
func NewContext(t *tree.DeviceTree, cfg Config, o Ops, src Source) *Context {
	ctx := &Context{
		Tree:             t,
		Config:           cfg,
		Ops:              o,
		Source:           src,
		lvmPVCache:       make(map[string]LVMPVInfo),
		lvmLVCache:       make(map[string][]LVMLVInfo),
		multipath:        make(map[string]MultipathInfo),
		mdExamine:        make(map[string]MDExamineInfo),
		btrfsSubvol:      make(map[string][]BTRFSSubvolInfo),
		exclusiveDisks:   make(map[string]bool),
		ignoredDisks:     make(map[string]bool),
		protectedNames:   make(map[string]bool),
		lvmFilterRejects: make(map[string]bool),
	}
	for _, n := range cfg.ExclusiveDisks {
		ctx.exclusiveDisks[n] = true
	}
	for _, n := range cfg.IgnoredDisks {
		ctx.ignoredDisks[n] = true
	}
	for _, n := range cfg.ProtectedDevSpecs {
		ctx.protectedNames[n] = true
	}
	return ctx
}

// Names is the monotonically extended history of every device name
// the populator has recorded, mirroring DeviceTree.Names for the
// subset the populator itself has touched.
func (c *Context) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

func (c *Context) recordName(name string) {
	for _, n := range c.names {
		if n == name {
			return
		}
	}
	c.names = append(c.names, name)
}

// SetLVMCache installs a snapshot of PV/VG/LV info, analogous to
// blivet's lvm.pvinfo_cache/lvs_cache populated at populate() start.
func (c *Context) SetLVMCache(pvByUUID map[string]LVMPVInfo, lvsByVG map[string][]LVMLVInfo) {
	c.lvmPVCache = pvByUUID
	c.lvmLVCache = lvsByVG
}

// SetMultipathCache installs a snapshot of the multipath member set.
func (c *Context) SetMultipathCache(byWWID map[string]MultipathInfo) {
	c.multipath = byWWID
}

// SetMDExamineCache installs a snapshot of `mdadm --examine` results
// keyed by member device path.
func (c *Context) SetMDExamineCache(byMember map[string]MDExamineInfo) {
	c.mdExamine = byMember
}

// SetBTRFSSubvolCache installs a snapshot of subvolume listings keyed
// by the owning volume's FsUUID.
func (c *Context) SetBTRFSSubvolCache(byVolUUID map[string][]BTRFSSubvolInfo) {
	c.btrfsSubvol = byVolUUID
}

// DropLVMCache invalidates the LVM snapshot; helpers that create or
// remove PVs/VGs/LVs must call this so the next populate() re-probes.
func (c *Context) DropLVMCache() {
	c.lvmPVCache = make(map[string]LVMPVInfo)
	c.lvmLVCache = make(map[string][]LVMLVInfo)
}

// DropMultipathCache invalidates the multipath snapshot.
func (c *Context) DropMultipathCache() { c.multipath = make(map[string]MultipathInfo) }

func (c *Context) isExclusive(name string) bool {
	return len(c.exclusiveDisks) > 0 && c.exclusiveDisks[name]
}

func (c *Context) isIgnored(name string) bool { return c.ignoredDisks[name] }

func (c *Context) addExclusive(name string) { c.exclusiveDisks[name] = true }
