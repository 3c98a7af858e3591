// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

// Package errors carries the taxonomy of typed failures raised by the
// device graph and populator. Every tag is its own type around a shared
// tagged message and optional cause, so a caller can errors.As() a
// specific failure; Errorf and Wrap build a TraceableError, which also
// carries a caller trace usable for logging.
package errors

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// TraceableError is an internal error used to carry trace details
// to be shared across the multiple layers and reporting facilities
type TraceableError struct {
	Trace string
	When  time.Time
	What  string
}

// ValidationError is a type of error used to report model or any general condition
// validation error. We don't deal this error as a regular error i.e panic`ing, showing
// the error stack trace and exiting with a non zero code, otherwise, we do show
// a nicely formatted and user friendly error message (the What attribute) and keep
// returning a non zero exit code.
// Consider this error as a user error, not an internal malfunctioning.
type ValidationError struct {
	When time.Time
	What string
}

func getTraceIdx(idx int) (string, string, int) {
	pc := make([]uintptr, 10)
	runtime.Callers(2, pc)
	f := runtime.FuncForPC(pc[idx+1])
	file, line := f.FileLine(pc[idx+1])
	return f.Name(), file, line
}

func formatTraceIdx(idx int) (string, string) {
	funcName, file, line := getTraceIdx(idx)
	fileName := filepath.Base(file)

	fn := strings.Split(funcName, "github.com/blivet-go/blivet/")

	if len(fn) > 1 {
		funcName = fn[1]
	} else {
		funcName = fn[0]
	}

	dir := strings.Split(filepath.Dir(file), "/blivet/")
	var dirName string
	if len(dir) > 1 {
		dirName = dir[1]
	} else {
		dirName = dir[0]
	}

	return funcName, fmt.Sprintf("%s/%s:%d", dirName, fileName, line)
}

func getTrace() string {
	cfName, cTrace := formatTraceIdx(3)
	caller := fmt.Sprintf("%s()\n     %s\n", cfName, cTrace)

	rfName, rTrace := formatTraceIdx(2)
	raiser := fmt.Sprintf("%s()\n     %s\n", rfName, rTrace)

	return fmt.Sprintf("\n\nError Trace:\n%s%s", raiser, caller)
}

func (e TraceableError) Error() string {
	return fmt.Sprintf("%s%s", e.What, e.Trace)
}

// Errorf returns a new error with the stack information
func Errorf(format string, a ...interface{}) error {
	return TraceableError{
		Trace: getTrace(),
		When:  time.Now(),
		What:  fmt.Sprintf(format, a...),
	}
}

// Wrap returns an error with the caller stack information
// embedded in the original error message
func Wrap(err error) error {
	return Errorf(err.Error())
}

func (ve ValidationError) Error() string {
	return ve.What
}

// ValidationErrorf formats a new ValidationError
func ValidationErrorf(format string, a ...interface{}) error {
	return ValidationError{
		What: fmt.Sprintf(format, a...),
	}
}

// IsValidationError returns true if err is a ValidationError
// returns false otherwise
func IsValidationError(err error) bool {
	_, ok := err.(ValidationError)
	return ok
}

// taggedError is the common shape behind every §7 error tag: a short
// message plus the wrapped cause, if any.
type taggedError struct {
	tag   string
	msg   string
	cause error
}

func (e *taggedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.tag, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.tag, e.msg)
}

func (e *taggedError) Unwrap() error { return e.cause }

// As lets errors.As match a NoSlavesError, DuplicateVGError or
// UnusableConfigurationError against a *DeviceTreeError target.
func (e *taggedError) As(target interface{}) bool {
	switch e.tag {
	case "NoSlavesError", "DuplicateVGError", "UnusableConfigurationError":
	default:
		return false
	}
	if t, ok := target.(**DeviceTreeError); ok {
		*t = &DeviceTreeError{e}
		return true
	}
	return false
}

func newTagged(tag, format string, a ...interface{}) *taggedError {
	return &taggedError{tag: tag, msg: fmt.Sprintf(format, a...)}
}

func newTaggedWrap(tag string, cause error, format string, a ...interface{}) *taggedError {
	return &taggedError{tag: tag, msg: fmt.Sprintf(format, a...), cause: cause}
}

// DeviceError reports an invalid operation on a device: already exists,
// not created, invalid name, resize out of bounds.
type DeviceError struct{ *taggedError }

// NewDeviceError builds a DeviceError.
func NewDeviceError(format string, a ...interface{}) *DeviceError {
	return &DeviceError{newTagged("DeviceError", format, a...)}
}

// DeviceTreeError reports a structural tree violation. A NoSlavesError,
// DuplicateVGError or UnusableConfigurationError also matches a
// *DeviceTreeError target under errors.As.
type DeviceTreeError struct{ *taggedError }

// NewDeviceTreeError builds a DeviceTreeError.
func NewDeviceTreeError(format string, a ...interface{}) *DeviceTreeError {
	return &DeviceTreeError{newTagged("DeviceTreeError", format, a...)}
}

// NoSlavesError reports a container device (array, VG, volume) whose
// required member/slave devices could not be found during discovery.
type NoSlavesError struct{ *taggedError }

// NewNoSlavesError builds a NoSlavesError.
func NewNoSlavesError(format string, a ...interface{}) *NoSlavesError {
	return &NoSlavesError{newTagged("NoSlavesError", format, a...)}
}

// DuplicateVGError reports two incompatible LVM volume groups sharing a name.
type DuplicateVGError struct{ *taggedError }

// NewDuplicateVGError builds a DuplicateVGError.
func NewDuplicateVGError(format string, a ...interface{}) *DuplicateVGError {
	return &DuplicateVGError{newTagged("DuplicateVGError", format, a...)}
}

// UnusableConfigurationError reports a populator configuration that can't
// be honored (e.g. conflicting exclusive/ignored disk sets).
type UnusableConfigurationError struct{ *taggedError }

// NewUnusableConfigurationError builds an UnusableConfigurationError.
func NewUnusableConfigurationError(format string, a ...interface{}) *UnusableConfigurationError {
	return &UnusableConfigurationError{newTagged("UnusableConfigurationError", format, a...)}
}

// DiskLabelScanError reports a failure introspecting a disklabel.
type DiskLabelScanError struct{ *taggedError }

// NewDiskLabelScanError builds a DiskLabelScanError.
func NewDiskLabelScanError(cause error, format string, a ...interface{}) *DiskLabelScanError {
	return &DiskLabelScanError{newTaggedWrap("DiskLabelScanError", cause, format, a...)}
}

// CorruptGPTError reports a GPT disklabel that failed CRC/header checks.
type CorruptGPTError struct{ *taggedError }

// NewCorruptGPTError builds a CorruptGPTError.
func NewCorruptGPTError(format string, a ...interface{}) *CorruptGPTError {
	return &CorruptGPTError{newTagged("CorruptGPTError", format, a...)}
}

// InvalidDiskLabelError reports a disklabel of an unsupported or malformed type.
type InvalidDiskLabelError struct{ *taggedError }

// NewInvalidDiskLabelError builds an InvalidDiskLabelError.
func NewInvalidDiskLabelError(format string, a ...interface{}) *InvalidDiskLabelError {
	return &InvalidDiskLabelError{newTagged("InvalidDiskLabelError", format, a...)}
}

// FSError reports a generic filesystem format failure.
type FSError struct{ *taggedError }

// NewFSError builds an FSError.
func NewFSError(format string, a ...interface{}) *FSError {
	return &FSError{newTagged("FSError", format, a...)}
}

// FSResizeError reports a filesystem resize failure or out-of-bounds request.
type FSResizeError struct{ *taggedError }

// NewFSResizeError builds an FSResizeError.
func NewFSResizeError(format string, a ...interface{}) *FSResizeError {
	return &FSResizeError{newTagged("FSResizeError", format, a...)}
}

// FSFormatError reports a failure to stamp a filesystem (mkfs.*).
type FSFormatError struct{ *taggedError }

// NewFSFormatError builds an FSFormatError.
func NewFSFormatError(cause error, format string, a ...interface{}) *FSFormatError {
	return &FSFormatError{newTaggedWrap("FSFormatError", cause, format, a...)}
}

// LUKSError reports a LUKS header or passphrase failure.
type LUKSError struct{ *taggedError }

// NewLUKSError builds a LUKSError.
func NewLUKSError(format string, a ...interface{}) *LUKSError {
	return &LUKSError{newTagged("LUKSError", format, a...)}
}

// CryptoError reports a lower-level cryptsetup/dm-crypt tooling failure.
type CryptoError struct{ *taggedError }

// NewCryptoError builds a CryptoError.
func NewCryptoError(cause error, format string, a ...interface{}) *CryptoError {
	return &CryptoError{newTaggedWrap("CryptoError", cause, format, a...)}
}

// MDRaidError reports an mdadm tooling failure.
type MDRaidError struct{ *taggedError }

// NewMDRaidError builds an MDRaidError.
func NewMDRaidError(cause error, format string, a ...interface{}) *MDRaidError {
	return &MDRaidError{newTaggedWrap("MDRaidError", cause, format, a...)}
}

// MPathError reports a multipathd/multipath tooling failure.
type MPathError struct{ *taggedError }

// NewMPathError builds an MPathError.
func NewMPathError(cause error, format string, a ...interface{}) *MPathError {
	return &MPathError{newTaggedWrap("MPathError", cause, format, a...)}
}

// DMError reports a device-mapper (dmsetup) tooling failure.
type DMError struct{ *taggedError }

// NewDMError builds a DMError.
func NewDMError(cause error, format string, a ...interface{}) *DMError {
	return &DMError{newTaggedWrap("DMError", cause, format, a...)}
}

// RaidError reports an invalid RAID level / member-count combination.
type RaidError struct{ *taggedError }

// NewRaidError builds a RaidError.
func NewRaidError(format string, a ...interface{}) *RaidError {
	return &RaidError{newTagged("RaidError", format, a...)}
}

// BTRFSValueError reports an invalid BTRFS configuration, e.g. data_level
// requiring more members than are present.
type BTRFSValueError struct{ *taggedError }

// NewBTRFSValueError builds a BTRFSValueError.
func NewBTRFSValueError(format string, a ...interface{}) *BTRFSValueError {
	return &BTRFSValueError{newTagged("BTRFSValueError", format, a...)}
}
