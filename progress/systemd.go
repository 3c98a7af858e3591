// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package progress

import (
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/blivet-go/blivet/log"
)

// SystemdClient is a Client that reports populate-pass progress via
// sd_notify STATUS= messages and pings the watchdog on every Step, so a
// populate loop running as a systemd service doesn't get killed by its
// own WatchdogSec during a long udev settle retry loop.
type SystemdClient struct {
	desc string
}

var _ Client = (*SystemdClient)(nil)

// NewSystemdClient returns a Client that notifies systemd. It never
// returns nil; when the process was not started under systemd
// (NOTIFY_SOCKET unset) each notification is only logged at debug level.
func NewSystemdClient() *SystemdClient {
	return &SystemdClient{}
}

func (s *SystemdClient) notify(status string) {
	ok, err := daemon.SdNotify(false, status)
	if err != nil {
		log.Warning("sd_notify failed: %v", err)
		return
	}
	if !ok {
		log.Debug("sd_notify: not running under systemd notify supervision")
	}
}

// Desc reports the current populate phase as the unit's STATUS=.
func (s *SystemdClient) Desc(printPrefix, desc string) {
	s.desc = desc
	s.notify(fmt.Sprintf("STATUS=%s%s", printPrefix, desc))
}

// Partial reports a MultiStep pass's progress as STATUS=.
func (s *SystemdClient) Partial(total int, step int) {
	s.notify(fmt.Sprintf("STATUS=%s (%d/%d)", s.desc, step, total))
}

// Step pings the watchdog so a long settle-retry Loop isn't killed.
func (s *SystemdClient) Step() {
	s.notify(daemon.SdNotifyWatchdog)
}

// Success reports READY=1 once the populate pass that owns this
// progress unit has completed its settle wait successfully.
func (s *SystemdClient) Success() {
	s.notify(daemon.SdNotifyReady + "\nSTATUS=populate complete")
}

// Failure reports STOPPING=1 so systemd doesn't restart a populate run
// that failed for a reason a restart won't fix (e.g. a corrupt GPT).
func (s *SystemdClient) Failure() {
	s.notify(daemon.SdNotifyStopping + "\nSTATUS=populate failed")
}

// LoopWaitDuration matches the settle ceiling from §5 (~300s) divided
// across watchdog pings so a slow settle doesn't starve the watchdog.
func (s *SystemdClient) LoopWaitDuration() time.Duration {
	return 10 * time.Second
}
