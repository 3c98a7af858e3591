// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package ops

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/crypto/ssh/terminal"

	"github.com/blivet-go/blivet/log"
)

const (
	// MinPassphraseLength is the shortest passphrase PromptPassphrase
	// accepts.
	MinPassphraseLength = 8
	// MaxPassphraseLength is the longest passphrase PromptPassphrase
	// accepts.
	MaxPassphraseLength = 94
)

// ValidPassphrase reports whether phrase meets the length and
// printable-character requirements a LUKS passphrase must satisfy,
// grounded on the teacher's IsValidPassphrase.
func ValidPassphrase(phrase string) (bool, string) {
	if phrase == "" {
		return false, "passphrase is required"
	}
	if !isPrintable(phrase) {
		return false, "passphrase may only contain 7-bit, printable characters"
	}
	if len(phrase) < MinPassphraseLength {
		return false, fmt.Sprintf("passphrase must be at least %d characters long", MinPassphraseLength)
	}
	if len(phrase) > MaxPassphraseLength {
		return false, fmt.Sprintf("passphrase may be at most %d characters long", MaxPassphraseLength)
	}
	return true, ""
}

func isPrintable(s string) bool {
	for _, c := range s {
		if c < 32 || c > 126 {
			return false
		}
	}
	return true
}

// PromptPassphrase reads one passphrase from the controlling terminal
// with echo disabled, restoring terminal state on interrupt. Unlike the
// teacher's askPassPhrase, it never loops forever on a bad entry: a
// passphrase failing ValidPassphrase is returned as an error so the
// LUKS format helper can treat the device as configured=false instead
// of blocking discovery on interactive input.
func PromptPassphrase(prompt string) (string, error) {
	fd := int(syscall.Stdin)

	initialState, termErr := terminal.GetState(fd)
	if termErr == nil {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)
		defer signal.Stop(c)
		go func() {
			if _, ok := <-c; ok {
				_ = terminal.Restore(fd, initialState)
			}
		}()
	} else {
		log.Warning("unable to get terminal state for recovery: %v", termErr)
	}

	fmt.Print(prompt + ": ")
	raw, err := terminal.ReadPassword(fd)
	fmt.Print("\n")
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}

	phrase := strings.TrimSpace(string(raw))
	if ok, msg := ValidPassphrase(phrase); !ok {
		return "", fmt.Errorf("invalid passphrase: %s", msg)
	}
	return phrase, nil
}
