// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package format

import (
	"strings"

	"github.com/google/uuid"
)

// ParseUUID canonicalizes a filesystem/container identifier the
// populator reads off a descriptor (ID_FS_UUID, ID_FS_UUID_SUB) to the
// lowercase, dashed form when it parses as RFC 4122. Not every format
// reports one: vfat's ID_FS_UUID is an 8-hex-digit volume serial with
// no dashes at all, so a value that doesn't parse is returned trimmed
// and lowercased as-is rather than rejected.
func ParseUUID(raw string) string {
	s := strings.TrimSpace(raw)
	if u, err := uuid.Parse(s); err == nil {
		return u.String()
	}
	return strings.ToLower(s)
}
