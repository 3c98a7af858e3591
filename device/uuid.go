// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package device

import (
	"strings"

	"github.com/google/uuid"
)

// ParseUUID canonicalizes a device identifier the populator reads off
// a descriptor (MD_UUID, a VG/PV uuid) to the lowercase, dashed form
// when it parses as RFC 4122. mdadm reports its array UUID colon-
// grouped rather than dashed ("50402ebe:e2e52e1c:..."), so a value
// that doesn't parse is returned trimmed and lowercased as-is rather
// than rejected: blivet never refuses to track a device over an
// identifier shape it doesn't recognize.
func ParseUUID(raw string) string {
	s := strings.TrimSpace(raw)
	if u, err := uuid.Parse(s); err == nil {
		return u.String()
	}
	return strings.ToLower(s)
}
