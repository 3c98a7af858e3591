// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package platform

import "os"

// efiDirExists reports whether path exists, mirroring syscheck's
// getEFIExist check for /sys/firmware/efi.
func efiDirExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
