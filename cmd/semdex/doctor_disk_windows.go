// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

//go:build windows

package main

import "golang.org/x/sys/windows"

// diskFree returns the bytes available to the current user on the volume
// holding path.
func diskFree(path string) (uint64, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	var free, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(p, &free, &total, &totalFree); err != nil {
		return 0, err
	}
	return free, nil
}
