/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package phc

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// TimeMethod is method we use to get time off a PHC device.
type TimeMethod string

// Methods we support to get time.
const (
	MethodSyscallClockGettime TimeMethod = "syscall_clock_gettime"
)

// IfaceToPHCDevice returns path to PHC device associated with given network card iface.
func IfaceToPHCDevice(iface string) (string, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return "", fmt.Errorf("failed to create socket for ioctl: %w", err)
	}
	defer unix.Close(fd)
	info, err := unix.IoctlGetEthtoolTsInfo(fd, iface)
	if err != nil {
		return "", fmt.Errorf("getting interface %s info: %w", iface, err)
	}
	if info.Phc_index < 0 {
		return "", fmt.Errorf("%s: no PHC support", iface)
	}
	return fmt.Sprintf("/dev/ptp%d", info.Phc_index), nil
}

// clockIDFromFd derives the dynamic clockid_t for an open PHC file
// descriptor, per the kernel's PHC_FD_TO_CLOCKID macro in
// include/uapi/linux/ptp_clock.h: ~fd packed into the top bits with
// the CLOCKFD marker in the low 3 bits.
func clockIDFromFd(fd uintptr) int32 {
	return int32(^int32(fd)<<3) | 3
}

// Time returns the current time read off the PTP Hardware Clock
// behind iface.
func Time(iface string, method TimeMethod) (time.Time, error) {
	device, err := IfaceToPHCDevice(iface)
	if err != nil {
		return time.Time{}, err
	}

	f, err := os.Open(device)
	if err != nil {
		return time.Time{}, err
	}
	defer f.Close()

	switch method {
	case MethodSyscallClockGettime:
		var ts unix.Timespec
		if err := unix.ClockGettime(clockIDFromFd(f.Fd()), &ts); err != nil {
			return time.Time{}, fmt.Errorf("clock_gettime on %s: %w", device, err)
		}
		return time.Unix(ts.Sec, ts.Nsec), nil
	default:
		return time.Time{}, fmt.Errorf("unknown method to get PHC time %q", method)
	}
}
