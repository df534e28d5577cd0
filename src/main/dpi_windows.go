//go:build windows

package main

import (
	"fmt"
	"log"

	"golang.org/x/sys/windows"
)

var (
	shcore = windows.NewLazySystemDLL("Shcore.dll")
	user32 = windows.NewLazySystemDLL("user32.dll")
)

// enableDPIAwareness attempts to set per-monitor DPI awareness so overlay
// coordinates match capture pixels. It runs before logging is configured, so
// it returns a status line instead of logging.
func enableDPIAwareness() string {
	setProcessDpiAwareness := shcore.NewProc("SetProcessDpiAwareness")
	const processPerMonitorDPIAware = 2
	if err := setProcessDpiAwareness.Find(); err == nil {
		ret, _, _ := setProcessDpiAwareness.Call(uintptr(processPerMonitorDPIAware))
		if ret == 0 {
			return "per-monitor awareness set"
		}
		return fmt.Sprintf("SetProcessDpiAwareness failed, code %d", ret)
	}

	setProcessDPIAware := user32.NewProc("SetProcessDPIAware")
	if err := setProcessDPIAware.Find(); err != nil {
		return "no DPI awareness API available"
	}
	if ret, _, _ := setProcessDPIAware.Call(); ret != 0 {
		return "system awareness set (fallback)"
	}
	return "SetProcessDPIAware failed"
}

func logMonitorConfiguration() {
	getSystemMetrics := user32.NewProc("GetSystemMetrics")
	if getSystemMetrics.Find() != nil {
		return
	}
	metric := func(i int) int {
		ret, _, _ := getSystemMetrics.Call(uintptr(i))
		return int(int32(ret))
	}
	const (
		smCXScreen        = 0
		smCYScreen        = 1
		smXVirtualScreen  = 76
		smYVirtualScreen  = 77
		smCXVirtualScreen = 78
		smCYVirtualScreen = 79
		smCMonitors       = 80
	)
	log.Printf("MONITOR: %d monitors, virtual x:%d y:%d w:%d h:%d, primary %dx%d; capture covers the primary display only",
		metric(smCMonitors),
		metric(smXVirtualScreen), metric(smYVirtualScreen), metric(smCXVirtualScreen), metric(smCYVirtualScreen),
		metric(smCXScreen), metric(smCYScreen))
}
