//go:build !windows

package main

import (
	"log"

	"omniselect-ocr/src/screenshot"
)

func enableDPIAwareness() string { return "managed by the platform" }

func logMonitorConfiguration() {
	bounds, err := screenshot.DisplayBounds()
	if err != nil {
		log.Printf("MONITOR: %v", err)
		return
	}
	log.Printf("MONITOR: primary display %v; capture covers the primary display only", bounds)
}
