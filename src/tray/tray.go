// Package tray puts a capture and quit menu in the system tray.
package tray

import (
	"fmt"
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

type Options struct {
	Title     string
	Hotkey    string
	Port      int
	OnCapture func()
	OnQuit    func()
}

// Icon is the tray icon resource.
func Icon() fyne.Resource {
	return fyne.NewStaticResource("omniselect.svg", []byte(SVGContent))
}

// Menu builds the tray menu. Info items are disabled labels.
func Menu(opts Options) *fyne.Menu {
	capture := fyne.NewMenuItem("Capture region", func() {
		if opts.OnCapture != nil {
			opts.OnCapture()
		}
	})

	items := []*fyne.MenuItem{capture, fyne.NewMenuItemSeparator()}
	if opts.Hotkey != "" {
		items = append(items, info("Hotkey: "+opts.Hotkey))
	}
	if opts.Port > 0 {
		items = append(items, info(fmt.Sprintf("Resident TCP port: %d", opts.Port)))
	}

	quit := fyne.NewMenuItem("Quit", func() {
		log.Printf("Tray: quit requested")
		if opts.OnQuit != nil {
			opts.OnQuit()
		}
	})
	quit.IsQuit = true
	items = append(items, fyne.NewMenuItemSeparator(), quit)

	title := opts.Title
	if title == "" {
		title = "OmniSelect-OCR"
	}
	return fyne.NewMenu(title, items...)
}

func info(label string) *fyne.MenuItem {
	item := fyne.NewMenuItem(label, nil)
	item.Disabled = true
	return item
}

// Install sets the tray menu and icon. It reports false when the platform
// has no system tray.
func Install(app fyne.App, opts Options) bool {
	desk, ok := app.(desktop.App)
	if !ok {
		log.Printf("Tray: not supported by this driver")
		return false
	}
	desk.SetSystemTrayMenu(Menu(opts))
	desk.SetSystemTrayIcon(Icon())
	return true
}
