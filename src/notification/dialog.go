package notification

import (
	"log"

	"github.com/ncruces/zenity"
)

// ShowBlockingError shows a modal error dialog and waits for it to be
// dismissed. Used when the app cannot start, so there is no tray to report
// through.
func ShowBlockingError(title, message string) {
	if err := zenity.Error(message, zenity.Title(title), zenity.ErrorIcon); err != nil {
		log.Printf("%s: %s (dialog unavailable: %v)", title, message, err)
	}
}
