package main

import (
	"os"

	"qmi-firmware-update/cmd" // Import the cmd package which contains the CLI flags and execution logic
)

// main is the program entry point.
// It delegates to cmd.Execute() and exits with the code it returns.
//
// qmi-firmware-update updates the firmware of USB modems controlled over QMI:
//   - Parses and validates exactly one action (--update, --update-qdl or --verify)
//     together with the list of firmware images to use
//   - Finds the modem's cdc-wdm control node or QDL serial port, either from an
//     explicit path or by looking the USB device up in sysfs by vid:pid or busnum:devnum
//   - Hands the images and the device to the helper program configured for the action
//
// Error handling strategy:
//   - Every failure is fatal: it is reported once as "error: <message>" and the
//     program exits with status 1. Nothing is retried.
//   - --silent suppresses all output, including that final error line.
func main() {
	os.Exit(cmd.Execute())
}
