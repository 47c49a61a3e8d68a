package resolver

import (
	"errors"
	"fmt"
	"strings"

	"qmi-firmware-update/internal/logger"
	"qmi-firmware-update/internal/options"
	"qmi-firmware-update/internal/udev"
)

// ErrSelectionConflict is wrapped by every error reporting mutually
// exclusive selection options.
var ErrSelectionConflict = errors.New("conflicting device selection")

var (
	errPathAndVidPid    = conflict("cannot specify device path and vid:pid lookup")
	errPathAndBusDevnum = conflict("cannot specify device path and busnum:devnum lookup")
	errBothLookups      = conflict("cannot specify busnum:devnum and vid:pid lookups")
)

type conflictError string

func conflict(msg string) error { return conflictError(msg) }

func (e conflictError) Error() string        { return string(e) }
func (e conflictError) Is(target error) bool { return target == ErrSelectionConflict }

// NoDevicesError is returned when the selected USB device exposes no node of
// the requested type.
type NoDevicesError struct {
	SysfsPath string
}

func (e *NoDevicesError) Error() string {
	return "no devices found in sysfs path: " + e.SysfsPath
}

// Enumerator is the hardware lookup the resolver relies on.
// *udev.Sysfs implements it.
type Enumerator interface {
	FindByDeviceInfo(vid, pid uint16, busnum, devnum uint32) (string, error)
	ListDevices(sysfsPath string, t udev.NodeType) ([]string, error)
}

// Resolver turns a device selection into a device node path.
type Resolver struct {
	enum Enumerator
	log  *logger.Logger
}

// New returns a Resolver using enum for lookups.
func New(enum Enumerator, log *logger.Logger) *Resolver {
	return &Resolver{enum: enum, log: log}
}

// Resolve returns the device node selected by sel.
//
// An explicit path is returned as given, without checking it exists.
// Otherwise the USB device is looked up by vid:pid or busnum:devnum and the
// first node of type t it exposes is used. The enumerator is never called
// when the selection is contradictory.
func (r *Resolver) Resolve(sel options.Selection, t udev.NodeType) (string, error) {
	if sel.Path != "" && sel.HasVidPid() {
		return "", errPathAndVidPid
	}
	if sel.Path != "" && sel.HasBusDevnum() {
		return "", errPathAndBusDevnum
	}
	if sel.HasVidPid() && sel.HasBusDevnum() {
		return "", errBothLookups
	}

	path := sel.Path
	if path == "" {
		r.log.Debugf("looking up %s device by %s", t, describe(sel))
		sysfsPath, err := r.enum.FindByDeviceInfo(sel.VID, sel.PID, sel.Busnum, sel.Devnum)
		if err != nil {
			return "", err
		}

		nodes, err := r.enum.ListDevices(sysfsPath, t)
		if err != nil {
			return "", err
		}
		if len(nodes) == 0 {
			return "", &NoDevicesError{SysfsPath: sysfsPath}
		}
		if len(nodes) > 1 {
			r.log.Warnf("multiple %s devices found in sysfs path %s: %s; using %s",
				t, sysfsPath, strings.Join(nodes, ", "), nodes[0])
		}
		path = nodes[0]
	}

	r.log.Debugf("using %s device: %s", t, path)
	return path, nil
}

var _ Enumerator = (*udev.Sysfs)(nil)

func describe(sel options.Selection) string {
	switch {
	case sel.Path != "":
		return sel.Path
	case sel.HasVidPid():
		return fmt.Sprintf("vid:pid %04x:%04x", sel.VID, sel.PID)
	case sel.HasBusDevnum():
		return fmt.Sprintf("busnum:devnum %d:%d", sel.Busnum, sel.Devnum)
	}
	return "nothing"
}
