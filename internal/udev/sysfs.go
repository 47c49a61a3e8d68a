// Package udev finds USB modems and the device nodes they expose by walking
// the kernel's sysfs tree.
package udev

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// NodeType selects which kind of device node ListDevices collects.
type NodeType int

const (
	// ControlNode is a cdc-wdm control channel (QMI or MBIM).
	ControlNode NodeType = iota
	// TTYNode is a serial port, used in QDL download mode.
	TTYNode
)

func (t NodeType) String() string {
	if t == TTYNode {
		return "tty"
	}
	return "cdc-wdm"
}

// ErrNoCriteria is returned by FindByDeviceInfo when every criterion is zero.
var ErrNoCriteria = errors.New("no device selection criteria given")

// Sysfs looks devices up in a sysfs tree mounted on an afero filesystem.
type Sysfs struct {
	fs        afero.Fs
	sysfsRoot string
	devRoot   string
}

// NewSysfs returns a Sysfs reading <sysfsRoot>/bus/usb/devices and mapping
// node names to paths below devRoot.
func NewSysfs(fs afero.Fs, sysfsRoot, devRoot string) *Sysfs {
	return &Sysfs{fs: fs, sysfsRoot: sysfsRoot, devRoot: devRoot}
}

// FindByDeviceInfo returns the sysfs path of the single USB device matching
// every non-zero criterion.
func (s *Sysfs) FindByDeviceInfo(vid, pid uint16, busnum, devnum uint32) (string, error) {
	if vid == 0 && pid == 0 && busnum == 0 && devnum == 0 {
		return "", ErrNoCriteria
	}

	devicesDir := filepath.Join(s.sysfsRoot, "bus", "usb", "devices")
	entries, err := afero.ReadDir(s.fs, devicesDir)
	if err != nil {
		return "", fmt.Errorf("failed to list USB devices: %w", err)
	}

	var matches []string
	for _, entry := range entries {
		path := filepath.Join(devicesDir, entry.Name())

		// Interfaces (e.g. 1-1:1.0) carry no idVendor and are skipped here
		devVID, ok := s.readUint(path, "idVendor", 16, 16)
		if !ok {
			continue
		}
		if vid != 0 && uint16(devVID) != vid {
			continue
		}
		if pid != 0 && !s.attrEquals(path, "idProduct", 16, 16, uint64(pid)) {
			continue
		}
		if busnum != 0 && !s.attrEquals(path, "busnum", 10, 32, uint64(busnum)) {
			continue
		}
		if devnum != 0 && !s.attrEquals(path, "devnum", 10, 32, uint64(devnum)) {
			continue
		}
		matches = append(matches, path)
	}

	switch len(matches) {
	case 0:
		return "", errors.New("no device found with matching criteria")
	case 1:
		return s.resolveLink(matches[0]), nil
	default:
		return "", fmt.Errorf("multiple devices found with matching criteria: %s", strings.Join(matches, ", "))
	}
}

// ListDevices returns the device nodes of type t found below sysfsPath,
// de-duplicated and in natural order (cdc-wdm2 before cdc-wdm10).
// Symlinks inside the tree are not followed.
func (s *Sysfs) ListDevices(sysfsPath string, t NodeType) ([]string, error) {
	seen := make(map[string]bool)
	var names []string

	err := afero.Walk(s.fs, sysfsPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// unreadable attribute directories are common in sysfs
			return nil
		}
		if !info.IsDir() || !isNode(path, t) {
			return nil
		}
		name := filepath.Base(path)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		return filepath.SkipDir
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", sysfsPath, err)
	}

	sort.Slice(names, func(i, j int) bool { return naturalLess(names[i], names[j]) })

	nodes := make([]string, 0, len(names))
	for _, name := range names {
		nodes = append(nodes, filepath.Join(s.devRoot, name))
	}
	return nodes, nil
}

// isNode reports whether the sysfs directory path is a class device of type t:
//
//	.../usbmisc/cdc-wdm0  (or .../usb/cdc-wdm0 on older kernels)
//	.../tty/ttyUSB0, .../tty/ttyACM0
func isNode(path string, t NodeType) bool {
	name := filepath.Base(path)
	parent := filepath.Base(filepath.Dir(path))
	switch t {
	case ControlNode:
		return strings.HasPrefix(name, "cdc-wdm") && (parent == "usbmisc" || parent == "usb")
	case TTYNode:
		return strings.HasPrefix(name, "tty") && parent == "tty"
	}
	return false
}

func (s *Sysfs) readUint(dir, attr string, base, bits int) (uint64, bool) {
	raw, err := afero.ReadFile(s.fs, filepath.Join(dir, attr))
	if err != nil {
		return 0, false
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(raw)), base, bits)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (s *Sysfs) attrEquals(dir, attr string, base, bits int, want uint64) bool {
	v, ok := s.readUint(dir, attr, base, bits)
	return ok && v == want
}

// resolveLink follows the /sys/bus/usb/devices/<x> symlink to the real device
// directory so that the tree below it can be walked. Filesystems without
// symlink support return path unchanged.
func (s *Sysfs) resolveLink(path string) string {
	lr, ok := s.fs.(afero.LinkReader)
	if !ok {
		return path
	}
	target, err := lr.ReadlinkIfPossible(path)
	if err != nil {
		return path
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(path), target)
	}
	return filepath.Clean(target)
}

// naturalLess orders names by their alphabetic prefix and then by the
// numeric suffix, so that ttyUSB2 sorts before ttyUSB10.
func naturalLess(a, b string) bool {
	pa, na, oka := splitNumericSuffix(a)
	pb, nb, okb := splitNumericSuffix(b)
	if pa != pb || !oka || !okb {
		return a < b
	}
	return na < nb
}

func splitNumericSuffix(s string) (string, uint64, bool) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) {
		return s, 0, false
	}
	n, err := strconv.ParseUint(s[i:], 10, 64)
	if err != nil {
		return s, 0, false
	}
	return s[:i], n, true
}
