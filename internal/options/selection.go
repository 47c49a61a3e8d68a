package options

import (
	"fmt"
	"strconv"
	"strings"
)

// SyntaxError reports a malformed --busnum-devnum or --vid-pid value.
// Token is always the exact substring that was rejected.
type SyntaxError struct {
	Option string // option the value was given to, e.g. "busnum-devnum"
	Field  string // rejected field, e.g. "bus number"; empty for field-count errors
	Token  string
}

func (e *SyntaxError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid %s string: too many fields: %s", e.Option, e.Token)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Token)
}

// Selection identifies the device an update acts on. Zero values mean unset.
// Path is mutually exclusive with the two numeric lookups; the resolver
// enforces that.
type Selection struct {
	Path   string
	VID    uint16
	PID    uint16
	Busnum uint32
	Devnum uint32
}

// HasVidPid reports whether a vid:pid lookup was requested.
func (s Selection) HasVidPid() bool { return s.VID != 0 || s.PID != 0 }

// HasBusDevnum reports whether a busnum:devnum lookup was requested.
func (s Selection) HasBusDevnum() bool { return s.Busnum != 0 || s.Devnum != 0 }

// IsZero reports whether no selection criterion at all was given.
func (s Selection) IsZero() bool {
	return s.Path == "" && !s.HasVidPid() && !s.HasBusDevnum()
}

// ParseBusDevnum parses "DEV" or "BUS:DEV", both decimal and in (0, MaxUint32].
// When only DEV is given the returned busnum is zero.
func ParseBusDevnum(value string) (busnum, devnum uint32, err error) {
	fields := strings.Split(value, ":")
	if len(fields) > 2 {
		return 0, 0, &SyntaxError{Option: "busnum-devnum", Token: value}
	}

	devField := fields[0]
	if len(fields) == 2 {
		b, err := parseNonZero(fields[0], 10, 32)
		if err != nil {
			return 0, 0, &SyntaxError{Option: "busnum-devnum", Field: "bus number", Token: fields[0]}
		}
		busnum = uint32(b)
		devField = fields[1]
	}

	d, err := parseNonZero(devField, 10, 32)
	if err != nil {
		return 0, 0, &SyntaxError{Option: "busnum-devnum", Field: "dev number", Token: devField}
	}
	return busnum, uint32(d), nil
}

// ParseVidPid parses "VID" or "VID:PID", both hexadecimal and in (0, MaxUint16].
// A leading "0x" is accepted on either field. When only VID is given the
// returned pid is zero.
func ParseVidPid(value string) (vid, pid uint16, err error) {
	fields := strings.Split(value, ":")
	if len(fields) > 2 {
		return 0, 0, &SyntaxError{Option: "vid-pid", Token: value}
	}

	if len(fields) == 2 {
		p, err := parseNonZero(trimHexPrefix(fields[1]), 16, 16)
		if err != nil {
			return 0, 0, &SyntaxError{Option: "vid-pid", Field: "product id", Token: fields[1]}
		}
		pid = uint16(p)
	}

	v, err := parseNonZero(trimHexPrefix(fields[0]), 16, 16)
	if err != nil {
		return 0, 0, &SyntaxError{Option: "vid-pid", Field: "vendor id", Token: fields[0]}
	}
	return uint16(v), pid, nil
}

// parseNonZero parses an unsigned integer rejecting zero, signs and
// anything strconv would not accept in full.
func parseNonZero(s string, base, bits int) (uint64, error) {
	if s == "" || s[0] == '+' || s[0] == '-' {
		return 0, strconv.ErrSyntax
	}
	v, err := strconv.ParseUint(s, base, bits)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		// zero is reserved for "unset"
		return 0, strconv.ErrRange
	}
	return v, nil
}

func trimHexPrefix(s string) string {
	if len(s) > 2 && (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
		return s[2:]
	}
	return s
}
