package options

import (
	"errors"

	"qmi-firmware-update/internal/logger"
)

// Validation failures.
var (
	ErrNoActions      = errors.New("no actions specified")
	ErrTooManyActions = errors.New("too many actions specified")
	ErrNoImages       = errors.New("no firmware images specified")
)

// Action is the operation a run performs. The only implementations are
// Update, UpdateQDL and Verify, so a validated Request always carries
// exactly one of them.
type Action interface {
	// Name is the long flag that selected the action.
	Name() string
	isAction()
}

// Update runs the regular update through the modem's control channel.
type Update struct {
	Selection

	FirmwareVersion string
	ConfigVersion   string
	Carrier         string
	ViaProxy        bool
	ViaMBIM         bool
}

// UpdateQDL runs the update in QDL download mode over a serial port.
type UpdateQDL struct {
	Selection
}

// Verify analyzes the firmware images without touching any device.
type Verify struct{}

func (Update) Name() string    { return "update" }
func (UpdateQDL) Name() string { return "update-qdl" }
func (Verify) Name() string    { return "verify" }

func (Update) isAction()    {}
func (UpdateQDL) isAction() {}
func (Verify) isAction()    {}

// Request is the validated, immutable result of option parsing.
type Request struct {
	Action        Action
	Verbosity     logger.Level
	Images        []string
	UnpackBundles bool
}

// Flags holds the raw values of every command-line option, as filled in by
// the flag parser. BusDevnum and VidPid are nil when the option was absent.
type Flags struct {
	// selection
	BusDevnum *string
	VidPid    *string

	// update
	Update          bool
	Device          string
	FirmwareVersion string
	ConfigVersion   string
	Carrier         string
	DeviceOpenProxy bool
	DeviceOpenMBIM  bool

	// update-qdl
	UpdateQDL bool
	Serial    string

	// verify
	Verify bool

	// main
	Verbose       bool
	Silent        bool
	UnpackBundles bool
}

// Level maps --silent and --verbose to a logging level. Silent wins.
func (f Flags) Level() logger.Level {
	switch {
	case f.Silent:
		return logger.Silent
	case f.Verbose:
		return logger.Verbose
	default:
		return logger.Normal
	}
}

// Build validates f and the positional image list and returns the request.
// Value syntax is checked first, then the number of actions, then images.
func Build(f Flags, images []string) (Request, error) {
	var sel Selection
	if f.BusDevnum != nil {
		busnum, devnum, err := ParseBusDevnum(*f.BusDevnum)
		if err != nil {
			return Request{}, err
		}
		sel.Busnum, sel.Devnum = busnum, devnum
	}
	if f.VidPid != nil {
		vid, pid, err := ParseVidPid(*f.VidPid)
		if err != nil {
			return Request{}, err
		}
		sel.VID, sel.PID = vid, pid
	}

	n := 0
	for _, set := range []bool{f.Update, f.UpdateQDL, f.Verify} {
		if set {
			n++
		}
	}
	if n == 0 {
		return Request{}, ErrNoActions
	}
	if n > 1 {
		return Request{}, ErrTooManyActions
	}

	if len(images) == 0 {
		return Request{}, ErrNoImages
	}

	var action Action
	switch {
	case f.Update:
		sel.Path = f.Device
		action = Update{
			Selection:       sel,
			FirmwareVersion: f.FirmwareVersion,
			ConfigVersion:   f.ConfigVersion,
			Carrier:         f.Carrier,
			ViaProxy:        f.DeviceOpenProxy,
			ViaMBIM:         f.DeviceOpenMBIM,
		}
	case f.UpdateQDL:
		sel.Path = f.Serial
		action = UpdateQDL{Selection: sel}
	default:
		action = Verify{}
	}

	return Request{
		Action:        action,
		Verbosity:     f.Level(),
		Images:        append([]string(nil), images...),
		UnpackBundles: f.UnpackBundles,
	}, nil
}

// Ignored lists the options in f that the chosen action does not use.
func (f Flags) Ignored(a Action) []string {
	var ignored []string
	add := func(set bool, name string) {
		if set {
			ignored = append(ignored, name)
		}
	}

	_, isUpdate := a.(Update)
	_, isQDL := a.(UpdateQDL)

	if !isUpdate {
		add(f.Device != "", "--device")
		add(f.FirmwareVersion != "", "--firmware-version")
		add(f.ConfigVersion != "", "--config-version")
		add(f.Carrier != "", "--carrier")
		add(f.DeviceOpenProxy, "--device-open-proxy")
		add(f.DeviceOpenMBIM, "--device-open-mbim")
	}
	if !isQDL {
		add(f.Serial != "", "--serial")
	}
	if !isUpdate && !isQDL {
		add(f.BusDevnum != nil, "--busnum-devnum")
		add(f.VidPid != nil, "--vid-pid")
	}
	return ignored
}
