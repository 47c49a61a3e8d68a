package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"qmi-firmware-update/internal/config"
	"qmi-firmware-update/internal/dispatch"
	"qmi-firmware-update/internal/logger"
	"qmi-firmware-update/internal/operation"
	"qmi-firmware-update/internal/options"
	"qmi-firmware-update/internal/resolver"
	"qmi-firmware-update/internal/udev"
)

const programName = "qmi-firmware-update"

// version is overridden at build time with -ldflags "-X qmi-firmware-update/cmd.version=..."
var version = "1.0.0"

const description = ` E.g. an update operation:
 $ sudo ` + programName + ` \
       --update \
       --device /dev/cdc-wdm4 \
       --firmware-version 05.05.58.00 \
       --config-version 005.025_002 \
       --carrier Generic \
       SWI9X15C_05.05.58.00.cwe \
       SWI9X15C_05.05.58.00_Generic_005.025_002.nvu

 E.g. a verify operation:
 $ sudo ` + programName + ` \
       --verify \
       SWI9X15C_05.05.58.00.cwe \
       SWI9X15C_05.05.58.00_Generic_005.025_002.nvu
`

// environment holds everything a run talks to outside of its arguments.
// Tests swap the enumerator and back end for fakes.
type environment struct {
	stdout io.Writer
	stderr io.Writer

	newEnumerator func(cfg *config.Config) resolver.Enumerator
	newBackend    func(cfg *config.Config, log *logger.Logger) operation.Backend
}

func defaultEnvironment() *environment {
	return &environment{
		stdout: os.Stdout,
		stderr: os.Stderr,
		newEnumerator: func(cfg *config.Config) resolver.Enumerator {
			return udev.NewSysfs(afero.NewOsFs(), cfg.SysfsRoot, cfg.DevRoot)
		},
		newBackend: func(cfg *config.Config, log *logger.Logger) operation.Backend {
			return operation.NewCommandBackend(cfg.Operations, log)
		},
	}
}

// Execute parses os.Args, runs the selected action and returns the process
// exit code: 0 on success, 1 on any failure.
func Execute() int {
	return run(os.Args[1:], defaultEnvironment())
}

func run(args []string, env *environment) int {
	if args == nil {
		// cobra falls back to os.Args when given nil
		args = []string{}
	}

	code := 0
	root := newRootCmd(env, &code)
	root.SetArgs(args)
	root.SetOut(env.stdout)
	root.SetErr(env.stderr)

	if err := root.Execute(); err != nil {
		// The verbosity is not known yet, so this bypasses the logger
		fmt.Fprintf(env.stderr, "error: couldn't parse options: %v\n", err)
		return 1
	}
	return code
}

// cliFlags are the destinations of every command-line flag.
type cliFlags struct {
	options.Flags

	busDevnum  string
	vidPid     string
	configPath string
	version    bool
	help       bool
}

// flagGroup is one section of the help output.
type flagGroup struct {
	title string
	set   *pflag.FlagSet
}

func (f *cliFlags) groups() []flagGroup {
	selection := pflag.NewFlagSet("selection", pflag.ContinueOnError)
	selection.StringVarP(&f.busDevnum, "busnum-devnum", "N", "", "Select device by bus and device number (in decimal), as `[BUS:]DEV`.")
	selection.StringVarP(&f.vidPid, "vid-pid", "D", "", "Select device by device vendor and product id (in hexadecimal), as `VID:[PID]`.")

	update := pflag.NewFlagSet("update", pflag.ContinueOnError)
	update.BoolVarP(&f.Update, "update", "u", false, "Launch firmware update process.")
	update.StringVarP(&f.Device, "device", "d", "", "Specify cdc-wdm device `PATH` (e.g. /dev/cdc-wdm0).")
	update.StringVarP(&f.FirmwareVersion, "firmware-version", "f", "", "Firmware `VERSION` (e.g. '05.05.58.00').")
	update.StringVarP(&f.ConfigVersion, "config-version", "c", "", "Config `VERSION` (e.g. '005.025_002').")
	update.StringVarP(&f.Carrier, "carrier", "C", "", "`CARRIER` name (e.g. 'Generic').")
	update.BoolVarP(&f.DeviceOpenProxy, "device-open-proxy", "p", false, "Request to use the 'qmi-proxy' proxy.")
	update.BoolVar(&f.DeviceOpenMBIM, "device-open-mbim", false, "Open an MBIM device with EXT_QMUX support.")

	qdl := pflag.NewFlagSet("update-qdl", pflag.ContinueOnError)
	qdl.BoolVarP(&f.UpdateQDL, "update-qdl", "U", false, "Launch firmware update process in QDL mode.")
	qdl.StringVarP(&f.Serial, "serial", "s", "", "Specify QDL serial device `PATH` (e.g. /dev/ttyUSB0).")

	verify := pflag.NewFlagSet("verify", pflag.ContinueOnError)
	verify.BoolVarP(&f.Verify, "verify", "z", false, "Analyze and Verify firmware images.")

	general := pflag.NewFlagSet("main", pflag.ContinueOnError)
	general.BoolVarP(&f.Verbose, "verbose", "v", false, "Run action with verbose logs, including the debug ones.")
	general.BoolVar(&f.Silent, "silent", false, "Run action with no logs; not even the error/warning ones.")
	general.StringVar(&f.configPath, "config", "", "Read settings and operation helpers from the YAML `FILE`.")
	general.BoolVar(&f.UnpackBundles, "unpack-bundles", false, "Unpack .zip/.7z/.tar* image bundles before running the action.")
	general.BoolVarP(&f.version, "version", "V", false, "Print version.")
	general.BoolVarP(&f.help, "help", "h", false, "Show help.")

	return []flagGroup{
		{title: "Generic device selection options", set: selection},
		{title: "Update options", set: update},
		{title: "Update options (QDL mode)", set: qdl},
		{title: "Verify options", set: verify},
		{title: "Application options", set: general},
	}
}

func newRootCmd(env *environment, code *int) *cobra.Command {
	f := &cliFlags{}
	groups := f.groups()

	root := &cobra.Command{
		Use:           programName + " [OPTION...] FILE1 FILE2...",
		Short:         "Update firmware in QMI devices",
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(c *cobra.Command, args []string) error {
			if f.version {
				printVersion(env.stdout)
				*code = 0
				return nil
			}

			// Only the value strings of the custom-parsed options are kept
			// here; they are validated by options.Build.
			if c.Flags().Changed("busnum-devnum") {
				f.BusDevnum = &f.busDevnum
			}
			if c.Flags().Changed("vid-pid") {
				f.VidPid = &f.vidPid
			}

			log := logger.New(f.Level(), env.stdout, env.stderr)
			*code = runAction(f.Flags, args, f.configPath, env, log)
			return nil
		},
	}

	for _, g := range groups {
		root.Flags().AddFlagSet(g.set)
	}
	root.SetHelpFunc(func(c *cobra.Command, _ []string) {
		printHelp(c.OutOrStdout(), c, groups)
	})
	return root
}

// runAction is everything after flag parsing: config, validation,
// resolution and dispatch. Every failure is reported once via log.Report.
func runAction(f options.Flags, images []string, configPath string, env *environment, log *logger.Logger) int {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Report(err)
		return 1
	}
	if cfg.UnpackBundles {
		f.UnpackBundles = true
	}

	req, err := options.Build(f, images)
	if err != nil {
		log.Report(err)
		return 1
	}
	for _, name := range f.Ignored(req.Action) {
		log.Warnf("option %s is ignored by --%s", name, req.Action.Name())
	}

	res := resolver.New(env.newEnumerator(cfg), log)
	d := dispatch.New(res, env.newBackend(cfg, log), cfg.WorkDir, log)
	if err := d.Run(req); err != nil {
		log.Report(err)
		return 1
	}
	return 0
}

func printHelp(w io.Writer, c *cobra.Command, groups []flagGroup) {
	var b strings.Builder
	fmt.Fprintf(&b, "Usage:\n  %s - %s\n", c.Use, c.Short)
	for _, g := range groups {
		fmt.Fprintf(&b, "\n%s:\n%s", g.title, g.set.FlagUsages())
	}
	fmt.Fprintf(&b, "\n%s", description)
	fmt.Fprint(w, b.String())
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "\n%s %s\n"+
		"This is free software: you are free to change and redistribute it.\n"+
		"There is NO WARRANTY, to the extent permitted by law.\n\n", programName, version)
}
