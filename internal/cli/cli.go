// Package cli implements the flasher's command-line parsing as a manual
// os.Args walk; the surface is too small for the flag package's
// single-dash/double-dash conventions to buy anything.
package cli

import (
	"fmt"
	"strconv"

	"gcfflasher/internal/engine"
)

const usage = `GCFFlasher copyright dresden elektronik ingenieurtechnik gmbh
usage: gcfflasher <options>
options:
 -r              force device reset without programming
 -f <firmware>   flash firmware file
 -d <device>     device path to use, e.g. /dev/ttyUSB0 (numbers and names are not resolved)
 -c              connect and debug serial protocol
 -t <timeout>    retry until timeout (seconds) is reached
 -l              list devices
 --debug         verbose debug logging
 --web           serve live progress over a local WebSocket
 -v, --version   print the version and exit
 -h, -?          print this help
`

// Config is the fully parsed command line.
type Config struct {
	Task         engine.Task
	DevicePath   string
	FirmwarePath string
	RetrySeconds int
	RetrySet     bool
	Debug        bool
	Web          bool
	ShowVersion  bool
}

// Usage returns the help text printed for -h/-?/no arguments.
func Usage() string { return usage }

// Parse parses argv (os.Args[1:]) into a Config.
func Parse(argv []string) (*Config, error) {
	cfg := &Config{Task: engine.TaskHelp}

	if len(argv) == 0 {
		return cfg, nil
	}

	cfg.Task = engine.TaskNone

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch arg {
		case "-v", "--version":
			cfg.ShowVersion = true
			return cfg, nil
		case "-r":
			cfg.Task = engine.TaskReset
		case "-c":
			cfg.Task = engine.TaskConnect
		case "-l":
			cfg.Task = engine.TaskList
		case "-h", "-?", "--help":
			cfg.Task = engine.TaskHelp
			return cfg, nil
		case "--debug":
			cfg.Debug = true
		case "--web":
			cfg.Web = true
		case "-f":
			i++
			if i >= len(argv) {
				return nil, &engine.CLIError{Msg: "-f requires a firmware file path"}
			}
			cfg.FirmwarePath = argv[i]
			cfg.Task = engine.TaskProgram
		case "-d":
			i++
			if i >= len(argv) {
				return nil, &engine.CLIError{Msg: "-d requires a device path"}
			}
			cfg.DevicePath = argv[i]
		case "-t":
			i++
			if i >= len(argv) {
				return nil, &engine.CLIError{Msg: "-t requires a timeout in seconds"}
			}
			secs, err := strconv.Atoi(argv[i])
			if err != nil || secs < 0 || secs > 3600 {
				return nil, &engine.CLIError{Msg: fmt.Sprintf("invalid -t value %q, must be 0..3600", argv[i])}
			}
			cfg.RetrySeconds = secs
			cfg.RetrySet = true
		default:
			return nil, &engine.CLIError{Msg: fmt.Sprintf("unrecognized argument %q", arg)}
		}
	}

	if cfg.Task == engine.TaskNone {
		cfg.Task = engine.TaskHelp
	}

	return cfg, nil
}
