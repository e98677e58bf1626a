package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/calvinmclean/dualstep/commands"
	"github.com/calvinmclean/dualstep/controller"
	"github.com/calvinmclean/dualstep/motion"
	"github.com/calvinmclean/dualstep/monitor"
	"github.com/calvinmclean/dualstep/sim"
)

// Version is injected with ldflags
var Version = "dev"

const usage = `dualstep drives two stepper motors, either on a flashed board over serial or on a
simulated board in this process. Commands are read from stdin one per line, for
example SPEED:1000, M1:BACKWARD or SPIN:LEFT:800. Send HELP for the full list.

Usage:
	dualstep [-config dualstep.yml] [-verbose] <command>

Commands:
	sim     run a simulated board on stdin/stdout and serve the monitor on addr
	serial  forward stdin to the board named by DUALSTEP_SERIAL_PORT
	ports   list USB serial ports
	mkconf  write the current config to the config file
	conf    print the current config
	version
`

func main() {
	var configFile string
	var verbose bool
	flag.StringVar(&configFile, "config", ConfigFileName, "YAML config file")
	flag.BoolVar(&verbose, "verbose", false, "log at debug level")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return
	}

	log := logrus.New()

	cfg, err := loadConfig(configFile)
	if err != nil {
		log.WithError(err).Fatal("error loading config")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Fatal("invalid log_level")
	}
	if verbose {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch strings.ToLower(flag.Arg(0)) {
	case "sim":
		err = runSim(ctx, cfg, log)
	case "serial":
		err = runSerial(ctx, cfg, log)
	case "ports":
		err = listPorts()
	case "mkconf":
		err = mkconf(configFile, cfg)
	case "conf":
		err = writeConfig(os.Stdout, cfg)
	case "version":
		fmt.Printf("dualstep version %s\n", Version)
	case "help":
		flag.Usage()
	default:
		err = fmt.Errorf("unknown command %q", flag.Arg(0))
	}

	if err != nil {
		log.WithError(err).Fatal("exiting")
	}
}

func runSim(ctx context.Context, cfg Config, log *logrus.Logger) error {
	board := sim.NewBoard(sim.DefaultResolution)

	var srv *monitor.Server
	c, err := board.NewController(cfg.Motion,
		motion.WithLogger(log),
		motion.WithDriftHandler(func(a motion.DriftAdvisory) {
			srv.ObserveDrift(a)
		}),
	)
	if err != nil {
		return err
	}

	session := commands.NewSession(c, log)
	srv, err = monitor.New(session, log)
	if err != nil {
		return err
	}

	if cfg.Addr != "" {
		go func() {
			err := srv.ListenAndServe(ctx, cfg.Addr)
			if err != nil {
				log.WithError(err).Error("monitor stopped")
			}
		}()
	}

	log.Info("simulated board ready")

	err = session.Run(ctx, sim.NewByteReader(os.Stdin), os.Stdout, func() {
		time.Sleep(time.Millisecond)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runSerial(ctx context.Context, cfg Config, log *logrus.Logger) error {
	c, err := controller.NewFromEnv(
		controller.WithLogger(log),
		controller.WithMotionConfig(cfg.Motion),
	)
	if err != nil {
		return err
	}
	defer c.Close()

	return c.Run(ctx, os.Stdin, os.Stdout)
}

func listPorts() error {
	ports, err := controller.GetSerialPorts()
	if errors.Is(err, controller.ErrNoUSBSerial) {
		fmt.Println("no USB serial ports found")
		return nil
	}
	if err != nil {
		return err
	}

	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}

func mkconf(path string, cfg Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	defer f.Close()

	return writeConfig(f, cfg)
}
