package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/pacer/device"
	"github.com/sarchlab/pacer/monitoring"
	"github.com/sarchlab/pacer/recording"
)

var (
	confPortFlag      int
	monitorPortFlag   int
	levelDeliveryFlag bool
	intervalFlag      uint32
	baseUnitFlag      time.Duration
	recordFlag        string
	openDashboardFlag bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a pacer device until interrupted.",
	Run:   runDevice,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVar(&confPortFlag, "conf-port",
		device.DefaultConfPort,
		"TCP port of the configuration channel")
	runCmd.Flags().IntVar(&monitorPortFlag, "monitor-port", 0,
		"port of the monitoring server, 0 picks a free one")
	runCmd.Flags().BoolVar(&levelDeliveryFlag, "level-delivery", false,
		"use level-triggered interrupt delivery instead of messages")
	runCmd.Flags().Uint32Var(&intervalFlag, "interval",
		device.DefaultInterval,
		"initial interval, in interval units")
	runCmd.Flags().DurationVar(&baseUnitFlag, "base-unit",
		device.DefaultBaseUnit,
		"wall-clock duration of one interval unit")
	runCmd.Flags().StringVar(&recordFlag, "record", "",
		"record device activity into the given SQLite database")
	runCmd.Flags().BoolVar(&openDashboardFlag, "open-dashboard", false,
		"open the monitoring server in a browser")
}

func runDevice(cmd *cobra.Command, _ []string) {
	loadEnv(cmd)

	d := buildDevice()

	var recorder *recording.Recorder
	if recordFlag != "" {
		var err error
		recorder, err = recording.NewRecorder(recordFlag)
		if err != nil {
			log.Fatalf("cannot open recorder: %s", err)
		}
		d.AcceptHook(recorder)
	}

	if err := d.Attach(); err != nil {
		log.Fatalf("cannot attach device: %s", err)
	}

	fmt.Fprintf(os.Stderr, "Configuration channel on %s\n", d.ConfAddr())

	monitor := monitoring.NewMonitor()
	if monitorPortFlag != 0 {
		monitor.WithPortNumber(monitorPortFlag)
	}
	monitor.RegisterDevice(d)
	addr := monitor.StartServer()

	if openDashboardFlag {
		_ = browser.OpenURL("http://" + addr)
	}

	waitForInterrupt()

	d.Detach()
	if recorder != nil {
		if err := recorder.Close(); err != nil {
			log.Printf("cannot close recorder: %s", err)
		}
	}

	atexit.Exit(0)
}

func buildDevice() *device.Device {
	builder := device.MakeBuilder().
		WithConfPort(confPortFlag).
		WithInterval(intervalFlag).
		WithTimeScale(baseUnitFlag, baseUnitFlag/10)

	if levelDeliveryFlag {
		line := device.NewLevelLine()
		line.SetListener(func(high bool) {
			log.Printf("irq line high=%v", high)
		})
		builder = builder.WithLevelDelivery().WithLine(line)
	} else {
		builder = builder.WithMessageDelivery().
			WithLine(device.NewLogLine("Pacer"))
	}

	return builder.Build()
}

// loadEnv reads a .env file, if present, and lets environment variables fill
// in flags the user did not set on the command line.
func loadEnv(cmd *cobra.Command) {
	_ = godotenv.Load()

	if v := os.Getenv("PACER_CONF_PORT"); v != "" &&
		!cmd.Flags().Changed("conf-port") {
		port, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid PACER_CONF_PORT: %s", err)
		}
		confPortFlag = port
	}

	if v := os.Getenv("PACER_MONITOR_PORT"); v != "" &&
		!cmd.Flags().Changed("monitor-port") {
		port, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid PACER_MONITOR_PORT: %s", err)
		}
		monitorPortFlag = port
	}
}

func waitForInterrupt() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	fmt.Fprintln(os.Stderr, "Shutting down")
}
