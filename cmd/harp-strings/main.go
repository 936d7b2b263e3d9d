// Command harp-strings turns capacitive touch strings into MIDI notes and
// publishes every pluck to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/harp-strings/internal/adc"
	"github.com/sweeney/harp-strings/internal/config"
	"github.com/sweeney/harp-strings/internal/gpio"
	"github.com/sweeney/harp-strings/internal/harp"
	"github.com/sweeney/harp-strings/internal/midiout"
	"github.com/sweeney/harp-strings/internal/mqtt"
	"github.com/sweeney/harp-strings/internal/pluck"
	"github.com/sweeney/harp-strings/internal/status"
	"github.com/sweeney/harp-strings/internal/touch"
	"github.com/sweeney/harp-strings/internal/web"
)

// logger is replaced by initLogger once flags are parsed.
var logger = slog.Default()

// initLogger configures the shared slog logger and calls slog.SetDefault so
// the stdlib log package also routes through the same handler.
func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

type options struct {
	configPath  string
	adcPort     string
	midiPort    string
	tick        time.Duration
	broker      string
	heartbeat   time.Duration
	httpAddr    string
	printValues bool
	listMIDI    bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "/etc/harp-strings.yaml", "Instrument config file")
	flag.StringVar(&opts.adcPort, "adc", "", "Serial port of the touch front-end (overrides config)")
	flag.StringVar(&opts.midiPort, "midi", "", "MIDI output port name (overrides config)")
	flag.DurationVar(&opts.tick, "tick", time.Millisecond, "Polling loop interval")
	flag.StringVar(&opts.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	flag.DurationVar(&opts.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&opts.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.BoolVar(&opts.printValues, "print-values", false, "Print averaged sensor values and exit")
	flag.BoolVar(&opts.listMIDI, "list-midi", false, "List MIDI output ports and exit")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()
	initLogger(*debug)

	if err := run(opts); err != nil {
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	if opts.listMIDI {
		for _, name := range midiout.OutPorts() {
			fmt.Println(name)
		}
		return nil
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.adcPort != "" {
		cfg.ADC.Port = opts.adcPort
	}
	if opts.midiPort != "" {
		cfg.MIDI.Port = opts.midiPort
	}
	if cfg.ADC.Port == "" {
		return errors.New("no adc port configured")
	}

	// Initialize the touch front-end
	sampler, err := adc.Open(cfg.ADC.Port, cfg.ADC.Baud, time.Duration(cfg.ADC.TimeoutMs)*time.Millisecond)
	if err != nil {
		return fmt.Errorf("init adc: %w", err)
	}
	defer sampler.Close()

	var selector touch.Selector
	if cfg.Multiplexed() {
		var pins [gpio.SelectLines]int
		copy(pins[:], cfg.Mux.Pins)
		mux, err := gpio.NewMuxSelector(cfg.Mux.Chip, pins)
		if err != nil {
			return fmt.Errorf("init mux: %w", err)
		}
		defer mux.Close()
		selector = mux
	}

	if opts.printValues {
		start := time.Now()
		inst, err := harp.Build(cfg, sampler, selector, start, nil, logger)
		if err != nil {
			return err
		}
		printValues(os.Stdout, inst, start, time.Duration(cfg.SamplePeriodMs)*time.Millisecond)
		return nil
	}

	// Initialize MIDI output
	var output pluck.Sink
	if cfg.MIDI.Port != "" {
		sender, err := midiout.Open(cfg.MIDI.Port)
		if err != nil {
			return fmt.Errorf("init midi: %w", err)
		}
		defer sender.Close()
		output = sender
		logger.Info("midi output open", "port", sender.Port())
	} else {
		logger.Warn("no midi port configured, notes are published to mqtt only")
	}

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(opts.broker, logger)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	startTime := time.Now()
	inst, err := harp.Build(cfg, sampler, selector, startTime, output, logger)
	if err != nil {
		return err
	}
	// Notes reach the broker from a separate goroutine; the loop never waits on it
	inst.AddSink(harp.NewAsyncSink(mqtt.Sink{Publisher: publisher}, mqtt.BufferSize, logger))
	defer inst.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(startTime, status.Config{
		SamplePeriodMs: cfg.SamplePeriodMs,
		TickMs:         opts.tick.Milliseconds(),
		HeartbeatMs:    opts.heartbeat.Milliseconds(),
		Broker:         opts.broker,
		HTTPAddr:       opts.httpAddr,
		MIDIPort:       cfg.MIDI.Port,
		ADCPort:        cfg.ADC.Port,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.Update(inst.Status(), inst.Counts())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		logger.Warn("failed to publish startup event", "err", err)
	} else {
		logger.Info("published startup event")
	}

	// Start HTTP status server
	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("http server error", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("http status server listening", "addr", opts.httpAddr)
	}

	logger.Info("started",
		"strings", inst.Len(),
		"sample_period_ms", cfg.SamplePeriodMs,
		"tick", opts.tick,
		"broker", opts.broker,
		"heartbeat", opts.heartbeat)

	ticker := time.NewTicker(opts.tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(inst, publisher, publisher, tracker, opts.heartbeat, time.Now, ticker.C, sigCh)
}

// statusEvery is how many ticks pass between status tracker refreshes.
const statusEvery = 50

func runLoop(inst *harp.Instrument, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	ticks := 0
	for {
		select {
		case s := <-sig:
			logger.Info("shutting down", "signal", s)
			t := now()

			// No note may be left hanging on the synth
			for _, e := range inst.Silence(t) {
				logger.Info("silenced", "string", e.String, "note", e.Note)
			}
			// Deliver queued note events before SHUTDOWN
			if err := inst.Close(); err != nil {
				logger.Warn("closing event sinks", "err", err)
			}

			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: t,
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				refreshTracker(inst, mqttStatus, tracker)
				event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				logger.Warn("failed to publish shutdown event", "err", err)
			} else {
				logger.Info("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			for _, e := range inst.Tick(t) {
				logger.Debug("note", "event", e.Type, "string", e.String, "note", e.Note)
			}

			if hbData := inst.CheckHeartbeat(t, heartbeat); hbData != nil {
				logger.Info("heartbeat",
					"uptime", hbData.Uptime,
					"note_on", hbData.Counts.NoteOn,
					"note_off", hbData.Counts.NoteOff,
					"errors", hbData.Counts.Errors)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					refreshTracker(inst, mqttStatus, tracker)
					hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					logger.Warn("heartbeat publish error", "err", err)
				}
			}

			ticks++
			if tracker != nil && ticks%statusEvery == 0 {
				refreshTracker(inst, mqttStatus, tracker)
			}
		}
	}
}

func refreshTracker(inst *harp.Instrument, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker) {
	tracker.Update(inst.Status(), inst.Counts())
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
}

// printValues fills every string's buffer and prints the averages, for
// picking a threshold. Sample times are synthetic so no sleeping is needed.
func printValues(w io.Writer, inst *harp.Instrument, start time.Time, period time.Duration) {
	step := period + time.Millisecond
	for i := 1; i <= touch.BufferSize; i++ {
		inst.Tick(start.Add(time.Duration(i) * step))
	}
	for _, st := range inst.Status() {
		fmt.Fprintf(w, "%s: value=%d threshold=%d touched=%v\n", st.Name, st.Value, st.Threshold, st.Touched)
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
