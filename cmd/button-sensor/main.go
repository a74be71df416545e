// Command button-sensor debounces GPIO push buttons and publishes confirmed
// presses and releases to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/button-sensor/internal/config"
	"github.com/sweeney/button-sensor/internal/events"
	"github.com/sweeney/button-sensor/internal/gpio"
	"github.com/sweeney/button-sensor/internal/logic"
	"github.com/sweeney/button-sensor/internal/mqtt"
	"github.com/sweeney/button-sensor/internal/sched"
	"github.com/sweeney/button-sensor/internal/status"
	"github.com/sweeney/button-sensor/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (defaults apply when empty or missing)")
	tick := flag.Duration("tick", 0, "Timer tick period; one debounce step per tick")
	pass := flag.Duration("pass", 0, "Scheduler pass period")
	broker := flag.String("broker", "", `MQTT broker address ("off" disables publishing)`)
	heartbeat := flag.Duration("heartbeat", 0, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", "", `HTTP status address ("off" disables)`)
	backend := flag.String("gpio", "", "GPIO backend: gpiocdev, periph or fake")
	bias := flag.String("bias", "", "Input bias: pull-up, pull-down or none")
	encoding := flag.String("encoding", "", "Transition payload encoding: json or cbor")
	printState := flag.Bool("print-state", false, "Print each sensor's raw input and exit")
	writeConfig := flag.String("write-config", "", "Write the effective configuration to this file and exit")

	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
		cfg = loaded
	}

	// Flags given on the command line win over the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "tick":
			cfg.Timing.Tick = *tick
		case "pass":
			cfg.Timing.Pass = *pass
		case "broker":
			cfg.MQTT.Broker = offToEmpty(*broker)
		case "heartbeat":
			cfg.Timing.Heartbeat = *heartbeat
		case "http":
			cfg.HTTP.Addr = offToEmpty(*httpAddr)
		case "gpio":
			cfg.GPIO.Backend = *backend
		case "bias":
			cfg.GPIO.Bias = *bias
		case "encoding":
			cfg.MQTT.Encoding = *encoding
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if *writeConfig != "" {
		if err := cfg.Save(*writeConfig); err != nil {
			log.Fatalf("fatal: %v", err)
		}
		log.Printf("wrote config to %s", *writeConfig)
		return
	}

	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func offToEmpty(s string) string {
	if s == "off" {
		return ""
	}
	return s
}

func openReader(backend string, pins []logic.Pin, bias gpio.Bias) (gpio.Reader, error) {
	switch backend {
	case "gpiocdev", "":
		return gpio.NewRealReader(pins, bias)
	case "periph":
		return gpio.NewPeriphReader(pins, bias)
	case "fake":
		log.Printf("gpio: using fake reader, every pin reads idle")
		return gpio.NewFakeReader(), nil
	}
	return nil, fmt.Errorf("unknown gpio backend %q", backend)
}

func run(cfg *config.Config, printState bool) error {
	sensorCfgs, err := cfg.SensorConfigs()
	if err != nil {
		return fmt.Errorf("load sensors: %w", err)
	}
	reg, err := logic.NewRegistry(sensorCfgs)
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}
	bias, err := gpio.ParseBias(cfg.GPIO.Bias)
	if err != nil {
		return err
	}
	encoding, err := mqtt.ParseEncoding(cfg.MQTT.Encoding)
	if err != nil {
		return err
	}

	// Initialize GPIO
	reader, err := openReader(cfg.GPIO.Backend, cfg.Pins(), bias)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer reader.Close()

	if printState {
		return printSensors(os.Stdout, reg, reader)
	}

	ticks := &logic.TickCounter{}
	queue := events.NewQueue(events.DefaultCapacity)
	engine := logic.NewEngine(reg, ticks, reader, queue)
	scheduler := sched.New(sched.Task{Name: "sensor", Init: engine.Init, Update: func() { engine.Update() }})

	d := &daemon{
		sched:  scheduler,
		engine: engine,
		queue:  queue,
		now:    time.Now,
	}

	// Initialize MQTT
	if cfg.MQTT.Broker != "" {
		publisher := mqtt.NewRealPublisher(mqtt.Options{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			Encoding:    encoding,
			BufferSize:  cfg.MQTT.BufferSize,
		})
		defer publisher.Close()
		d.publisher = publisher
		d.mqttStatus = publisher
	} else {
		log.Printf("mqtt: no broker configured, publishing disabled")
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	d.tracker = status.NewTracker(time.Now(), status.Config{
		TickMs:      cfg.Timing.Tick.Milliseconds(),
		PassMs:      cfg.Timing.Pass.Milliseconds(),
		HeartbeatMs: cfg.Timing.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
		Encoding:    string(encoding),
		GPIO:        cfg.GPIO.Backend,
	})
	if net := readNetworkInfo(); net != nil {
		d.tracker.SetNetwork(net)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start HTTP status server and live feed
	if cfg.HTTP.Addr != "" {
		d.hub = web.NewHub()
		go d.hub.Run(ctx)
		srv := web.New(cfg.HTTP.Addr, d.tracker, d.hub)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	scheduler.Init()
	d.refreshTracker()

	// Publish startup event with full status snapshot
	d.publishStatus("STARTUP", "")

	go sched.RunTimer(ctx, cfg.Timing.Tick, ticks)

	log.Printf("started: sensors=%d tick=%v pass=%v broker=%s heartbeat=%v",
		reg.Len(), cfg.Timing.Tick, cfg.Timing.Pass, cfg.MQTT.Broker, cfg.Timing.Heartbeat)

	passTicker := time.NewTicker(cfg.Timing.Pass)
	defer passTicker.Stop()

	var heartbeat <-chan time.Time
	if cfg.Timing.Heartbeat > 0 {
		hb := time.NewTicker(cfg.Timing.Heartbeat)
		defer hb.Stop()
		heartbeat = hb.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return d.runLoop(passTicker.C, heartbeat, sigCh)
}

// daemon holds the components the main loop drives. publisher, mqttStatus
// and hub may be nil when the corresponding output is disabled.
type daemon struct {
	sched      *sched.Scheduler
	engine     *logic.Engine
	queue      *events.Queue
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	hub        *web.Hub
	now        func() time.Time
}

// runLoop runs a scheduler pass for every value on pass and forwards the
// transitions it produced. It returns after publishing SHUTDOWN on a signal.
func (d *daemon) runLoop(pass, heartbeat <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			d.refreshTracker()
			d.publishStatus("SHUTDOWN", signalName)
			return nil

		case <-pass:
			d.sched.Pass()
			for _, t := range d.queue.Drain() {
				d.dispatch(t)
			}
			d.refreshTracker()

		case <-heartbeat:
			st := d.engine.Stats()
			log.Printf("heartbeat: executions=%d steps=%d presses=%d releases=%d overruns=%d read_errors=%d queue_dropped=%d",
				st.Executions, st.Steps, st.Presses, st.Releases, st.Overruns, st.ReadErrors, d.queue.Dropped())
			// Refresh network info for heartbeat
			if net := readNetworkInfo(); net != nil {
				d.tracker.SetNetwork(net)
			}
			d.refreshTracker()
			d.publishStatus("HEARTBEAT", "")
		}
	}
}

// dispatch hands one confirmed transition to every consumer.
func (d *daemon) dispatch(t logic.Transition) {
	log.Printf("event: %s %s signal=%s step=%d", t.Sensor, t.Edge, t.Signal, t.Step)
	msg := mqtt.NewMessage(t, d.now())

	if d.publisher != nil {
		if err := d.publisher.Publish(msg); err != nil {
			// Don't crash on publish failure
			log.Printf("publish error: %v", err)
		}
	}
	if d.hub != nil {
		if payload, err := mqtt.FormatPayload(msg, mqtt.EncodingJSON); err == nil {
			d.hub.Broadcast(payload)
		}
	}
	d.tracker.RecordTransition(t)
}

func (d *daemon) refreshTracker() {
	counters := status.Counters{
		Passes:       d.sched.Passes(),
		QueueDropped: d.queue.Dropped(),
	}
	if d.hub != nil {
		counters.FeedDropped = d.hub.Dropped()
	}
	d.tracker.Update(d.engine.Registry().Sensors(), d.engine.Stats(), counters)
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
}

// publishStatus sends a retained lifecycle event carrying a full status
// snapshot.
func (d *daemon) publishStatus(event, reason string) {
	if d.publisher == nil {
		return
	}
	snap := d.tracker.Snapshot()
	ev := mqtt.SystemEvent{
		Timestamp:  d.now(),
		Event:      event,
		Reason:     reason,
		Retained:   event != "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := d.publisher.PublishSystem(ev); err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
		return
	}
	log.Printf("published %s event", event)
}

// printSensors reads every sensor's pin once and reports the raw level and
// the event it maps to.
func printSensors(w io.Writer, reg *logic.Registry, reader gpio.Reader) error {
	for _, s := range reg.Sensors() {
		cfg := s.Config()
		level, err := reader.ReadPin(cfg.Pin)
		if err != nil {
			return fmt.Errorf("read %s: %w", cfg.ID, err)
		}
		ev := logic.RawUp
		if level == cfg.ActiveLevel {
			ev = logic.RawDown
		}
		fmt.Fprintf(w, "%s (%s): %s %s\n", cfg.ID, cfg.Pin, level, ev)
	}
	return nil
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
