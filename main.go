package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TurbineMonitor/dashboard"
	"TurbineMonitor/location"
	"TurbineMonitor/sim"
	"TurbineMonitor/telemetry"
	"TurbineMonitor/web"

	"github.com/charmbracelet/log"
	"github.com/jessevdk/go-flags"
)

type ProgramArgs struct {
	// Server Options
	Host string `short:"H" long:"host" default:"127.0.0.1" description:"IP to listen on"`
	Port uint16 `short:"P" long:"port" default:"27315" description:"Port to listen on"`

	// Simulation Options
	Interval     uint16 `short:"I" long:"interval" default:"2" description:"Seconds between simulated readings"`
	Profile      string `short:"p" long:"profile" description:"YAML turbine profile (id, name, default location, reading ranges)"`
	LocationFile string `short:"L" long:"location-file" default:"turbine_location.json" description:"Where the chosen location is stored"`
	TileURL      string `long:"tiles" default:"https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png" description:"Map tile URL template"`

	// Telemetry Options
	MQTTBroker   string `long:"mqtt-broker" description:"Publish snapshots to this broker, e.g. tcp://127.0.0.1:1883"`
	MQTTTopic    string `long:"mqtt-topic" default:"turbines/{id}/snapshot" description:"Topic to publish to, {id} is the turbine id"`
	MQTTClientID string `long:"mqtt-client-id" description:"MQTT client id (default: random)"`

	LogLevel string `short:"l" long:"log-level" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Log level"`
}

const (
	MIN_TIMEOUT_SECONDS = 2
)

func parseArgs(argv []string) (ProgramArgs, error) {
	args := ProgramArgs{}
	argParser := flags.NewParser(&args, flags.Default)
	_, err := argParser.ParseArgs(argv)
	return args, err
}

func newLogger(level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           lvl,
	}), nil
}

func getOutboundIP() (net.IP, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)

	return localAddr.IP, nil
}

func setupSinks(ctx context.Context, args ProgramArgs, profile TurbineProfile, logger *log.Logger) ([]dashboard.Sink, func(), error) {
	if args.MQTTBroker == "" {
		return nil, func() {}, nil
	}

	sink, err := telemetry.NewMQTTSink(telemetry.Options{
		Broker:    args.MQTTBroker,
		ClientID:  args.MQTTClientID,
		Topic:     args.MQTTTopic,
		TurbineID: profile.ID,
	}, logger.WithPrefix("mqtt"))
	if err != nil {
		return nil, nil, err
	}
	if err := sink.Connect(ctx); err != nil {
		return nil, nil, err
	}
	logger.Info("publishing snapshots", "broker", args.MQTTBroker, "topic", sink.Topic())
	return []dashboard.Sink{sink}, sink.Close, nil
}

func main() {
	args, err := parseArgs(os.Args[1:])
	if err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	logger, err := newLogger(args.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %v\n", err)
		os.Exit(1)
	}

	profile, err := LoadProfile(args.Profile)
	if err != nil {
		logger.Fatal("couldn't load profile", "err", err)
	}
	ranges, err := sim.DefaultRanges().Merge(profile.Ranges)
	if err != nil {
		logger.Fatal("invalid reading ranges", "err", err)
	}

	dev, err := sim.New(profile.Name, &sim.Opts{Ranges: ranges})
	if err != nil {
		logger.Fatal("couldn't initialize simulator", "err", err)
	}
	store := location.NewFileStore(args.LocationFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks, closeSinks, err := setupSinks(ctx, args, profile, logger)
	if err != nil {
		logger.Fatal("couldn't set up telemetry", "err", err)
	}
	defer closeSinks()

	intervalDuration := time.Duration(args.Interval) * time.Second
	ctrl := dashboard.New(dev, store, dashboard.Options{
		Interval: intervalDuration,
		Fallback: profile.Fallback(),
		Sinks:    sinks,
		Logger:   logger.WithPrefix("feed"),
	})
	defer ctrl.Close()

	site, err := web.New(ctrl, store, logger.WithPrefix("web"), web.Options{
		TurbineName: profile.Name,
		TileURL:     args.TileURL,
		Fallback:    profile.Fallback(),
	})
	if err != nil {
		logger.Fatal("couldn't build pages", "err", err)
	}

	timeoutLen := max(MIN_TIMEOUT_SECONDS, int(args.Interval))

	addr := fmt.Sprintf("%s:%d", args.Host, args.Port)
	srv := &http.Server{
		Addr:         addr,
		ReadTimeout:  time.Duration(timeoutLen) * time.Second,
		WriteTimeout: time.Duration(timeoutLen) * time.Second,
		IdleTimeout:  120 * time.Second,
		Handler:      site.Router(),
	}

	go func() {
		if args.Host == "0.0.0.0" {
			// resolve local IP for easier debugging
			if localIP, err := getOutboundIP(); err == nil {
				logger.Infof("Listening on %s:%d…", localIP.String(), args.Port)
			} else {
				logger.Infof("Listening on %s…", addr)
			}
		} else {
			logger.Infof("Listening on %s…", addr)
		}

		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "err", err)
			stop()
			return
		}
		logger.Info("Shutdown", "reason", err)
	}()

	<-ctx.Done()

	// Give the server a timeout period of 4 seconds
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
	defer cancel()
	// Doesn't block if no connections, but will otherwise wait until the timeout deadline.
	_ = srv.Shutdown(shutdownCtx)
}
