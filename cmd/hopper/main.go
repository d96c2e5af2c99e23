package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmweis/hopper-go/body"
	"github.com/dmweis/hopper-go/config"
	fakebus "github.com/dmweis/hopper-go/fake/bus"
	"github.com/dmweis/hopper-go/motion"
	"github.com/jacobsa/go-serial/serial"
	"github.com/sirupsen/logrus"
)

var (
	portName   = flag.String("port", "/dev/ttyACM0", "the serial port path")
	configPath = flag.String("config", "", "path to a config file (default: built-in)")
	fake       = flag.Bool("fake", false, "use a fake motor bus instead of the serial port")
	debug      = flag.Bool("debug", false, "enable debug logging")
)

func main() {
	flag.Parse()

	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	log := logrus.WithFields(logrus.Fields{
		"pkg": "main",
	})

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("loading config: %s", err)
		}
	}

	bus, err := openBus(cfg)
	if err != nil {
		log.Fatalf("opening motor bus: %s", err)
	}

	ctrl := motion.New(body.New(bus), cfg)

	// Catch both SIGINT (ctrl+c) and SIGTERM (kill/systemd), so the robot
	// can sit down and power off its motors before exiting.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	log.Info("standing up")
	ctrl.SetPosture(motion.Standing)

	<-sigs
	log.Info("caught signal, shutting down")

	ctrl.SetPosture(motion.Folded)
	deadline := time.Now().Add(30 * time.Second)
	for ctrl.Posture() != motion.Folded && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}

	if err := ctrl.Close(); err != nil {
		log.Fatalf("shutting down: %s", err)
	}
}

func openBus(cfg *config.Config) (body.Bus, error) {
	if *fake {
		return fakebus.New(11.8), nil
	}

	port, err := serial.Open(serial.OpenOptions{
		PortName:              *portName,
		BaudRate:              1000000,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       0,
		InterCharacterTimeout: 100,
	})
	if err != nil {
		return nil, err
	}

	return body.NewDynamixelBus(port, cfg)
}
