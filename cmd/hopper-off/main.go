// Command hopper-off powers down every motor on the bus, for when the robot
// is left holding a pose after a crash.
package main

import (
	"flag"

	"github.com/dmweis/hopper-go/body"
	"github.com/dmweis/hopper-go/config"
	"github.com/jacobsa/go-serial/serial"
	"github.com/sirupsen/logrus"
)

var (
	portName = flag.String("port", "/dev/ttyACM0", "the serial port path")
)

func main() {
	flag.Parse()
	log := logrus.WithFields(logrus.Fields{
		"pkg": "main",
	})

	port, err := serial.Open(serial.OpenOptions{
		PortName:              *portName,
		BaudRate:              1000000,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       0,
		InterCharacterTimeout: 100,
	})
	if err != nil {
		log.Fatalf("opening serial port: %s", err)
	}

	bus, err := body.NewDynamixelBus(port, config.Default())
	if err != nil {
		log.Fatalf("opening motor bus: %s", err)
	}

	if err := bus.SyncWriteTorque(false); err != nil {
		log.Errorf("disabling motors: %s", err)
	}
	if err := bus.Close(); err != nil {
		log.Fatalf("closing bus: %s", err)
	}
}
