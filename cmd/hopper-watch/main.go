// Command hopper-watch relaxes the motors and prints the joint angles and
// solved foot positions as the legs are moved by hand. Useful for checking
// the geometry config against the real robot.
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/dmweis/hopper-go/body"
	"github.com/dmweis/hopper-go/config"
	"github.com/dmweis/hopper-go/hexapod"
	"github.com/dmweis/hopper-go/ik"
	"github.com/dmweis/hopper-go/math3d"
	"github.com/jacobsa/go-serial/serial"
	"github.com/sirupsen/logrus"
)

var (
	portName = flag.String("port", "/dev/ttyACM0", "the serial port path")
	interval = flag.Int("interval", 1000, "the time between reads (ms)")
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

	cfg := config.Default()
	bus, err := body.NewDynamixelBus(port, cfg)
	if err != nil {
		log.Fatalf("opening motor bus: %s", err)
	}
	defer bus.Close()

	// relax everything so the legs can be posed by hand
	if err := bus.SyncWriteTorque(false); err != nil {
		log.Fatalf("disabling motors: %s", err)
	}

	for {
		var joints hexapod.BodyJoints
		for i := 0; i < body.JointCount; i++ {
			angle, err := bus.ReadAngle(i)
			if err != nil {
				log.Warnf("reading motor %d: %s", i, err)
				continue
			}
			leg := hexapod.Leg(i / 3)
			switch i % 3 {
			case 0:
				joints[leg].Coxa = angle
			case 1:
				joints[leg].Femur = angle
			default:
				joints[leg].Tibia = angle
			}
		}

		pose := ik.Forward(joints, cfg)
		for _, leg := range hexapod.Legs {
			j := joints[leg]
			fmt.Printf("%-12s coxa=%6.1f femur=%6.1f tibia=%6.1f  foot=%s\n",
				leg, math3d.Deg(j.Coxa), math3d.Deg(j.Femur), math3d.Deg(j.Tibia), pose[leg])
		}
		fmt.Println()

		time.Sleep(time.Duration(*interval) * time.Millisecond)
	}
}
