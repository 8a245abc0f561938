// Command server runs the signaling rendezvous: channel membership,
// relay election, the heartbeat sweep and the NAT probe/data-relay
// responders.
package main

import (
	"flag"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"

	"github.com/onlinedi-vision/od-nat-piercer/signaling"
)

func main() {
	var (
		mainAddr  = flag.String("main-addr", "0.0.0.0:5000", "main UDP listen address")
		probeAddr = flag.String("probe-addr", "0.0.0.0:5001", "NAT-probe UDP listen address")
		verbose   = flag.Bool("verbose", false, "log at debug level")
	)
	flag.Parse()

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	srv, err := signaling.NewServer(*mainAddr, *probeAddr, signaling.DefaultConfig(), log)
	if err != nil {
		log.WithError(err).Fatal("failed to start signaling server")
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		log.Info("shutting down")
		srv.Stop()
	}()

	log.WithFields(logrus.Fields{"main": *mainAddr, "probe": *probeAddr}).Info("signaling server listening")
	srv.Run()
}
