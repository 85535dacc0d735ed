/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vaporio/ptpslave/engine"
	"github.com/vaporio/ptpslave/phc"
	"github.com/vaporio/ptpslave/rxqueue"
	"github.com/vaporio/ptpslave/stats"
)

func main() {
	var configPath string
	var logLevel string
	var monitoringAddr string
	var queueID int
	var usePHC bool
	var phcIface string

	flag.StringVar(&configPath, "config", "/etc/ptpslave/sessions.toml", "Path to the TOML session table")
	flag.StringVar(&logLevel, "loglevel", "info", "Set a log level. Can be: debug, info, warning, error")
	flag.StringVar(&monitoringAddr, "monitoringaddr", ":8889", "host:port to serve /metrics on")
	flag.IntVar(&queueID, "queue", 0, "Flow steering queue id to request from the classifier cascade")
	flag.BoolVar(&usePHC, "phc", false, "Sample wall-clock time from a NIC PHC instead of the host system clock")
	flag.StringVar(&phcIface, "phciface", "eth0", "Interface whose PHC device backs -phc")
	flag.Parse()

	switch logLevel {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warning":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.Fatalf("Unrecognized log level: %v", logLevel)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}

	var clock rxqueue.Clock
	if usePHC {
		log.Infof("Sampling wall-clock time from the PHC behind %s", phcIface)
		clock = rxqueue.NewPHCClock(phcIface, phc.MethodSyscallClockGettime)
	} else {
		clock = rxqueue.NewSystemClock()
	}

	provider, err := newAFPacketProvider(cfg.ifaceByPort(), clock)
	if err != nil {
		log.Fatal(err)
	}
	defer provider.Close()

	installer := rxqueue.NewBPFInstaller(provider.rawPorts())

	e := engine.New(provider, installer, clock, queueID)
	if err := e.Init(); err != nil {
		log.Fatal(err)
	}
	if err := e.Configure(cfg.sessionConfigs()); err != nil {
		log.Fatal(err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(stats.NewCollector(e.Table()))
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		log.Infof("Serving metrics on %s/metrics", monitoringAddr)
		if err := http.ListenAndServe(monitoringAddr, mux); err != nil {
			log.Warningf("metrics server: %v", err)
		}
	}()

	if err := e.Start(); err != nil {
		log.Fatal(err)
	}
	log.Info("ptpslave: started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("ptpslave: shutting down")
	if err := e.Stop(); err != nil {
		log.Warningf("ptpslave: stop: %v", err)
	}
	e.Cleanup()
}
