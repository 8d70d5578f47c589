package config

import (
	"flag"
	"fmt"
)

const HelpMessage = `
Ride lifecycle service.

Usage:
  ride -mode=<mode> [-config-path=config.yaml]

Modes:
  ride-service        profiles, ride lifecycle, pending queue and ride watch streams (default port 3000)
  location-service    live driver positions, geocoding, routing and estimates (default port 3001)

Selected environment (see config.yaml for every key):
  STORAGE_DRIVER      postgres | firestore | memory (ride-service only)
  EVENTS_BROKER       rabbitmq | kafka | none
  AUTH_PROVIDER       jwt | firebase
  LOG_LEVEL           DEBUG | INFO | WARN | ERROR
  LOG_FILE            optional rotating log file
`

func PrintHelp() {
	if HelpMessage != "" {
		fmt.Printf("%s", HelpMessage)
	} else {
		flag.Usage()
	}
}
