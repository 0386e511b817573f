package main

import (
	"flag"
	"os"

	"github.com/louisbranch/trapmacros/internal/platform/config"
	"github.com/louisbranch/trapmacros/internal/tools/participanttoken"
)

func main() {
	cfg, err := participanttoken.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := participanttoken.Run(cfg, os.Stdout, nil); err != nil {
		config.Exitf("participant token: %v", err)
	}
}
