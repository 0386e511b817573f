package main

import (
	"flag"
	"os"

	"github.com/louisbranch/trapmacros/internal/platform/config"
	"github.com/louisbranch/trapmacros/internal/tools/trapschema"
)

func main() {
	cfg, err := trapschema.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := trapschema.Run(cfg, os.Stdout); err != nil {
		config.Exitf("generate schema: %v", err)
	}
}
