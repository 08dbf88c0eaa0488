package main

import (
	"os"

	"github.com/tphakala/marcharvest/cmd"
	"github.com/tphakala/marcharvest/internal/buildinfo"
)

// Set through ldflags:
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.buildDate=2026-10-19"
var (
	version   string
	buildDate string
)

func main() {
	os.Exit(cmd.Execute(buildinfo.NewContext(version, buildDate)))
}
