package main

// Build-time variables injected via linker flags:
//
//	go build -ldflags "-X main.Version=$(git describe --tags) ..." -o brix
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)
