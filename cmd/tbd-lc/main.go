package main

import "github.com/appsworld/go-tbd/cmd/tbd-lc/cmd"

var (
	version = "dev"
	commit  = "none"
)

func main() {
	cmd.AppVersion = version + " (" + commit + ")"
	cmd.Execute()
}
