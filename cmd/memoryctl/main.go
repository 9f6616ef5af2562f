// Package main is the entry point for memoryctl, the local memory engine
// command line client.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/memoryctl/cmd/memoryctl/app"
)

func main() {
	app.NewApp().Run()
}
