package main

import (
	"github.com/survivornet/beacon/backend/internal/server"
	"github.com/survivornet/beacon/backend/internal/util"
	"github.com/survivornet/beacon/backend/pkg/logger"
	"github.com/survivornet/beacon/backend/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
