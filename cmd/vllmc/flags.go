package main

import (
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/vllmc/internal/logger"
	"github.com/samcharles93/vllmc/pkg/vllm"
)

var (
	host      string
	port      int64
	timeout   float64
	logLevel  string
	logFormat string
)

func connectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "host",
			Usage:       "engine host (default from VLLM_HOST)",
			Destination: &host,
		},
		&cli.Int64Flag{
			Name:        "port",
			Usage:       "engine port (default from VLLM_PORT)",
			Destination: &port,
		},
		&cli.Float64Flag{
			Name:        "timeout",
			Usage:       "request timeout in seconds (default from VLLM_TIMEOUT)",
			Destination: &timeout,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "warn",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (text, json)",
			Value:       "text",
			Destination: &logFormat,
		},
	}
}

func buildLogger() logger.Logger {
	level := logger.ParseLevel(logLevel)
	if logFormat == "json" {
		return logger.JSON(os.Stderr, level)
	}
	return logger.Text(os.Stderr, level)
}

// newClient builds a client from flags, the config file and the environment,
// in that precedence order.
func newClient(c *cli.Command) *vllm.Client {
	cfg := loadConfig()
	applyConnConfig(c, cfg)
	return vllm.New(vllm.Config{
		Host:    host,
		Port:    int(port),
		Timeout: time.Duration(timeout * float64(time.Second)),
		Logger:  buildLogger(),
	})
}
