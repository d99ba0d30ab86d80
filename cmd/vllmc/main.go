package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	// A local .env may carry VLLM_HOST / VLLM_PORT / VLLM_TIMEOUT.
	_ = godotenv.Load()

	app := &cli.Command{
		Name:  "vllmc",
		Usage: "Client CLI for a vLLM token-generation engine",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			completeCmd(),
			streamCmd(),
			abortCmd(),
			healthCmd(),
			infoCmd(),
			modelCmd(),
			versionCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
