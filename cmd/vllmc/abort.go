package main

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"
)

func abortCmd() *cli.Command {
	return &cli.Command{
		Name:      "abort",
		Usage:     "Abort in-flight requests by id",
		ArgsUsage: "REQUEST_ID [REQUEST_ID...]",
		Flags:     connectionFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ids := cmd.Args().Slice()
			if len(ids) == 0 {
				return errors.New("at least one request id is required")
			}

			client := newClient(cmd)
			defer client.Close()

			return client.Abort(ctx, ids...)
		},
	}
}
