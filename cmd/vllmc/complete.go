package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/vllmc/pkg/detok"
)

func completeCmd() *cli.Command {
	return &cli.Command{
		Name:  "complete",
		Usage: "Run a non-streaming generation",
		Flags: append(connectionFlags(), generateFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			req, err := buildRequest()
			if err != nil {
				return err
			}
			v, err := loadVocab()
			if err != nil {
				return err
			}

			client := newClient(cmd)
			defer client.Close()

			completion, err := client.Complete(ctx, req)
			if err != nil {
				return err
			}

			for _, choice := range completion.Choices {
				if v != nil {
					text, err := detok.Full(v, choice.TokenIDs)
					if err != nil {
						return err
					}
					fmt.Println(text)
				} else {
					fmt.Println(formatIDs(choice.TokenIDs))
				}
			}
			printUsage(completion.Usage)
			return nil
		},
	}
}
