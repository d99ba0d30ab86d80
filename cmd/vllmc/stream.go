package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/vllmc/pkg/detok"
	"github.com/samcharles93/vllmc/pkg/vllm"
)

func streamCmd() *cli.Command {
	return &cli.Command{
		Name:  "stream",
		Usage: "Run a streaming generation, printing output as it arrives",
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
			var dec *detok.Decoder
			if v != nil {
				if dec, err = detok.New(v); err != nil {
					return err
				}
			}

			client := newClient(cmd)
			defer client.Close()

			stream, err := client.Stream(ctx, req)
			if err != nil {
				return err
			}
			defer stream.Close()

			var usage *vllm.Usage
			for {
				chunk, err := stream.Recv()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					fmt.Println()
					return err
				}
				for _, choice := range chunk.Choices {
					if err := emit(dec, choice.DeltaTokenIDs); err != nil {
						return err
					}
				}
				if chunk.Usage != nil {
					usage = chunk.Usage
				}
			}
			if dec != nil {
				fmt.Print(dec.Flush())
			}
			fmt.Println()

			if final := stream.FinalCompletion(); final != nil && len(final.Choices) > 0 {
				if reason := final.Choices[0].FinishReason; reason != vllm.FinishStop {
					fmt.Fprintf(os.Stderr, "finish: %s\n", reason)
				}
			}
			printUsage(usage)
			return nil
		},
	}
}

func emit(dec *detok.Decoder, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	if dec == nil {
		fmt.Print(formatIDs(ids), " ")
		return nil
	}
	text, err := dec.Delta(ids)
	if err != nil {
		return err
	}
	fmt.Print(text)
	return nil
}
