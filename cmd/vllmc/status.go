package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
)

func healthCmd() *cli.Command {
	var (
		wait         bool
		pollInterval float64
	)
	return &cli.Command{
		Name:  "health",
		Usage: "Check engine health",
		Flags: append(connectionFlags(),
			&cli.BoolFlag{
				Name:        "wait",
				Usage:       "block until the engine reports healthy",
				Destination: &wait,
			},
			&cli.Float64Flag{
				Name:        "poll-interval",
				Usage:       "health poll interval in seconds (with --wait)",
				Value:       1,
				Destination: &pollInterval,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client := newClient(cmd)
			defer client.Close()

			if wait {
				interval := time.Duration(pollInterval * float64(time.Second))
				if err := client.WaitForReady(ctx, interval); err != nil {
					return err
				}
				fmt.Println("healthy")
				return nil
			}

			hs, err := client.HealthCheck(ctx)
			if err != nil {
				return err
			}
			if !hs.Healthy {
				if hs.Message != "" {
					return fmt.Errorf("unhealthy: %s", hs.Message)
				}
				return errors.New("unhealthy")
			}
			fmt.Println("healthy")
			return nil
		},
	}
}

func infoCmd() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Show engine server status",
		Flags: connectionFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client := newClient(cmd)
			defer client.Close()

			si, err := client.ServerInfo(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("server_type:      %s\n", si.ServerType)
			fmt.Printf("active_requests:  %d\n", si.ActiveRequests)
			fmt.Printf("paused:           %t\n", si.IsPaused)
			fmt.Printf("uptime:           %s\n", time.Duration(si.UptimeSeconds*float64(time.Second)).Round(time.Second))
			return nil
		},
	}
}

func modelCmd() *cli.Command {
	return &cli.Command{
		Name:  "model",
		Usage: "Show served model metadata",
		Flags: connectionFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client := newClient(cmd)
			defer client.Close()

			mi, err := client.ModelInfo(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("model:            %s\n", mi.ModelPath)
			fmt.Printf("generation:       %t\n", mi.IsGeneration)
			fmt.Printf("max_context:      %d\n", mi.MaxContextLength)
			fmt.Printf("vocab_size:       %d\n", mi.VocabSize)
			fmt.Printf("supports_vision:  %t\n", mi.SupportsVision)
			return nil
		},
	}
}
