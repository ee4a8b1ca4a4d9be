package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "relay",
		Usage:                 "Event-driven workflow automation engine",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			runCommand(),
			apiCommand(),
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
