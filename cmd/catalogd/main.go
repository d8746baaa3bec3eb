// Command catalogd serves the parts catalog and order API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Andi3172/fullstack-tic-project/pkg/cli"
)

func main() {
	// Order totals and prices are JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewServiceCommand(cli.ServiceCommandOptions{
		Name:              "catalogd",
		Description:       "PC parts catalog and order API",
		RunServer:         runServer,
		RunMigrations:     runMigrations,
		CheckDependencies: checkDependencies,
		CustomCommands: func(load cli.LoadFunc) []*cobra.Command {
			return []*cobra.Command{newSeedCommand(load)}
		},
	})
	cli.Execute(ctx, cmd)
}
