package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"lifedash/internal/cli"
)

var CLI struct {
	Version kong.VersionFlag

	Migrate   cli.MigrateCmd   `cmd:"" help:"Apply database migrations."`
	Token     cli.TokenCmd     `cmd:"" help:"Issue a bearer token for a user."`
	DayRange  cli.DayRangeCmd  `cmd:"" name:"day-range" help:"Show the UTC range of a day in a timezone."`
	Normalize cli.NormalizeCmd `cmd:"" help:"Convert a recurring amount to its monthly value."`
}

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx := kong.Parse(&CLI,
		kong.Name("lifedashctl"),
		kong.Description("Administrative tools for the lifedash service"),
		kong.UsageOnError(),
		kong.Vars{"version": "v0.1.0"},
	)

	if err := ctx.Run(&cli.AdminContext{Out: os.Stdout, Now: time.Now}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
