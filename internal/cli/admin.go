package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"lifedash/internal/auth"
	"lifedash/internal/core"
	"lifedash/internal/daybucket"
	"lifedash/internal/services"
	"lifedash/internal/storage"
)

// AdminContext is passed to every lifedashctl command.
type AdminContext struct {
	Out io.Writer
	Now func() time.Time
}

const rangeLayout = "2006-01-02T15:04:05.000Z07:00"

// MigrateCmd applies the embedded schema migrations.
type MigrateCmd struct {
	Backend     string `help:"Database backend." enum:"sqlite,postgres" default:"sqlite"`
	SQLitePath  string `name:"sqlite-path" help:"SQLite database file." env:"SQLITE_DB_PATH" default:"./data/lifedash.db"`
	DatabaseURL string `name:"database-url" help:"PostgreSQL connection URL." env:"DATABASE_URL"`
}

func (c *MigrateCmd) Run(ctx *AdminContext) error {
	switch c.Backend {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("--database-url is required for postgres")
		}
		if err := storage.RunPostgresMigrations(c.DatabaseURL); err != nil {
			return err
		}
	default:
		if err := storage.RunSQLiteMigrations(c.SQLitePath); err != nil {
			return err
		}
	}
	fmt.Fprintf(ctx.Out, "migrations applied (%s)\n", c.Backend)
	return nil
}

// TokenCmd issues a bearer token for a user.
type TokenCmd struct {
	User   string        `help:"User ID placed in the sub claim." required:""`
	TTL    time.Duration `name:"ttl" help:"Token lifetime." default:"24h"`
	Secret string        `help:"HS256 signing secret." env:"AUTH_JWT_SECRET" required:""`
}

func (c *TokenCmd) Run(ctx *AdminContext) error {
	a, err := auth.NewAuthenticator(c.Secret)
	if err != nil {
		return err
	}
	token, err := a.Issue(c.User, c.TTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, token)
	return nil
}

// DayRangeCmd prints the UTC bounds of a calendar day in a timezone.
type DayRangeCmd struct {
	Date string `help:"Day as YYYY-MM-DD. Defaults to today in --tz."`
	TZ   string `name:"tz" help:"IANA timezone." required:""`
}

func (c *DayRangeCmd) Run(ctx *AdminContext) error {
	var (
		dk  core.DayKey
		err error
	)
	if c.Date == "" {
		dk, err = daybucket.DayKeyIn(ctx.Now(), c.TZ)
	} else {
		dk, err = daybucket.ParseDayKey(c.Date)
	}
	if err != nil {
		return err
	}

	r, err := daybucket.RangeForDayKey(dk, c.TZ)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "%s %s %s\n", daybucket.FormatDayKey(dk),
		r.Start.UTC().Format(rangeLayout), r.End.UTC().Format(rangeLayout))
	return nil
}

// NormalizeCmd converts a recurring amount to its monthly equivalent.
type NormalizeCmd struct {
	Amount    string `help:"Amount, e.g. 49.99." required:""`
	Frequency string `help:"Payment frequency." enum:"weekly,biweekly,monthly,annual" default:"monthly"`
}

func (c *NormalizeCmd) Run(ctx *AdminContext) error {
	amount, err := core.ParseAmount(c.Amount)
	if err != nil {
		return err
	}
	monthly, err := services.ToMonthly(amount, core.Frequency(strings.ToLower(c.Frequency)))
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, monthly.StringFixed(2))
	return nil
}
