/*
main.go - Operator CLI for a local ledger

PURPOSE:
  Drives the dispatcher directly against a store, without the HTTP host.
  Useful for seeding a ledger, replaying a call, or inspecting records.

COMMANDS:
  init <blob>                     One-time metadata write
  invoke <function> [args...]     Any catalog function
  get <key> [--path <gjson>]      Print a stored record or one field of it
  refunds <order_id>              Print refunds already committed

GLOBAL FLAGS:
  --config         YAML config file (store and engine sections are used)
  --db             SQLite database path (default: ledger.db)
  --refund-policy  strict or legacy

EXIT CODES:
  0 on success, 1 on an error outcome or a missing record.

EXAMPLES:
  ledgerctl --db=./data/ledger.db invoke orderPay o1 m1 u1 100 50 1700000000
  ledgerctl get ORDERPAY_o1 --path points
*/
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v2"

	"github.com/warp/trade-ledger/config"
	"github.com/warp/trade-ledger/ledger"
	"github.com/warp/trade-ledger/logging"
	"github.com/warp/trade-ledger/store"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "ledgerctl",
		Usage: "record and inspect trade ledger operations",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "YAML config file"},
			&cli.StringFlag{Name: "db", Value: "ledger.db", Usage: "SQLite database path"},
			&cli.StringFlag{Name: "refund-policy", Usage: "refund ceiling policy (strict, legacy)"},
			&cli.StringFlag{Name: "log-level", Value: "error", Usage: "log level"},
		},
		Commands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "write the ledger metadata",
				ArgsUsage: "<blob>",
				Action: func(c *cli.Context) error {
					return withDispatcher(c, func(d *ledger.Dispatcher) error {
						return report(c.App.Writer, d.Init(c.Context, ledger.FnInit, c.Args().Slice()))
					})
				},
			},
			{
				Name:      "invoke",
				Usage:     "run a catalog function",
				ArgsUsage: "<function> [args...]",
				Action: func(c *cli.Context) error {
					if c.NArg() < 1 {
						return cli.Exit("function name is required", 1)
					}
					args := c.Args().Slice()
					return withDispatcher(c, func(d *ledger.Dispatcher) error {
						return report(c.App.Writer, d.Handle(c.Context, args[0], args[1:]))
					})
				},
			},
			{
				Name:      "get",
				Usage:     "print the record stored under a key",
				ArgsUsage: "<key>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Usage: "gjson path of a single field"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("exactly one key is required", 1)
					}
					key := c.Args().First()
					return withDispatcher(c, func(d *ledger.Dispatcher) error {
						return printRecord(c, d, key)
					})
				},
			},
			{
				Name:      "refunds",
				Usage:     "print refunds already committed for an order",
				ArgsUsage: "<order_id>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("exactly one order id is required", 1)
					}
					orderID := c.Args().First()
					return withDispatcher(c, func(d *ledger.Dispatcher) error {
						totals, err := d.Engine().Refunds(c.Context, orderID)
						if err != nil {
							return cli.Exit(err.Error(), 1)
						}
						enc := json.NewEncoder(c.App.Writer)
						return enc.Encode(map[string]any{
							"order_id": orderID,
							"points":   totals.Points.String(),
							"cash":     totals.Cash.String(),
							"count":    totals.Count,
						})
					})
				},
			},
		},
	}
}

// withDispatcher opens the configured store, runs fn and closes the store.
func withDispatcher(c *cli.Context, fn func(d *ledger.Dispatcher) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	// Logs go to stderr so they never mix with printed records.
	logger, err := logging.NewTo(c.App.ErrWriter, c.String("log-level"), "console")
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer logger.Sync()

	st, closer, err := store.Open(c.Context, cfg.Store, logger)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer closer.Close()

	engine := ledger.NewEngine(st,
		ledger.WithLogger(logger),
		ledger.WithCeilingPolicy(cfg.RefundPolicy()),
	)
	return fn(ledger.NewDispatcher(engine, logger))
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if c.IsSet("db") || c.String("config") == "" {
		cfg.Store.Backend = config.BackendSQLite
		cfg.Store.SQLitePath = c.String("db")
	}
	if c.IsSet("refund-policy") {
		cfg.Engine.RefundPolicy = c.String("refund-policy")
	}
	return cfg, cfg.Validate()
}

func printRecord(c *cli.Context, d *ledger.Dispatcher, key string) error {
	value, found, err := d.Engine().Lookup(c.Context, key)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if !found {
		return cli.Exit(fmt.Sprintf("no record under %s", key), 1)
	}

	path := c.String("path")
	if path == "" {
		fmt.Fprintln(c.App.Writer, string(value))
		return nil
	}
	res := gjson.GetBytes(value, path)
	if !res.Exists() {
		return cli.Exit(fmt.Sprintf("path %q not found in %s", path, key), 1)
	}
	fmt.Fprintln(c.App.Writer, res.String())
	return nil
}

func report(w io.Writer, out ledger.Outcome) error {
	if !out.OK() {
		return cli.Exit(fmt.Sprintf("%s: %s", out.Code, out.Message), 1)
	}
	fmt.Fprintln(w, out.Message)
	return nil
}
