package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"factorview/internal/config"
	"factorview/internal/data"
	"factorview/internal/logging"
	"factorview/internal/routes"

	"github.com/goccy/go-json"
)

type command struct {
	usage string
	named bool // takes --name
	call  func(ctx context.Context, c *data.Client, name string, p data.Params) (data.Payload, error)
}

var commands = map[string]command{
	"factor-info": {usage: "factor metadata (GET /api/factor)", call: func(ctx context.Context, c *data.Client, _ string, p data.Params) (data.Payload, error) {
		return c.FactorInfo(ctx, p)
	}},
	"factor-stats": {usage: "aggregate factor statistics", call: func(ctx context.Context, c *data.Client, _ string, p data.Params) (data.Payload, error) {
		return c.FactorStats(ctx, p)
	}},
	"factor-stats-backtest": {usage: "per-factor backtest series", call: func(ctx context.Context, c *data.Client, _ string, p data.Params) (data.Payload, error) {
		return c.FactorStatsBacktest(ctx, p)
	}},
	"factor-stats-group": {usage: "per-factor group PnL series", call: func(ctx context.Context, c *data.Client, _ string, p data.Params) (data.Payload, error) {
		return c.FactorStatsGroup(ctx, p)
	}},
	"factor-stats-ic": {usage: "per-factor IC series", call: func(ctx context.Context, c *data.Client, _ string, p data.Params) (data.Payload, error) {
		return c.FactorStatsIC(ctx, p)
	}},
	"factor-perf": {usage: "one factor's performance (--name required)", named: true, call: func(ctx context.Context, c *data.Client, name string, p data.Params) (data.Payload, error) {
		return c.FactorPerf(ctx, name, p)
	}},
	"factor-update": {usage: "factor update status", call: func(ctx context.Context, c *data.Client, _ string, p data.Params) (data.Payload, error) {
		return c.FactorUpdate(ctx, p)
	}},
	"strategies": {usage: "strategy metadata (GET /api/strategy)", call: func(ctx context.Context, c *data.Client, _ string, p data.Params) (data.Payload, error) {
		return c.Strategies(ctx, p)
	}},
	"strategy-perf": {usage: "one strategy's performance (--name required)", named: true, call: func(ctx context.Context, c *data.Client, name string, p data.Params) (data.Payload, error) {
		return c.StrategyPerf(ctx, name, p)
	}},
	"strategy-factors": {usage: "factor stats of one strategy (--name required)", named: true, call: func(ctx context.Context, c *data.Client, name string, p data.Params) (data.Payload, error) {
		return c.StrategyFactorPerf(ctx, name, p)
	}},
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "route":
		err = cmdRoute(os.Args[2:], os.Stdout)
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	default:
		cmd, ok := commands[os.Args[1]]
		if !ok {
			usage(os.Stderr)
			os.Exit(2)
		}
		err = cmdFetch(ctx, os.Args[1], cmd, os.Args[2:], os.Stdout)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var apiErr *data.APIError
		if errors.As(err, &apiErr) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage:")
	fmt.Fprintln(w, "  cli <command> [--config factorview.yaml] [--name NAME] [-p key=value ...] [--pretty]")
	fmt.Fprintln(w, "  cli route <path>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "commands:")
	for _, name := range sortedCommands() {
		fmt.Fprintf(w, "  %-22s %s\n", name, commands[name].usage)
	}
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "notes:")
	fmt.Fprintf(w, "  - %s overrides the backend base URL (default %s)\n", config.BaseURLEnv, config.DefaultBaseURL)
	fmt.Fprintln(w, "  - repeat -p with the same key to send a list, e.g. -p factor_names[]=a -p factor_names[]=b")
}

func cmdFetch(ctx context.Context, name string, cmd command, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	cfgPath := fs.String("config", os.Getenv("FACTORVIEW_CONFIG"), "Path to YAML config (optional)")
	resource := fs.String("name", "", "Factor or strategy name")
	pretty := fs.Bool("pretty", false, "Indent the JSON payload")
	params := paramFlag{}
	fs.Var(&params, "p", "Query parameter key=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.named && *resource == "" {
		return fmt.Errorf("%s: --name is required", name)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: "console"})

	client, err := data.New(cfg.EffectiveBaseURL(), data.WithTimeout(cfg.API.Timeout.Std()))
	if err != nil {
		return err
	}
	payload, err := cmd.call(ctx, client, *resource, params.Params())
	if err != nil {
		return err
	}
	return writePayload(out, payload, *pretty)
}

func cmdRoute(args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("route: exactly one path is required")
	}
	m, ok := routes.Default.Resolve(args[0])
	if !ok {
		return fmt.Errorf("route: no match for %s", args[0])
	}
	enc := json.NewEncoder(out)
	return enc.Encode(map[string]any{"name": m.Route.Name, "path": m.Route.Path, "params": m.Params})
}

func writePayload(w io.Writer, payload data.Payload, pretty bool) error {
	if pretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, payload, "", "  "); err != nil {
			return err
		}
		payload = buf.Bytes()
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// paramFlag collects repeated key=value flags. A key given more than once
// becomes a list.
type paramFlag map[string][]string

func (p paramFlag) String() string {
	parts := make([]string, 0, len(p))
	for k, vs := range p {
		for _, v := range vs {
			parts = append(parts, k+"="+v)
		}
	}
	return strings.Join(parts, ",")
}

func (p paramFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	p[k] = append(p[k], v)
	return nil
}

func (p paramFlag) Params() data.Params {
	out := data.Params{}
	for k, vs := range p {
		if len(vs) == 1 {
			out[k] = vs[0]
		} else {
			out[k] = vs
		}
	}
	return out
}

func sortedCommands() []string {
	names := make([]string, 0, len(commands))
	for k := range commands {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
