// Package main is the membridge command line: it drives the memory bridge
// against a running memgate service, or serves the in-memory stub for
// local development.
package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/alecthomas/kong"
	"github.com/mudler/xlog"

	"github.com/memgate/membridge/core/bridge"
	"github.com/memgate/membridge/core/state"
	"github.com/memgate/membridge/core/types"
	"github.com/memgate/membridge/pkg/memgate/memgatetest"
)

// CLI defines the command-line interface.
type CLI struct {
	Env  string `help:"Dotenv file with MEMBRIDGE_* credentials" default:".env"`
	Node string `help:"Node instance id" default:"cli"`

	Scope          string `help:"Memory scope (facts, prefs, persona, constraints)" default:"facts"`
	Tags           string `help:"Comma-separated tags for written memories"`
	MaxItems       int    `help:"Max items per listing (1-200)" default:"20"`
	IncludeDeleted bool   `help:"Ask the service to include soft-deleted items"`

	Load  LoadCmd  `cmd:"" help:"Print the stored turn history"`
	Save  SaveCmd  `cmd:"" help:"Store one turn's output text"`
	Clear ClearCmd `cmd:"" help:"Soft-delete the stored history"`
	Stub  StubCmd  `cmd:"" help:"Serve an in-memory memgate stub"`
}

func (c *CLI) newBridge(ctx context.Context) (*bridge.Bridge, error) {
	b := bridge.New(c.Node, state.NewStore(), bridge.EnvCredentials{DotenvFile: c.Env}, map[string]string{
		"scope":          c.Scope,
		"tags":           c.Tags,
		"maxItems":       strconv.Itoa(c.MaxItems),
		"includeDeleted": strconv.FormatBool(c.IncludeDeleted),
	})
	if err := b.Init(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

type LoadCmd struct{}

func (l *LoadCmd) Run(cli *CLI) error {
	ctx := context.Background()
	b, err := cli.newBridge(ctx)
	if err != nil {
		return err
	}
	history, err := b.LoadMemoryVariables(ctx)
	if err != nil {
		return err
	}
	for i, msg := range history {
		fmt.Printf("%d) [%s] %s\n", i+1, msg.Role, msg.Content)
	}
	xlog.Info("Loaded history", "entries", len(history))
	return nil
}

type SaveCmd struct {
	Text   []string `arg:"" help:"Output text, one memory line per argument"`
	UserID string   `help:"User attribution for this turn"`
}

func (s *SaveCmd) Run(cli *CLI) error {
	ctx := context.Background()
	b, err := cli.newBridge(ctx)
	if err != nil {
		return err
	}
	update := types.TurnUpdate{Output: s.Text}
	if s.UserID != "" {
		update.Metadata = map[string]string{"userId": s.UserID}
	}
	return b.SaveContext(ctx, update)
}

type ClearCmd struct{}

func (c *ClearCmd) Run(cli *CLI) error {
	ctx := context.Background()
	b, err := cli.newBridge(ctx)
	if err != nil {
		return err
	}
	return b.Clear(ctx)
}

type StubCmd struct {
	Addr   string `help:"Listen address" default:"127.0.0.1:8428"`
	Secret string `help:"Bearer secret the stub expects" default:"dev-secret"`
}

func (s *StubCmd) Run(cli *CLI) error {
	xlog.Info("Serving memgate stub", "addr", s.Addr)
	return memgatetest.New(s.Secret).Serve(s.Addr)
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("membridge"),
		kong.Description("Tenant-scoped conversational memory bridge for the memgate service"),
	)
	if err := ctx.Run(cli); err != nil {
		xlog.Error("Command failed", "error", err)
		ctx.Exit(1)
	}
}
