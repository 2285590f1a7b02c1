// rdc is the thin CLI client: it opens/closes replay sessions against
// rdcd daemons and issues the handful of commands documented in §6.1.
// Dispatch is a manual os.Args switch rather than a flag-parsing
// framework, matching the small, fixed command set.
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/xlab/treeprint"

	"github.com/bananasjim/rdc/internal/client"
	"github.com/bananasjim/rdc/internal/config"
	"github.com/bananasjim/rdc/internal/diffsvc"
	"github.com/bananasjim/rdc/internal/service"
	"github.com/bananasjim/rdc/internal/session"
	"github.com/bananasjim/rdc/internal/version"
)

// Exit codes per §7: 0 success, 1 runtime/daemon failure, 2 usage error.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return exitUsage
	}

	switch args[0] {
	case "version", "--version":
		fmt.Println(version.Version())
		return exitOK
	case "help", "--help", "-h":
		printUsage()
		return exitOK
	}

	cfg := config.DefaultConfig()
	if err := cfg.EnsureDirs(); err != nil {
		fmt.Fprintln(os.Stderr, "rdc:", err)
		return exitError
	}

	switch args[0] {
	case "open":
		return cmdOpen(cfg, args[1:])
	case "close":
		return cmdClose(cfg, args[1:])
	case "status":
		return cmdStatus(cfg, args[1:])
	case "diff":
		return cmdDiff(cfg, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "rdc: unknown command %q\n", args[0])
		printUsage()
		return exitUsage
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: rdc <command> [args]

commands:
  open <capture.rdc> [--session NAME] [--listen host:port] [--connect host:port --token T] [--proxy host:port --token T]
  close [--session NAME]
  status [--session NAME]
  diff <capture-a.rdc> <capture-b.rdc> [--timeout SECONDS]
  version
  help`)
}

// sessionName resolves the session name for a command: the --session
// flag takes precedence, then the RDC_SESSION environment variable,
// then "default" (§3).
func sessionName(args []string) (string, []string) {
	for i, a := range args {
		if a == "--session" && i+1 < len(args) {
			name := args[i+1]
			rest := append(append([]string{}, args[:i]...), args[i+2:]...)
			return name, rest
		}
	}
	if name := os.Getenv("RDC_SESSION"); name != "" {
		return name, args
	}
	return "default", args
}

func flagValue(args []string, flag string) (string, bool) {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return "", false
}

func cmdOpen(cfg *config.Config, args []string) int {
	name, args := sessionName(args)
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "rdc open: missing capture path")
		return exitUsage
	}
	capturePath := args[0]

	opts := service.OpenOptions{
		Mode:        service.ModeSpawn,
		CapturePath: capturePath,
		SessionName: name,
		Config:      cfg,
	}

	if addr, ok := flagValue(args, "--listen"); ok {
		opts.Mode = service.ModeListen
		opts.ListenAddr = addr
	}
	if addr, ok := flagValue(args, "--connect"); ok {
		opts.Mode = service.ModeConnect
		opts.ConnectAddr = addr
		opts.Token, _ = flagValue(args, "--token")
	}
	if addr, ok := flagValue(args, "--proxy"); ok {
		opts.Mode = service.ModeProxy
		opts.ConnectAddr = addr
		opts.Token, _ = flagValue(args, "--token")
		opts.ProxyHint = addr
	}

	rec, err := service.Open(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitError
	}
	fmt.Printf("opened session %q: %s:%d (pid %d)\n", name, rec.Host, rec.Port, rec.PID)
	return exitOK
}

func cmdClose(cfg *config.Config, args []string) int {
	name, _ := sessionName(args)
	store := session.NewStore(cfg.SessionsDir)

	rec, err := store.Load(name)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitError
	}

	if err := service.Close(rec); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	if err := store.Delete(name); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitError
	}
	fmt.Printf("closed session %q\n", name)
	return exitOK
}

func cmdStatus(cfg *config.Config, args []string) int {
	name, _ := sessionName(args)
	store := session.NewStore(cfg.SessionsDir)

	rec, err := store.Load(name)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitError
	}

	addr := fmt.Sprintf("%s:%d", rec.Host, rec.Port)
	c := client.New(addr, rec.Token)
	result, err := c.Status()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitError
	}

	fmt.Printf("session %q: capture=%s alive=%v\n", name, rec.Capture, session.IsAlive(rec))
	printStatusTree(result)
	return exitOK
}

// printStatusTree renders the daemon's status result as an indented tree
// rather than a flat key/value dump: any field whose value is itself a
// map becomes a nested branch.
func printStatusTree(result map[string]interface{}) {
	tree := treeprint.New()
	addStatusBranch(tree, result)
	fmt.Print(tree.String())
}

func addStatusBranch(tree treeprint.Tree, m map[string]interface{}) {
	for k, v := range m {
		if nested, ok := v.(map[string]interface{}); ok {
			addStatusBranch(tree.AddBranch(k), nested)
			continue
		}
		tree.AddNode(fmt.Sprintf("%s: %v", k, v))
	}
}

func cmdDiff(cfg *config.Config, args []string) int {
	timeout := 30 * time.Second
	if raw, ok := flagValue(args, "--timeout"); ok {
		secs, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rdc diff: invalid --timeout %q\n", raw)
			return exitUsage
		}
		timeout = time.Duration(secs * float64(time.Second))
		args = removeFlag(args, "--timeout")
	}

	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "rdc diff: requires two capture paths")
		return exitUsage
	}

	ctx, err := diffsvc.Start(cfg, args[0], args[1], timeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var notReady *diffsvc.ErrNotReady
		if errors.As(err, &notReady) {
			return exitUsage
		}
		return exitError
	}
	defer diffsvc.Stop(cfg, ctx)

	fmt.Printf("diff session %s: A=%s:%d B=%s:%d\n", ctx.ID, ctx.A.Host, ctx.A.Port, ctx.B.Host, ctx.B.Port)
	return exitOK
}

func removeFlag(args []string, flag string) []string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return append(append([]string{}, args[:i]...), args[i+2:]...)
		}
	}
	return args
}
