package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/fastpair-protocol/fastpair-go/internal/sim"
	"github.com/fastpair-protocol/fastpair-go/pkg/fastpair"
	fplog "github.com/fastpair-protocol/fastpair-go/pkg/log"
)

const prompt = "fastpair> "

type input struct {
	line string
	err  error
}

// Shell handles interactive mode.
//
// A single goroutine owns readline. The command loop and the passkey
// prompt both take lines from it, so a passkey question can be answered
// while a pair command is still running.
type Shell struct {
	rl    *readline.Instance
	sim   *Simulator
	lines chan input
}

// NewShell creates the readline instance. Attach must be called before Run.
func NewShell() (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Shell{rl: rl, lines: make(chan input)}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
func (sh *Shell) Stdout() io.Writer {
	return sh.rl.Stdout()
}

// Stderr returns a writer that properly coordinates with the readline input.
func (sh *Shell) Stderr() io.Writer {
	return sh.rl.Stderr()
}

// Attach connects the shell to the simulator and registers the shell as
// passkey handler.
func (sh *Shell) Attach(s *Simulator) error {
	sh.sim = s
	return s.Callbacks.SetPasskeyHandler(sh)
}

// ConfirmPasskey asks the user to compare the passkey with the accessory.
func (sh *Shell) ConfirmPasskey(ctx context.Context, passkey uint32) (bool, error) {
	sh.rl.SetPrompt(fmt.Sprintf("Confirm passkey %06d? [y/N] ", passkey))
	sh.rl.Refresh()
	defer func() {
		sh.rl.SetPrompt(prompt)
		sh.rl.Refresh()
	}()

	select {
	case in := <-sh.lines:
		if in.err != nil {
			return false, in.err
		}
		answer := strings.ToLower(strings.TrimSpace(in.line))
		return answer == "y" || answer == "yes", nil
	case <-ctx.Done():
		fmt.Fprintln(sh.rl.Stdout(), "Passkey confirmation timed out")
		return false, ctx.Err()
	}
}

func (sh *Shell) read(done <-chan struct{}) {
	for {
		line, err := sh.rl.Readline()
		select {
		case sh.lines <- input{line: line, err: err}:
		case <-done:
			return
		}
		if err != nil && !errors.Is(err, readline.ErrInterrupt) {
			return
		}
	}
}

// Run starts the interactive command loop.
func (sh *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer sh.rl.Close()

	done := make(chan struct{})
	defer close(done)
	go sh.read(done)

	sh.printHelp()

	for {
		var in input
		select {
		case <-ctx.Done():
			return
		case in = <-sh.lines:
		}
		if in.err != nil {
			// EOF or interrupt
			if errors.Is(in.err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(sh.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		line := strings.TrimSpace(in.line)
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			sh.printHelp()

		case "pair", "p":
			sh.cmdPair(ctx, nil)

		case "pair-key", "pk":
			sh.cmdPairKey(ctx, args)

		case "unpair", "u":
			sh.cmdUnpair(ctx, args)

		case "name":
			sh.cmdName(ctx, args)

		case "history", "h":
			sh.cmdHistory()

		case "forget":
			sh.cmdForget(args)

		case "radio":
			sh.cmdRadio(args)

		case "log":
			sh.cmdLog(args)

		case "status", "s":
			sh.cmdStatus()

		case "quit", "exit", "q":
			fmt.Fprintln(sh.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(sh.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (sh *Shell) printHelp() {
	fmt.Fprintln(sh.rl.Stdout(), `
Fast Pair Simulator Commands:
  Pairing:
    pair                 - Pair using history or the anti-spoofing key
    pair-key <hex>       - Pair with an account key (16 bytes) or public key
    unpair [address]     - Remove the bond (default: resolved address)
    name <name>          - Set the accessory name

  History:
    history              - List stored account keys
    forget <address>     - Remove history entries for an address

  Simulation:
    radio <mode>         - Bond behaviour: normal, reject, drop, stall, silent
    status               - Show connection and radio state
    log [session-id]     - Show protocol log events

  Other:
    help                 - Show this help
    quit                 - Exit`)
}

func (sh *Shell) cmdPair(ctx context.Context, key []byte) {
	out := sh.rl.Stdout()
	start := time.Now()
	secret, err := sh.sim.Pair(ctx, key)
	if err != nil {
		fmt.Fprintf(out, "Pairing failed (%s): %v\n", fastpair.KindOf(err), err)
		return
	}
	fmt.Fprintf(out, "Paired in %s: %s\n", time.Since(start).Round(time.Millisecond), secret)
	if sh.sim.Conn.PasskeyConfirmed() {
		fmt.Fprintln(out, "  passkey confirmed")
	}
}

func (sh *Shell) cmdPairKey(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(sh.rl.Stdout(), "Usage: pair-key <hex>")
		return
	}
	key, err := hex.DecodeString(strings.ReplaceAll(args[0], ":", ""))
	if err != nil {
		fmt.Fprintf(sh.rl.Stdout(), "Invalid key: %v\n", err)
		return
	}
	sh.cmdPair(ctx, key)
}

func (sh *Shell) cmdUnpair(ctx context.Context, args []string) {
	out := sh.rl.Stdout()
	address := sh.sim.Conn.PublicAddress()
	if len(args) > 0 {
		address = args[0]
	}
	if address == "" {
		fmt.Fprintln(out, "No resolved address; usage: unpair <address>")
		return
	}
	if err := sh.sim.Unpair(ctx, address); err != nil {
		fmt.Fprintf(out, "Unpair failed (%s): %v\n", fastpair.KindOf(err), err)
		return
	}
	fmt.Fprintf(out, "Unpaired %s\n", address)
}

func (sh *Shell) cmdName(ctx context.Context, args []string) {
	out := sh.rl.Stdout()
	if len(args) == 0 {
		fmt.Fprintf(out, "Name: %q\n", sh.sim.Conn.ProviderDeviceName())
		return
	}
	name := strings.Join(args, " ")
	if err := sh.sim.Conn.SetProviderDeviceName(ctx, name); err != nil {
		fmt.Fprintf(out, "Failed to set name: %v\n", err)
		return
	}
	fmt.Fprintf(out, "Name set to %q (accessory reports %q)\n", name, sh.sim.Provider.DeviceName())
}

func (sh *Shell) cmdHistory() {
	out := sh.rl.Stdout()
	if sh.sim.History == nil {
		fmt.Fprintf(out, "In-memory history: %d entries (use -history to persist)\n", len(sh.sim.Conn.History()))
		return
	}
	h, err := sh.sim.History.Load()
	if err != nil {
		fmt.Fprintf(out, "Failed to load history: %v\n", err)
		return
	}
	if h == nil || len(h.Entries) == 0 {
		fmt.Fprintln(out, "No history entries")
		return
	}
	fmt.Fprintf(out, "History (%s):\n", sh.sim.History.Path())
	for i, e := range h.Entries {
		fmt.Fprintf(out, "  %d. hash=%s name=%q paired=%s\n",
			i+1, fingerprint(e.AddressHash), e.DeviceName, e.PairedAt.Format(time.RFC3339))
	}
}

func (sh *Shell) cmdForget(args []string) {
	out := sh.rl.Stdout()
	if len(args) != 1 {
		fmt.Fprintln(out, "Usage: forget <address>")
		return
	}
	if sh.sim.History == nil {
		fmt.Fprintln(out, "No history file configured")
		return
	}
	n, err := sh.sim.History.Forget(args[0])
	if err != nil {
		fmt.Fprintf(out, "Failed to forget: %v\n", err)
		return
	}
	sh.sim.Conn.SetHistory(sh.sim.historyItems())
	fmt.Fprintf(out, "Removed %d entries\n", n)
}

func (sh *Shell) cmdRadio(args []string) {
	out := sh.rl.Stdout()
	if len(args) != 1 {
		fmt.Fprintln(out, "Usage: radio <normal|reject|drop|stall|silent>")
		return
	}
	b, err := parseBehavior(args[0])
	if err != nil {
		fmt.Fprintln(out, err)
		return
	}
	sh.sim.SetBehavior(b)
	fmt.Fprintf(out, "Radio mode: %s\n", args[0])
}

func parseBehavior(mode string) (sim.Behavior, error) {
	switch strings.ToLower(mode) {
	case "normal":
		return sim.Behavior{}, nil
	case "reject":
		return sim.Behavior{CreateErr: errors.New("bond request rejected")}, nil
	case "drop":
		return sim.Behavior{Drop: true}, nil
	case "stall":
		return sim.Behavior{Stall: true}, nil
	case "silent":
		return sim.Behavior{Silent: true}, nil
	default:
		return sim.Behavior{}, fmt.Errorf("unknown radio mode: %s", mode)
	}
}

func (sh *Shell) cmdLog(args []string) {
	out := sh.rl.Stdout()
	if sh.sim.ProtocolLogPath == "" {
		fmt.Fprintln(out, "No protocol log (use -protocol-log)")
		return
	}
	var filter fplog.Filter
	if len(args) > 0 {
		filter.SessionID = args[0]
	}
	events, err := fplog.ReadAll(sh.sim.ProtocolLogPath, filter)
	if err != nil {
		fmt.Fprintf(out, "Failed to read log: %v\n", err)
		return
	}
	for _, e := range events {
		fmt.Fprintln(out, formatEvent(e))
	}
	fmt.Fprintf(out, "%d events\n", len(events))
}

func formatEvent(e fplog.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %.8s %-8s %-6s", e.Timestamp.Format("15:04:05.000"), e.SessionID, e.Layer, e.Direction)
	switch {
	case e.StateChange != nil:
		fmt.Fprintf(&b, " state %s -> %s", e.StateChange.OldState, e.StateChange.NewState)
		if e.StateChange.Reason != "" {
			fmt.Fprintf(&b, " (%s)", e.StateChange.Reason)
		}
	case e.Message != nil:
		fmt.Fprintf(&b, " %s %d bytes", e.Message.Type, e.Message.Size)
	case e.Bond != nil:
		fmt.Fprintf(&b, " bond %s", e.Bond.Type)
		if e.Bond.State != "" {
			fmt.Fprintf(&b, " %s", e.Bond.State)
		}
		if e.Bond.Reason != 0 {
			fmt.Fprintf(&b, " reason=%d", e.Bond.Reason)
		}
	case e.Error != nil:
		fmt.Fprintf(&b, " error %s: %s", e.Error.Kind, e.Error.Message)
	}
	return b.String()
}

func (sh *Shell) cmdStatus() {
	out := sh.rl.Stdout()
	c := sh.sim.Conn
	fmt.Fprintln(out, "Connection:")
	fmt.Fprintf(out, "  Address:           %s\n", sh.sim.Address)
	fmt.Fprintf(out, "  State:             %s\n", c.State())
	fmt.Fprintf(out, "  Public address:    %s\n", valueOr(c.PublicAddress(), "(unresolved)"))
	fmt.Fprintf(out, "  Passkey confirmed: %v\n", c.PasskeyConfirmed())
	_, known := c.ExistingAccountKey()
	fmt.Fprintf(out, "  Account key known: %v\n", known)
	fmt.Fprintln(out, "Accessory:")
	fmt.Fprintf(out, "  Public address:    %s\n", sh.sim.Provider.Address())
	fmt.Fprintf(out, "  Bond state:        %s\n", sh.sim.Radio.BondState(sh.sim.Provider.Address()))
	fmt.Fprintf(out, "  Account keys:      %d\n", len(sh.sim.Provider.AccountKeys()))
	fmt.Fprintf(out, "  Handshakes:        %d\n", sh.sim.Provider.Handshakes())
}

func fingerprint(b []byte) string {
	if len(b) > 4 {
		b = b[:4]
	}
	return hex.EncodeToString(b)
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
