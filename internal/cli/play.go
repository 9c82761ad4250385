package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"fodinha-client/internal/bus"
	"fodinha-client/internal/engine"
	"fodinha-client/internal/protocol"
	"fodinha-client/internal/session"
	"fodinha-client/internal/transport"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Room   string
	Name   string
	Server string
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Connect to a server and play in a room",
		Long: `Connect to a server, join a room and play interactively.

Commands at the prompt:
  bid <n>            submit a bid
  play <rank> <suit> play a card from your hand
  say <message>      send a chat message
  start              start the game (host only)
  leave              leave the room and exit
  quit               exit without leaving cleanly`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Room, "room", "", "room id to join (required)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name (overrides config)")
	cmd.Flags().StringVar(&opts.Server, "server", "", "websocket URL (overrides config)")
	_ = cmd.MarkFlagRequired("room")

	return cmd
}

func runPlay(opts *PlayOptions, cmd *cobra.Command) error {
	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	if opts.Server != "" {
		cfg.ServerURL = opts.Server
	}
	if opts.Name != "" {
		cfg.DisplayName = opts.Name
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := opts.Logger()
	out := cmd.OutOrStdout()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions := session.OpenOrEphemeral(cfg.SessionDB, log)
	defer sessions.Close()

	b := bus.New()
	adapter := transport.New(transport.Options{
		URL:            cfg.ServerURL,
		MaxAttempts:    cfg.Reconnect.MaxAttempts,
		InitialBackoff: cfg.Reconnect.InitialBackoff(),
		MaxBackoff:     cfg.Reconnect.MaxBackoff(),
	}, b, sessions, log)
	defer adapter.Destroy()

	eng := engine.New(adapter,
		engine.WithLogger(log),
		engine.WithNotifyInterval(cfg.NotifyInterval()))
	eng.Bind(b)
	defer eng.Close()

	if err := adapter.Connect(ctx); err != nil {
		return err
	}
	if _, err := adapter.JoinRoom(ctx, protocol.JoinRoomRequest{
		RoomID:      opts.Room,
		DisplayName: cfg.DisplayName,
	}); err != nil {
		return err
	}
	fmt.Fprintf(out, "joined room %s as %s\n", opts.Room, cfg.DisplayName)

	unsub := eng.Subscribe(newRenderer(out).render)
	defer unsub()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			// Best-effort goodbye; the session token keeps our seat.
			leaveCtx, cancel := context.WithTimeout(context.Background(), cfg.Reconnect.MaxBackoff())
			_ = adapter.LeaveRoom(leaveCtx, "client shutdown")
			cancel()
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			done, err := handleCommand(ctx, line, eng, adapter, out)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			if done {
				return nil
			}
		}
	}
}

func handleCommand(ctx context.Context, line string, eng *engine.Engine, adapter *transport.Adapter, out interface{ Write([]byte) (int, error) }) (done bool, err error) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "bid":
		if len(fields) != 2 {
			return false, fmt.Errorf("usage: bid <n>")
		}
		n, convErr := strconv.Atoi(fields[1])
		if convErr != nil {
			return false, fmt.Errorf("bid must be a number: %q", fields[1])
		}
		return false, eng.SubmitBid(n)

	case "play":
		if len(fields) != 3 {
			return false, fmt.Errorf("usage: play <rank> <suit>")
		}
		return false, eng.PlayCard(protocol.Card{Rank: fields[1], Suit: fields[2]})

	case "say":
		msg := strings.TrimSpace(strings.TrimPrefix(line, "say"))
		if msg == "" {
			return false, fmt.Errorf("usage: say <message>")
		}
		return false, adapter.Emit(protocol.ActChatMessage, protocol.ChatAction{Message: msg}, func(ack protocol.Ack) {
			if !ack.OK {
				fmt.Fprintf(out, "chat rejected: %s\n", ack.Error)
			}
		})

	case "start":
		return false, adapter.Emit(protocol.ActStartGame, nil, nil)

	case "leave":
		return true, adapter.LeaveRoom(ctx, "user quit")

	case "quit":
		return true, nil

	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}
}
