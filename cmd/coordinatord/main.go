// Package main implements coordinatord, the RESP-speaking front-end for
// the fanout search coordinator. It accepts client connections over TCP,
// decodes one command per round trip, hands it to a coordinator.Coordinator,
// and writes back whatever reply (or error) comes out.
//
// Architecture:
//
//	┌─────────────────────────────────────────┐
//	│              coordinatord                │
//	├─────────────────────────────────────────┤
//	│  TCP listener: one goroutine per conn    │
//	│    decode command -> Execute -> encode   │
//	├─────────────────────────────────────────┤
//	│  Coordinator                             │
//	│    Cluster (N IORuntimes, one conn pool  │
//	│    per shard) + dispatch + reduce        │
//	├─────────────────────────────────────────┤
//	│  Control plane: <mod>.CLUSTERSET/        │
//	│  CLUSTERREFRESH/CLUSTERINFO, same RESP   │
//	│  connection as data commands             │
//	└─────────────────────────────────────────┘
//
// Configuration is sourced from flags, OSS_COORD_-prefixed environment
// variables, and defaults, in that order (see internal/config).
package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dreamware/fanoutsearch/internal/config"
	"github.com/dreamware/fanoutsearch/internal/coordinator"
	"github.com/dreamware/fanoutsearch/internal/resp"
	"github.com/dreamware/fanoutsearch/internal/telemetry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:   "coordinatord",
		Short: "RESP front-end for the fanout search coordinator",
	}
	root.AddCommand(newServeCmd(v))
	return root
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the coordinator's RESP front-end and metrics server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		// BindFlags only fails on a pflag registration conflict, which can
		// only happen from a programming error in this file.
		panic(err)
	}
	return cmd
}

// run wires a Coordinator, starts the metrics server and the RESP
// listener, and blocks until SIGINT/SIGTERM, then shuts both down with a
// bounded grace period.
func run(ctx context.Context, cfg config.Config) error {
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("coordinatord: logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	metrics, reg := telemetry.New()
	stopMetrics := telemetry.StartServer(cfg.MetricsAddr, reg, log)

	coord := coordinator.New(cfg, metrics, log)
	defer coord.Stop()

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("coordinatord: listen %s: %w", cfg.ListenAddr, err)
	}

	srv := &frontend{coord: coord, log: log}
	go func() {
		log.Info("coordinatord listening", zap.String("addr", cfg.ListenAddr))
		srv.serve(ln)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("coordinatord stopping")
	_ = ln.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := stopMetrics(shutdownCtx); err != nil {
		log.Warn("metrics server shutdown error", zap.Error(err))
	}
	log.Info("coordinatord stopped")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

// frontend accepts client connections and speaks the RESP request/reply
// protocol against a Coordinator: one command decoded, one reply
// written, repeated until the client disconnects.
type frontend struct {
	coord *coordinator.Coordinator
	log   *zap.Logger
}

func (s *frontend) serve(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			// Accept only returns after the listener is closed on shutdown;
			// anything else would be a transient OS-level error that is
			// not actionable here.
			return
		}
		go s.handleConn(conn)
	}
}

// handleConn drives one client's connection until it disconnects or sends
// a command Decode cannot parse. protocolVersion starts at the default
// (RESP2) and is bumped by a client HELLO, handled locally rather than by
// Coordinator.Execute since protocol negotiation is a front-end concern,
// not a shard-routed command.
func (s *frontend) handleConn(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	protocolVersion := 2

	for {
		reply, err := resp.Decode(r, protocolVersion)
		if err != nil {
			return
		}
		args, ok := resp.AsArray(reply)
		if !ok || len(args) == 0 {
			_ = resp.EncodeReply(conn, nil, resp.ErrParseError, protocolVersion)
			continue
		}

		verbBytes, ok := toBytes(args[0])
		if !ok {
			_ = resp.EncodeReply(conn, nil, resp.ErrParseError, protocolVersion)
			continue
		}
		rest := make([][]byte, 0, len(args)-1)
		for _, a := range args[1:] {
			b, _ := toBytes(a)
			rest = append(rest, b)
		}
		cmd := resp.New(string(verbBytes), rest...)
		cmd.ProtocolVersion = protocolVersion

		if newVersion, handled := handleHello(cmd); handled {
			protocolVersion = newVersion
			_ = resp.EncodeReply(conn, helloReply(protocolVersion), nil, protocolVersion)
			continue
		}

		result, execErr := s.coord.Execute(cmd)
		if encErr := resp.EncodeReply(conn, result, execErr, protocolVersion); encErr != nil {
			s.log.Debug("write reply failed", zap.Error(encErr))
			return
		}
	}
}

func toBytes(v interface{}) ([]byte, bool) {
	switch t := v.(type) {
	case []byte:
		return t, true
	case string:
		return []byte(t), true
	}
	return nil, false
}

// handleHello handles "HELLO [2|3]" locally, returning the negotiated
// protocol version. Any other command is left untouched for Execute.
func handleHello(cmd *resp.Command) (int, bool) {
	if cmd.Verb() != "HELLO" && cmd.Verb() != "hello" {
		return 0, false
	}
	args := cmd.Args()
	if len(args) < 2 {
		return 2, true
	}
	switch string(args[1]) {
	case "3":
		return 3, true
	default:
		return 2, true
	}
}

func helloReply(protocolVersion int) resp.Reply {
	if protocolVersion >= 3 {
		return map[string]interface{}{
			"server":  "coordinatord",
			"proto":   int64(protocolVersion),
			"version": "1.0.0",
		}
	}
	return []interface{}{
		"server", "coordinatord",
		"proto", int64(protocolVersion),
		"version", "1.0.0",
	}
}
