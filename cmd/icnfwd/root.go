// Command icnfwd is the forwarder's process entry point: a thin cobra
// CLI that wires core+defn+tlv+name+messenger+table+strategy+face+
// dispatch+fwd+mgmt together and runs the dispatcher until interrupted.
// Driven entirely by flags instead of a YAML configuration file -
// config-file parsing is explicitly out of scope.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-icn/fwd/core"
	"github.com/go-icn/fwd/defn"
	"github.com/go-icn/fwd/dispatch"
	"github.com/go-icn/fwd/fwd"
	"github.com/go-icn/fwd/messenger"
	"github.com/go-icn/fwd/mgmt"
	"github.com/go-icn/fwd/name"
	"github.com/go-icn/fwd/strategy"
	"github.com/go-icn/fwd/table"
	"github.com/spf13/cobra"
)

// routeSpec is one --route flag value: "prefix,remoteAddr,cost,strategy".
type routeSpec struct {
	prefix       name.Name
	remoteAddr   string
	cost         int
	strategyName string
}

func parseRoute(s string) (routeSpec, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return routeSpec{}, fmt.Errorf("route %q: want prefix,remoteAddr,cost,strategy", s)
	}
	n, err := name.FromURI(parts[0])
	if err != nil {
		return routeSpec{}, fmt.Errorf("route %q: %w", s, err)
	}
	cost, err := strconv.Atoi(parts[2])
	if err != nil {
		return routeSpec{}, fmt.Errorf("route %q: bad cost: %w", s, err)
	}
	return routeSpec{prefix: n, remoteAddr: parts[1], cost: cost, strategyName: parts[3]}, nil
}

type flags struct {
	listenTCP  []string
	listenUnix []string
	connectTCP []string
	routes     []string
	csCapacity int
	logLevel   string

	cpuProfile   string
	memProfile   string
	blockProfile string
}

var f flags

var rootCmd = &cobra.Command{
	Use:     "icnfwd",
	Short:   "Information-centric networking forwarder",
	Version: "0.1.0",
	RunE:    run,
}

func init() {
	rootCmd.Flags().StringSliceVar(&f.listenTCP, "listen-tcp", nil, "TCP address to listen on (repeatable)")
	rootCmd.Flags().StringSliceVar(&f.listenUnix, "listen-unix", nil, "Unix socket path to listen on (repeatable)")
	rootCmd.Flags().StringSliceVar(&f.connectTCP, "connect-tcp", nil, "TCP address to dial at startup (repeatable)")
	rootCmd.Flags().StringSliceVar(&f.routes, "route", nil, "prefix,remoteAddr,cost,strategy (repeatable; remoteAddr must match a --connect-tcp entry)")
	rootCmd.Flags().IntVar(&f.csCapacity, "cs-capacity", 1024, "Content Store entry capacity")
	rootCmd.Flags().StringVar(&f.logLevel, "log-level", "info", "log level: trace, debug, info, warn, error, fatal")
	rootCmd.Flags().StringVar(&f.cpuProfile, "cpu-profile", "", "write CPU profile to file")
	rootCmd.Flags().StringVar(&f.memProfile, "mem-profile", "", "write memory profile to file")
	rootCmd.Flags().StringVar(&f.blockProfile, "block-profile", "", "write block profile to file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	level, err := core.ParseLevel(strings.ToUpper(f.logLevel))
	if err != nil {
		return err
	}
	core.Log.SetLevel(level)

	prof := &profiler{cpuProfile: f.cpuProfile, memProfile: f.memProfile, blockProfile: f.blockProfile}
	if err := prof.start(); err != nil {
		return fmt.Errorf("starting profiler: %w", err)
	}
	defer prof.stop()

	msgr := messenger.New(256)
	conns := table.NewConnTable(msgr)
	pit := table.NewPit(4 * time.Second)
	fib := table.NewFib(strategy.New)
	cs := table.NewContentStore(f.csCapacity)

	d := dispatch.New(conns, msgr)
	d.Proc = dispatch.NewProcessorFor(d, conns, pit, fib, cs, msgr)
	mgr := mgmt.New(d)

	if err := startListeners(mgr); err != nil {
		return err
	}
	remoteToConn, err := dialConnections(mgr)
	if err != nil {
		return err
	}
	if err := installRoutes(mgr, remoteToConn); err != nil {
		return err
	}

	stop := fwd.RunInBackground(context.Background(), d.Run)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	core.Log.Info(core.Named("cmd"), "received signal, shutting down", "signal", sig)

	stop()
	d.Close()
	return nil
}

func startListeners(mgr *mgmt.Manager) error {
	for _, addr := range f.listenTCP {
		if err := mgr.AddListener(defn.ConnTypeTCP, addr); err != nil {
			return fmt.Errorf("listen-tcp %s: %w", addr, err)
		}
		core.Log.Info(core.Named("cmd"), "listening", "type", "tcp", "addr", addr)
	}
	for _, path := range f.listenUnix {
		if err := mgr.AddListener(defn.ConnTypeUnix, path); err != nil {
			return fmt.Errorf("listen-unix %s: %w", path, err)
		}
		core.Log.Info(core.Named("cmd"), "listening", "type", "unix", "addr", path)
	}
	return nil
}

func dialConnections(mgr *mgmt.Manager) (map[string]defn.ConnID, error) {
	remoteToConn := make(map[string]defn.ConnID, len(f.connectTCP))
	for _, addr := range f.connectTCP {
		id, err := mgr.AddConnection(defn.ConnTypeTCP, "", addr)
		if err != nil {
			return nil, fmt.Errorf("connect-tcp %s: %w", addr, err)
		}
		remoteToConn[addr] = id
		core.Log.Info(core.Named("cmd"), "connected", "type", "tcp", "addr", addr, "conn", id)
	}
	return remoteToConn, nil
}

func installRoutes(mgr *mgmt.Manager, remoteToConn map[string]defn.ConnID) error {
	for _, raw := range f.routes {
		spec, err := parseRoute(raw)
		if err != nil {
			return err
		}
		conn, ok := remoteToConn[spec.remoteAddr]
		if !ok {
			return fmt.Errorf("route %q: no --connect-tcp %s", raw, spec.remoteAddr)
		}
		if err := mgr.AddRoute(spec.prefix, conn, spec.cost, spec.strategyName); err != nil {
			return fmt.Errorf("route %q: %w", raw, err)
		}
		core.Log.Info(core.Named("cmd"), "route installed", "prefix", spec.prefix.String(), "conn", conn, "strategy", spec.strategyName)
	}
	return nil
}
