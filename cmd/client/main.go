// Command client dials the challenge server over TLS, solves its PoW
// puzzle, and answers its identity questions — the full session
// spec.md §2's control flow describes. It also carries the original
// source's benchmarking harness (out of scope for the core, per
// spec.md §1, but still part of the repository) as the `bench`
// subcommand.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/DistributedClocks/tracing"
	cli "github.com/urfave/cli/v2"

	"github.com/dshivanandham/exasol-pow-client/internal/config"
	"github.com/dshivanandham/exasol-pow-client/internal/powsolver"
	"github.com/dshivanandham/exasol-pow-client/internal/session"
	"github.com/dshivanandham/exasol-pow-client/internal/transport"
)

func main() {
	app := &cli.App{
		Name:  "exasol-pow-client",
		Usage: "solve a server's PoW challenge and answer its identity questions",
		Commands: []*cli.Command{
			runCommand(),
			benchCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "connect to the server and drive one session to completion",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Value:    "config/client_config.json",
				Usage:    "path to the client config file",
				Required: false,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			return runSession(cfg)
		},
	}
}

func runSession(cfg config.Config) error {
	ctx := context.Background()

	conn, err := transport.Dial(ctx, cfg.Transport)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	log.Printf("connected to %s with cipher %s", cfg.Transport.Address, conn.CipherSuite())

	tracerConfig := tracing.TracerConfig{
		ServerAddress:  cfg.TracerServerAddr,
		TracerIdentity: cfg.TracerIdentity,
	}
	tracer := tracing.NewTracer(tracerConfig)
	defer tracer.Close()

	sess := session.New(conn, cfg.Identity, tracer, log.Default())
	return sess.Run()
}

func benchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "run the PoW-solving and suffix-generation benchmarks",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "authdata", Value: "testdata123"},
			&cli.IntFlag{Name: "difficulty", Value: 5},
		},
		Action: func(c *cli.Context) error {
			runBenchmarks(c.String("authdata"), c.Int("difficulty"))
			return nil
		},
	}
}

func runBenchmarks(authdata string, difficulty int) {
	fmt.Println("=== suffix generation ===")
	for _, r := range powsolver.BenchmarkSuffixGeneration(100000) {
		fmt.Printf("%-18s %v\n", r.Strategy, r.Elapsed)
	}

	fmt.Println("\n=== pow solving ===")
	strategies := []powsolver.Strategy{
		powsolver.StrategyRandomString,
		powsolver.StrategyRandomHex,
		powsolver.StrategyCounter,
	}
	for _, mt := range []bool{false, true} {
		for _, strategy := range strategies {
			r := powsolver.RunPowBenchmark(authdata, difficulty, mt, strategy)
			fmt.Printf("multithreaded=%-5v strategy=%-18s suffix=%-12s elapsed=%-12v iterations=%-10d rate=%.1f/s\n",
				r.Multithreaded, r.Strategy, r.Suffix, r.Elapsed, r.Iterations, r.AttemptsPerSec)
		}
	}
}
