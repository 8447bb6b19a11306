// Package main provides the dagnet CLI.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/born-ml/dagnet/graph"
	"github.com/born-ml/dagnet/net"
	"github.com/born-ml/dagnet/op"

	dev "github.com/born-ml/dagnet/device"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("dagnet %s\n", version)
			return
		case "bench":
			if err := runBench(os.Args[2:]); err != nil {
				fmt.Fprintln(os.Stderr, "bench:", err)
				os.Exit(1)
			}
			return
		}
	}

	fmt.Println("dagnet - parallel DAG execution engine")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  bench      Benchmark a synthetic layered graph")
}

func runBench(args []string) error {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML net configuration file")
	warmup := fs.Int("warmup", 2, "warmup iterations")
	runs := fs.Int("runs", 10, "timed iterations")
	layers := fs.Int("layers", 8, "synthetic graph depth")
	width := fs.Int("width", 4, "operators per layer")
	async := fs.Bool("async", false, "use the asynchronous scheduler")
	verbose := fs.Bool("v", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := net.DefaultConfig()
	cfg.Name = "bench"
	cfg.NumWorkers = 4
	if *configPath != "" {
		loaded, err := net.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	g, err := graph.Build(benchOps(*layers, *width), graph.BuildOptions{})
	if err != nil {
		return err
	}

	var n net.Net
	if *async {
		n, err = net.NewAsyncDAG(g, cfg)
	} else {
		n, err = net.NewDAG(g, cfg)
	}
	if err != nil {
		return err
	}
	defer n.Shutdown()

	ms, err := n.Benchmark(*warmup, *runs)
	if err != nil {
		return err
	}

	fmt.Printf("net=%s ops=%d workers=%d async=%v\n", n.Name(), g.NumNodes(), cfg.NumWorkers, *async)
	fmt.Printf("milliseconds per iteration: %.3f\n", ms)

	if stats := n.Stats(); stats != nil {
		for device, s := range stats {
			fmt.Printf("%s: chains=%d queue_wait=%s run_time=%s\n",
				device, s.Chains, s.QueueWait, s.RunTime)
		}
	}
	return nil
}

// benchOps builds a layered synthetic graph: width source operators,
// then each layer consumes the previous layer's blobs with a shifted
// second input so layers interleave instead of forming independent
// columns.
func benchOps(layers, width int) []op.Operator {
	if layers < 1 {
		layers = 1
	}
	if width < 1 {
		width = 1
	}

	blob := func(layer, i int) string { return fmt.Sprintf("l%d_b%d", layer, i) }

	ops := make([]op.Operator, 0, layers*width)
	for l := 0; l < layers; l++ {
		for i := 0; i < width; i++ {
			var inputs []string
			if l > 0 {
				inputs = []string{blob(l-1, i)}
				if next := (i + 1) % width; next != i {
					inputs = append(inputs, blob(l-1, next))
				}
			}
			ops = append(ops, op.NewFunc(op.Def{
				Name:    fmt.Sprintf("l%d_op%d", l, i),
				Type:    "BenchWork",
				Device:  dev.CPU,
				Inputs:  inputs,
				Outputs: []string{blob(l, i)},
			}, benchWork))
		}
	}
	return ops
}

// benchWork is a small fixed unit of floating-point work.
func benchWork() bool {
	s := 0.0
	for i := 0; i < 10_000; i++ {
		s += math.Sqrt(float64(i))
	}
	return s > 0
}
