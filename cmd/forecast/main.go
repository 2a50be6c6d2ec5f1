// Command forecast trains the product unit-sales model, runs sample
// predictions against it, or serves it over HTTP.
//
// Usage:
//
//	forecast [flags] [train|predict|serve]
//
// With no command it trains and saves the model, then runs the sample
// predictions.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/YuminosukeSato/salesforecast/internal/config"
	"github.com/YuminosukeSato/salesforecast/internal/forecast"
	"github.com/YuminosukeSato/salesforecast/internal/server"
	"github.com/YuminosukeSato/salesforecast/pkg/log"
	"github.com/YuminosukeSato/salesforecast/sklearn/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type flags struct {
	configFile string
	envFile    string

	data, model, plot, addr string
	logLevel, logFormat     string
	folds, parallel         int
	trees, leaves           int
	learningRate            float64
	seed                    int64
}

func newFlagSet(stderr io.Writer) (*flag.FlagSet, *flags) {
	f := &flags{}
	fs := flag.NewFlagSet("forecast", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: forecast [flags] [train|predict|serve]")
		fs.PrintDefaults()
	}

	fs.StringVar(&f.configFile, "config", "", "YAML configuration file")
	fs.StringVar(&f.envFile, "env", ".env", "dotenv file loaded before the environment is read")
	fs.StringVar(&f.data, "data", "", "training data (.csv, .tsv or .xlsx)")
	fs.StringVar(&f.model, "model", "", "model archive path")
	fs.StringVar(&f.plot, "plot", "", "write a feature importance chart to this path after training")
	fs.StringVar(&f.addr, "addr", "", "listen address for serve")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&f.logFormat, "log-format", "", "json or console")
	fs.IntVar(&f.folds, "folds", 0, "cross-validation folds")
	fs.IntVar(&f.parallel, "parallel", 0, "folds trained concurrently")
	fs.IntVar(&f.trees, "trees", 0, "number of boosted trees")
	fs.IntVar(&f.leaves, "leaves", 0, "maximum leaves per tree")
	fs.Float64Var(&f.learningRate, "learning-rate", 0, "shrinkage applied to every tree")
	fs.Int64Var(&f.seed, "seed", 0, "seed for fold shuffling and sampling")
	return fs, f
}

// apply copies the flags that were set on the command line over cfg.
func (f *flags) apply(fs *flag.FlagSet, cfg *config.Config) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "data":
			cfg.DataPath = f.data
		case "model":
			cfg.ModelPath = f.model
		case "plot":
			cfg.ImportancePlot = f.plot
		case "addr":
			cfg.Server.Addr = f.addr
		case "log-level":
			cfg.Logging.Level = f.logLevel
		case "log-format":
			cfg.Logging.Format = f.logFormat
		case "folds":
			cfg.CV.Folds = f.folds
		case "parallel":
			cfg.CV.Parallelism = f.parallel
		case "trees":
			cfg.Trainer.NumTrees = f.trees
		case "leaves":
			cfg.Trainer.NumLeaves = f.leaves
		case "learning-rate":
			cfg.Trainer.LearningRate = f.learningRate
		case "seed":
			cfg.CV.Seed = f.seed
			cfg.Trainer.Seed = f.seed
		}
	})
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs, f := newFlagSet(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	command := ""
	if rest := fs.Args(); len(rest) > 0 {
		command = rest[0]
		if err := fs.Parse(rest[1:]); err != nil {
			return 2
		}
		if fs.NArg() > 0 {
			fs.Usage()
			return 2
		}
	}

	cfg, err := config.Load(f.configFile, f.envFile)
	if err != nil {
		fmt.Fprintf(stderr, "forecast: %v\n", err)
		return 1
	}
	f.apply(fs, cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "forecast: %v\n", err)
		return 1
	}

	if err := log.SetupLogger(cfg.Logging.Level, cfg.Logging.Format, stderr); err != nil {
		fmt.Fprintf(stderr, "forecast: %v\n", err)
		return 1
	}
	logger := log.GetLoggerWithName("cmd")

	tr := forecast.NewTrainer(stdout)
	tr.Options = cfg.Trainer.Options()
	tr.CV = cfg.CV.Options()
	tr.ImportancePlot = cfg.ImportancePlot

	switch command {
	case "":
		if _, err = tr.TrainAndSaveModel(ctx, cfg.DataPath, cfg.ModelPath); err == nil {
			_, err = tr.TestPrediction(cfg.ModelPath)
		}
	case "train":
		_, err = tr.TrainAndSaveModel(ctx, cfg.DataPath, cfg.ModelPath)
	case "predict":
		_, err = tr.TestPrediction(cfg.ModelPath)
	case "serve":
		err = serve(ctx, cfg)
	default:
		fmt.Fprintf(stderr, "forecast: unknown command %q\n", command)
		fs.Usage()
		return 2
	}
	if err != nil {
		logger.Error("Command failed", err, "command", command)
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg *config.Config) error {
	model, err := pipeline.LoadFromFile(cfg.ModelPath)
	if err != nil {
		return err
	}
	return server.New(model).Run(ctx, cfg.Server)
}
