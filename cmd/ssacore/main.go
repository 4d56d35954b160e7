// Command ssacore is the core's minimal CLI surface (spec.md §6): `assess`
// runs a single-pair conjunction assessment, `screen` ranks close approaches
// across the whole catalog. It follows cmd/mission/main.go's flag+viper
// pattern, scaled down to the core's own two operations -- anything beyond
// these commands belongs to the external presentation layer spec.md §1
// excludes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	kitlog "github.com/go-kit/kit/log"

	"github.com/ssacore/conjunction/config"
	"github.com/ssacore/conjunction/core"
	"github.com/ssacore/conjunction/ports"
	"github.com/ssacore/conjunction/ssaerrors"
)

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

const defaultConfigFile = "ssacore.toml"
const defaultCatalogFile = "catalog.toml"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: ssacore <assess|screen> ...")
		return 1
	}
	switch args[0] {
	case "assess":
		return runAssess(args[1:])
	case "screen":
		return runScreen(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		return 1
	}
}

func newLogger() kitlog.Logger {
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	return kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)
}

func runAssess(args []string) int {
	fs := newFlagSet("assess")
	windowS := fs.Float64("window", 3600, "assessment horizon, seconds")
	stepS := fs.Float64("step", 60, "step, seconds; checked against min_step_s (the search grid size is coarse_steps)")
	catalogFile := fs.String("catalog", defaultCatalogFile, "path to the element-set catalog file")
	configFile := fs.String("config", defaultConfigFile, "path to the core configuration file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "usage: ssacore assess <id1> <id2> [--window SEC] [--step SEC]")
		return 1
	}
	id1, err1 := strconv.ParseUint(fs.Arg(0), 10, 32)
	id2, err2 := strconv.ParseUint(fs.Arg(1), 10, 32)
	if err1 != nil || err2 != nil {
		fmt.Fprintln(os.Stderr, "catalog ids must be non-negative integers")
		return 1
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	c := core.New(newFileSource(*catalogFile), ports.SystemClock{}, ports.NopSink{}, newLogger(), nil, cfg)

	ev, err := c.Assess(context.Background(), uint32(id1), uint32(id2), *windowS, *stepS)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		switch err.(type) {
		case *ssaerrors.InvalidElementSetError:
			return 2
		case *ssaerrors.NoCloseApproachError:
			return 3
		default:
			return 1
		}
	}
	fmt.Printf("event %s tca=%s miss_km=%.3f pc=%.3e risk=%s\n",
		ev.ID, ev.CloseApproach.TCA.UTC().Format(time.RFC3339),
		ev.CloseApproach.MissDistance/1000, ev.Estimate.Pc, ev.Estimate.RiskBand)
	return 0
}

func runScreen(args []string) int {
	fs := newFlagSet("screen")
	horizonS := fs.Float64("horizon", 3600, "screening horizon, seconds")
	catalogFile := fs.String("catalog", defaultCatalogFile, "path to the element-set catalog file")
	configFile := fs.String("config", defaultConfigFile, "path to the core configuration file")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 0
	}
	c := core.New(newFileSource(*catalogFile), ports.SystemClock{}, ports.NopSink{}, newLogger(), nil, cfg)

	results, err := c.Screen(context.Background(), nil, *horizonS, cfg.ScreeningKM, cfg.RiskKM)
	if err != nil && err != ssaerrors.ErrCancelled {
		fmt.Fprintln(os.Stderr, err)
	}
	for _, ca := range results {
		fmt.Printf("%d %d %s miss_km=%.3f relspeed_kms=%.3f pc=%.3e risk=%s\n",
			ca.PrimaryID, ca.SecondaryID, ca.TCA.UTC().Format(time.RFC3339),
			ca.MissDistance/1000, ca.RelSpeed/1000, ca.Pc, ca.RiskBand)
	}
	return 0
}
