// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

// Command dedupctl is a thin CLI wrapper around the dedup package: scan one
// or more directory trees and report duplicate files.
package main

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/erigontech/dedupe/dedup"
	"github.com/erigontech/dedupe/filedigest"
	"github.com/erigontech/dedupe/internal/humanizefmt"
	"github.com/erigontech/dedupe/internal/robot"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "dedupctl:", err)
		os.Exit(1)
	}
}

// verboseCounter is a flag.Value that counts occurrences rather than
// storing a single boolean, so that repeated flags (-v -v -v) stack.
// Combined short flags such as -vvv are not split, since the app does not
// enable urfave/cli's short option handling. IsBoolFlag lets it appear
// without an explicit value, like a normal bool flag.
type verboseCounter struct{ n int }

func (c *verboseCounter) String() string  { return fmt.Sprintf("%d", c.n) }
func (c *verboseCounter) Set(string) error { c.n++; return nil }
func (c *verboseCounter) IsBoolFlag() bool { return true }

func newApp() *cli.App {
	verbose := &verboseCounter{}
	return &cli.App{
		Name:  "dedupctl",
		Usage: "find duplicate files across directory trees",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "dir", Aliases: []string{"d"}, Usage: "directory to scan (repeatable)"},
			&cli.StringSliceFlag{Name: "alg", Aliases: []string{"a"}, Usage: "digest id to use, in order (repeatable; default filesize,initial_xxhash,final_xxhash,sha)"},
			&cli.StringFlag{Name: "outfile", Aliases: []string{"o"}, Usage: "write report here instead of stdout"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "robot", Usage: "output format (only robot is supported)"},
			&cli.BoolFlag{Name: "progress", Aliases: []string{"P"}, Usage: "print scan progress to stderr"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "suppress warnings"},
			&cli.GenericFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "print a statistics block after the report (stacking: -v -v)", Value: verbose},
			&cli.BoolFlag{Name: "debug", Usage: "include source-location suffixes on warnings"},
		},
		Action: func(c *cli.Context) error { return run(c, verbose.n > 0) },
	}
}

func run(c *cli.Context, verbose bool) error {
	dirs := c.StringSlice("dir")
	if len(dirs) == 0 {
		return cli.Exit(errors.New("usage error: at least one --dir is required"), 2)
	}
	if c.Args().Len() > 0 {
		return cli.Exit(errors.Errorf("usage error: unexpected trailing arguments: %s", strings.Join(c.Args().Slice(), " ")), 2)
	}
	format := c.String("format")
	if format != "robot" {
		return cli.Exit(errors.Errorf("usage error: unsupported format %q (only \"robot\")", format), 2)
	}

	quiet := c.Bool("quiet")
	debug := c.Bool("debug")
	logger := buildLogger(debug, quiet)
	defer logger.Sync() //nolint:errcheck

	out := os.Stdout
	usingStdout := true
	if outfile := c.String("outfile"); outfile != "" {
		f, err := os.Create(outfile)
		if err != nil {
			return errors.Wrap(err, "opening outfile")
		}
		defer f.Close()
		out = f
		usingStdout = false
	}

	scanned := 0
	var progress dedup.ProgressFunc
	if c.Bool("progress") {
		progress = func(size int64, unreadable bool) {
			if unreadable {
				return
			}
			scanned++
			if scanned%1000 == 0 {
				fmt.Fprintf(os.Stderr, "\rscanned %s files, %s%s", humanizefmt.Count(scanned), humanizefmt.IECBytes(size), strings.Repeat(" ", 10))
			}
		}
	}

	cfg := dedup.Config{Logger: logger.Sugar(), Progress: progress}
	if algs := c.StringSlice("alg"); len(algs) > 0 {
		factory := filedigest.NewFactory(nil)
		items := make([]any, 0, len(algs))
		for _, id := range algs {
			fn, ok := factory.ByID(id)
			if !ok {
				return cli.Exit(errors.Errorf("usage error: unknown digest id %q", id), 2)
			}
			items = append(items, fn)
		}
		cfg.Blocking = items
	}

	dd, err := dedup.New(cfg)
	if err != nil {
		return errors.Wrap(err, "constructing deduplicator")
	}

	if err := dd.Scan(context.Background(), dirs...); err != nil {
		return errors.Wrap(err, "scanning")
	}
	if c.Bool("progress") {
		fmt.Fprintln(os.Stderr)
	}

	groups := dd.Duplicates(nil)
	if err := robot.Format(out, groups); err != nil {
		return errors.Wrap(err, "writing report")
	}

	if verbose && usingStdout {
		printStats(out, dd)
	}
	return nil
}

func printStats(out *os.File, dd *dedup.Deduplicator) {
	fmt.Fprintln(out, strings.Repeat("---", 30))

	stats := dd.Stats()
	fmt.Fprintf(out, "total files: %s\n", humanizefmt.Count(stats.TotalFiles))
	if stats.UnreadableCount > 0 {
		fmt.Fprintf(out, "unreadable: %s files, %s\n", humanizefmt.Count(stats.UnreadableCount), humanizefmt.IECBytes(stats.UnreadableBytes))
	}
	fmt.Fprintf(out, "unique: %s, distinct with duplicates: %s, duplicates: %s\n",
		humanizefmt.Count(stats.UniqueCount), humanizefmt.Count(stats.DuplicateSetCount), humanizefmt.Count(stats.DuplicateFileCount))

	entries := dd.Blocking()
	invocations := dd.CountDigests()
	collisions := dd.CountCollisions()
	for i, e := range entries {
		name := e.Name
		if name == "" {
			name = fmt.Sprintf("level %d", i)
		}
		inv, col := 0, 0
		if i < len(invocations) {
			inv = invocations[i]
		}
		if i < len(collisions) {
			col = collisions[i]
		}
		fmt.Fprintf(out, "%s : %s invocations %s collisions\n", name, humanizefmt.Count(inv), humanizefmt.Count(col))
	}
}

var sourceSuffix = regexp.MustCompile(` at [^ ]+ line \d+$`)

// trimmingCore wraps a zapcore.Core and strips " at FILE line N" suffixes
// from log messages, unless debug mode wants them kept.
type trimmingCore struct{ zapcore.Core }

func (c trimmingCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c trimmingCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	ent.Message = sourceSuffix.ReplaceAllString(ent.Message, "")
	return c.Core.Write(ent, fields)
}

func buildLogger(debug, quiet bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.TimeKey = ""
	if quiet {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	}
	opts := []zap.Option{}
	if debug {
		opts = append(opts, zap.AddCaller())
	} else {
		cfg.EncoderConfig.CallerKey = ""
	}
	logger, err := cfg.Build(opts...)
	if err != nil {
		return zap.NewNop()
	}
	if !debug {
		logger = logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return trimmingCore{core}
		}))
	}
	return logger
}
