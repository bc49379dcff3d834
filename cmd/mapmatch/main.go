package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mapmatch/internal/config"
	"mapmatch/internal/csvio"
	"mapmatch/internal/gateway"
	"mapmatch/internal/mapmatch"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (flags and env vars still override)")
	input := flag.String("input", "", "Path to the input GPS trace CSV")
	datetimeCol := flag.String("datetime-col", "datetime", "Input column holding the fix timestamp")
	latCol := flag.String("lat-col", "lat", "Input column holding latitude")
	lonCol := flag.String("lon-col", "lon", "Input column holding longitude")
	pointsOut := flag.String("points-out", "points.csv", "Output path for the points summary")
	segmentsOut := flag.String("segments-out", "segments.csv", "Output path for the segments summary")
	linestringsOut := flag.String("linestrings-out", "", "Optional output path for the linestring JSON")
	statsOut := flag.String("stats-out", "stats.json", "Output path for the match stats")
	dsn := flag.String("dsn", "", "Postgres DSN; overrides the config file's database_dsn")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: mapmatch --input trace.csv [--config config.yaml] [--dsn ...]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dsn != "" {
		cfg.DatabaseDSN = *dsn
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	start := time.Now()

	f, err := os.Open(*input)
	if err != nil {
		logger.Fatal("failed to open input", zap.Error(err))
	}
	defer f.Close()

	raw, err := csvio.ReadRawPoints(f, csvio.Columns{Datetime: *datetimeCol, Lat: *latCol, Lon: *lonCol})
	if err != nil {
		logger.Fatal("failed to read input trace", zap.Error(err))
	}
	logger.Info("read input trace", zap.Int("points", len(raw)))

	gw, err := gateway.Open(cfg.DatabaseDSN, cfg.DatabasePoolMax, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer gw.Close()

	out, err := mapmatch.Match(context.Background(), gw, raw, cfg, logger)
	if err != nil {
		logger.Error("match finished with an error", zap.Error(err), zap.Stringer("result", out.Result))
	}
	logger.Info("match complete",
		zap.Stringer("result", out.Result),
		zap.Int("matched_points", out.Stats.NumMatchedPoints),
		zap.Int("segments", out.Stats.NumSegments),
		zap.Duration("elapsed", time.Since(start)))

	if cfg.PointsSummary {
		extraByIndex := make(map[int]map[string]any, len(raw))
		for _, rp := range raw {
			extraByIndex[rp.Index] = rp.Extra
		}
		if err := writeCSV(*pointsOut, func(w *os.File) error {
			return csvio.WritePoints(w, out.Points, extraByIndex)
		}); err != nil {
			logger.Fatal("failed to write points summary", zap.Error(err))
		}
	}
	if cfg.SegmentsSummary {
		if err := writeCSV(*segmentsOut, func(w *os.File) error {
			return csvio.WriteSegments(w, out.Segments)
		}); err != nil {
			logger.Fatal("failed to write segments summary", zap.Error(err))
		}
	}
	if *linestringsOut != "" {
		if err := writeCSV(*linestringsOut, func(w *os.File) error {
			return csvio.WriteLinestrings(w, out.Linestrings)
		}); err != nil {
			logger.Fatal("failed to write linestrings", zap.Error(err))
		}
	}
	if cfg.StatsSummary {
		if err := writeCSV(*statsOut, func(w *os.File) error {
			return csvio.WriteStats(w, out.Stats)
		}); err != nil {
			logger.Fatal("failed to write stats", zap.Error(err))
		}
	}

	if out.Result != mapmatch.ResultOK {
		os.Exit(1)
	}
}

func writeCSV(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	return write(f)
}

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
