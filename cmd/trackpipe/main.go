// Command trackpipe runs the detection-and-tracking pipeline end to end:
// Capture -> Inference -> Tracker -> Encoder.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lindenwood-labs/trackpipe/internal/capture"
	"github.com/lindenwood-labs/trackpipe/internal/config"
	"github.com/lindenwood-labs/trackpipe/internal/encoder"
	"github.com/lindenwood-labs/trackpipe/internal/inference"
	"github.com/lindenwood-labs/trackpipe/internal/labels"
	"github.com/lindenwood-labs/trackpipe/internal/pipeline"
	"github.com/lindenwood-labs/trackpipe/internal/store"
	"github.com/lindenwood-labs/trackpipe/internal/tracker"
)

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("trackpipe", flag.ContinueOnError)
	cfg := config.Register(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		return 1
	}

	if err := cfg.Validate(); err != nil {
		log.Printf("trackpipe: %+v", err)
		return 1
	}

	logFlags := log.LstdFlags
	if cfg.Verbose {
		logFlags |= log.Lshortfile
	}
	logger := log.New(os.Stderr, "", logFlags)

	labelsFile, err := os.Open(cfg.LabelsPath)
	if err != nil {
		logger.Printf("trackpipe: opening labels file: %v", err)
		return 1
	}
	labelMap, err := labels.Parse(labelsFile)
	labelsFile.Close()
	if err != nil {
		logger.Printf("trackpipe: parsing labels file: %v", err)
		return 1
	}

	det, err := inference.NewYOLODetector(cfg.ModelPath, "", cfg.InputWidth)
	if err != nil {
		logger.Printf("trackpipe: loading model: %v", err)
		return 1
	}

	src, err := capture.OpenDevice(0, cfg.InputWidth, cfg.InputHeight)
	if err != nil {
		logger.Printf("trackpipe: opening capture device: %v", err)
		return 1
	}

	eventStore, err := store.Open(cfg.DBPath, cfg.MigrationsDir, logger)
	if err != nil {
		logger.Printf("trackpipe: opening event store: %v", err)
		return 1
	}
	defer eventStore.Close()

	sink := encoder.NewOverlaySink(cfg.InputWidth, cfg.InputHeight)

	p := pipeline.New(src, det, labelMap, cfg.Confidence,
		tracker.Config{
			MaxDist:         cfg.MaxDist,
			MaxTime:         cfg.MaxTime,
			InitialError:    10,
			MeasureVariance: 1,
			ProcessVariance: 0.1,
		},
		sink, eventStore, logger)

	logger.Printf("trackpipe: starting run %s", p.RunID)
	if !p.Start() {
		logger.Printf("trackpipe: pipeline failed to start")
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Printf("trackpipe: shutting down")
	p.Stop()

	return 0
}
