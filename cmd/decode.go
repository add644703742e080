package cmd

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wegman-software/osmpbf-core/internal/entity"
	"github.com/wegman-software/osmpbf-core/internal/logger"
	"github.com/wegman-software/osmpbf-core/internal/pbf"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <file.osm.pbf>",
	Short: "Run Pipeline A: stream-decode a PBF file and report entity counts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.InputFile = args[0]
		if err := cfg.Validate(); err != nil {
			return err
		}
		return runDecode(cfg.InputFile)
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(path string) error {
	log := logger.Get()

	src, err := pbf.OpenFile(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, err := pbf.Open(ctx, src, pbf.AllKinds, cfg.Workers, cfg.MaxWorkQueue, cfg.MaxBufferQueue, log)
	if err != nil {
		return fmt.Errorf("decoding header: %w", err)
	}
	defer r.Close()

	h := r.Header()
	log.Info("decoded header",
		zap.Strings("required_features", h.RequiredFeatures),
		zap.String("writing_program", h.WritingProgram),
		zap.Bool("dense_nodes", h.HasDenseNodes))

	var nodes, ways, relations atomic.Uint64
	go pbf.NewProgressTicker(ctx, func() {
		log.Info("decode progress",
			zap.Uint64("nodes", nodes.Load()),
			zap.Uint64("ways", ways.Load()),
			zap.Uint64("relations", relations.Load()))
	}, cfg.MetricsInterval).Run()

	for {
		buf, err := r.Next()
		if err != nil {
			return fmt.Errorf("decoding blocks: %w", err)
		}
		if buf == nil {
			break
		}
		for _, o := range buf.Objects {
			switch o.ObjectKind() {
			case entity.KindNode:
				nodes.Add(1)
			case entity.KindWay:
				ways.Add(1)
			case entity.KindRelation:
				relations.Add(1)
			}
		}
	}

	log.Info("decode complete",
		zap.Uint64("nodes", nodes.Load()),
		zap.Uint64("ways", ways.Load()),
		zap.Uint64("relations", relations.Load()))
	return nil
}
