package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wegman-software/osmpbf-core/internal/collector"
	"github.com/wegman-software/osmpbf-core/internal/entity"
	"github.com/wegman-software/osmpbf-core/internal/logger"
	"github.com/wegman-software/osmpbf-core/internal/pbf"
)

var useMmap bool

var assembleCmd = &cobra.Command{
	Use:   "assemble <file.osm.pbf>",
	Short: "Run Pipeline B: two-pass relation assembly over a PBF file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.InputFile = args[0]
		if err := cfg.Validate(); err != nil {
			return err
		}
		return runAssemble(cfg.InputFile)
	},
}

func init() {
	assembleCmd.Flags().BoolVar(&useMmap, "mmap", false, "Back the collector's buffers with an mmap-backed arena instead of heap memory")
	rootCmd.AddCommand(assembleCmd)
}

// countingHooks logs completions and purge relocations and counts them,
// along with orphans (counted only), for the final report; it ignores
// hooks it doesn't need to act on.
type countingHooks struct {
	collector.NoopHooks
	log                        *zap.Logger
	completed, orphaned, moved int
}

func (h *countingHooks) CompleteRelation(slot uint32, rel entity.Relation, members []entity.Object) {
	h.completed++
	h.log.Debug("relation complete", zap.Int64("relation_id", rel.ID), zap.Uint32("slot", slot))
}

func (h *countingHooks) OrphanNode(n entity.Node)         { h.orphaned++ }
func (h *countingHooks) OrphanWay(w entity.Way)           { h.orphaned++ }
func (h *countingHooks) OrphanRelation(r entity.Relation) { h.orphaned++ }

func (h *countingHooks) MovingInBuffer(oldOffset, newOffset uint64) {
	h.moved++
	h.log.Debug("purge relocated member", zap.Uint64("old_offset", oldOffset), zap.Uint64("new_offset", newOffset))
}

func (h *countingHooks) Done() { h.log.Info("pass 2 complete") }

// decodeAll drains a freshly opened Reader over path, calling visit for
// every decoded object in order.
func decodeAll(ctx context.Context, path string, filter pbf.KindFilter, log *zap.Logger, visit func(entity.Object) error) (*entity.Header, error) {
	src, err := pbf.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	r, err := pbf.Open(ctx, src, filter, cfg.Workers, cfg.MaxWorkQueue, cfg.MaxBufferQueue, log)
	if err != nil {
		return nil, fmt.Errorf("decoding header: %w", err)
	}
	defer r.Close()

	for {
		buf, err := r.Next()
		if err != nil {
			return nil, fmt.Errorf("decoding blocks: %w", err)
		}
		if buf == nil {
			break
		}
		for _, o := range buf.Objects {
			if err := visit(o); err != nil {
				return nil, err
			}
		}
	}
	return r.Header(), nil
}

func runAssemble(path string) error {
	log := logger.Get()
	ctx := context.Background()

	hooks := &countingHooks{log: log}
	c, err := collector.New(hooks, cfg.TrackNodes, cfg.TrackWays, cfg.TrackRelations, useMmap)
	if err != nil {
		return fmt.Errorf("building collector: %w", err)
	}
	defer c.Close()

	log.Info("pass 1: scanning relations")
	relationsFilter := pbf.KindFilter{Relations: true}
	if _, err := decodeAll(ctx, path, relationsFilter, log, func(o entity.Object) error {
		rel, ok := o.(entity.Relation)
		if !ok {
			return nil
		}
		return c.Pass1(rel)
	}); err != nil {
		return fmt.Errorf("pass 1: %w", err)
	}
	c.FinishPass1()

	log.Info("pass 2: resolving members")
	memberFilter := pbf.KindFilter{Nodes: cfg.TrackNodes, Ways: cfg.TrackWays, Relations: cfg.TrackRelations}
	pass2 := func(o entity.Object) error {
		// --bbox: nodes outside the box are not fed to the collector.
		if n, ok := o.(entity.Node); ok && cfg.BBox != nil && !cfg.BBox.Contains(n.Loc.Lat(), n.Loc.Lon()) {
			return nil
		}
		return c.Pass2(o)
	}
	if _, err := decodeAll(ctx, path, memberFilter, log, pass2); err != nil {
		return fmt.Errorf("pass 2: %w", err)
	}
	c.Finish()

	stats := c.Stats()
	log.Info("assembly complete",
		zap.Int("relation_slots", stats.RelationSlots),
		zap.Int("completed_relations", stats.CompletedRelations),
		zap.Int("orphaned", hooks.orphaned),
		zap.Int("purge_relocations", hooks.moved),
		zap.Uint64("relation_store_bytes", stats.RelationStoreBytes),
		zap.Uint64("member_store_bytes", stats.MemberStoreBytes))
	return nil
}
