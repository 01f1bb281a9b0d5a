package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"go.uber.org/zap"

	"github.com/wegman-software/pbf2json-go/internal/config"
	"github.com/wegman-software/pbf2json-go/internal/element"
	"github.com/wegman-software/pbf2json-go/internal/feature"
	"github.com/wegman-software/pbf2json-go/internal/filter"
	"github.com/wegman-software/pbf2json-go/internal/geo"
	"github.com/wegman-software/pbf2json-go/internal/geometry"
	"github.com/wegman-software/pbf2json-go/internal/logger"
	"github.com/wegman-software/pbf2json-go/internal/metrics"
	"github.com/wegman-software/pbf2json-go/internal/nodestore"
)

// elementQueueDepth bounds the channel between the scan producer and the
// transform workers
const elementQueueDepth = 10000

// ConvertStats summarizes a completed conversion run
type ConvertStats struct {
	Plan       string
	InputBytes int64
	Nodes      int64
	Ways       int64
	Relations  int64
	Records    int64
	Duration   time.Duration
}

// Converter runs the full conversion: it selects a pass plan from the
// input size and geometry level, builds whatever intermediate state the
// plan needs, then streams features to the sink.
type Converter struct {
	cfg    *config.Config
	filter filter.Spec
}

// NewConverter validates the configuration and resolves the tag filter. A
// filter file takes precedence over the inline filter expression.
func NewConverter(cfg *config.Config) (*Converter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var spec filter.Spec
	if cfg.FilterFile != "" {
		loaded, err := filter.LoadFile(cfg.FilterFile)
		if err != nil {
			return nil, err
		}
		spec = loaded
	} else {
		spec = filter.Parse(cfg.TagFilter)
	}

	return &Converter{cfg: cfg, filter: spec}, nil
}

// Run executes the conversion and returns run statistics
func (c *Converter) Run(ctx context.Context) (*ConvertStats, error) {
	log := logger.Get()
	start := time.Now()

	fi, err := os.Stat(c.cfg.InputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to stat input file: %w", err)
	}

	plan := SelectPlan(fi.Size(), c.cfg.GeometryLevel)
	stats := &ConvertStats{Plan: plan.String(), InputBytes: fi.Size()}

	log.Info("Starting conversion",
		zap.String("input", c.cfg.InputFile),
		zap.String("size", humanize.IBytes(uint64(fi.Size()))),
		zap.String("geometry", string(c.cfg.GeometryLevel)),
		zap.String("plan", plan.String()),
		zap.Int("passes", plan.Passes()),
		zap.Int("workers", c.cfg.Workers))

	if c.cfg.MetricsInterval > 0 {
		mctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go metrics.NewCollector(c.cfg.MetricsInterval, log).Start(mctx)
	}

	var store *nodestore.Store
	var table *geometry.WayTable

	if plan != SinglePass {
		store, err = nodestore.Open(nodestore.Options{
			Path:   c.cfg.StorePath,
			Retain: c.cfg.RetainStore,
		})
		if err != nil {
			return nil, err
		}
		defer store.Close()

		passStart := time.Now()
		log.Info("Pass 1: Collecting node coordinates")
		if err := c.collectNodeCoords(ctx, store, stats); err != nil {
			return nil, err
		}
		if err := store.Sync(); err != nil {
			return nil, err
		}
		log.Info("Pass 1 complete",
			zap.Int64("nodes", stats.Nodes),
			zap.Duration("duration", time.Since(passStart).Round(time.Second)))
	}

	if plan == ThreePass {
		passStart := time.Now()
		log.Info("Pass 2: Resolving way geometries")
		table = &geometry.WayTable{}
		if err := c.collectWayGeometries(ctx, store, table, stats); err != nil {
			return nil, err
		}
		log.Info("Pass 2 complete",
			zap.Int64("ways", table.Len()),
			zap.Duration("duration", time.Since(passStart).Round(time.Second)))
	}

	log.Info(fmt.Sprintf("Pass %d: Streaming features", plan.Passes()))
	if err := c.emit(ctx, plan, store, table, stats); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(start).Round(time.Millisecond)
	log.Info("Conversion complete",
		zap.Int64("nodes", stats.Nodes),
		zap.Int64("ways", stats.Ways),
		zap.Int64("relations", stats.Relations),
		zap.Int64("records", stats.Records),
		zap.Duration("duration", stats.Duration))

	return stats, nil
}

// objectSource is the slice of the PBF scanner the pass loops consume
type objectSource interface {
	Scan() bool
	Object() osm.Object
	Err() error
}

// collectNodeCoords scans the whole input, writing every node coordinate
// to the store in batches
func (c *Converter) collectNodeCoords(ctx context.Context, store *nodestore.Store, stats *ConvertStats) error {
	f, err := os.Open(c.cfg.InputFile)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	scanner := osmpbf.New(ctx, f, runtime.NumCPU())
	defer scanner.Close()

	var count atomic.Int64
	stopProgress := c.startProgressTicker(ctx, "node collection", &count, scanner, stats.InputBytes)
	defer stopProgress()

	n, err := c.collectNodesFrom(scanner, store, &count)
	stats.Nodes = n
	if err != nil {
		return fmt.Errorf("scan failed during node collection: %w", err)
	}
	return nil
}

// collectNodesFrom consumes the source to its end. Scanning past the node
// section costs a little on conventionally-ordered files but keeps nodes
// that appear after the first way, which some producers emit.
func (c *Converter) collectNodesFrom(src objectSource, store *nodestore.Store, count *atomic.Int64) (int64, error) {
	batch := make([]nodestore.Entry, 0, c.cfg.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := store.PutBatch(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for src.Scan() {
		o, ok := src.Object().(*osm.Node)
		if !ok {
			continue
		}
		batch = append(batch, nodestore.Entry{ID: int64(o.ID), Lat: o.Lat, Lon: o.Lon})
		count.Add(1)
		if len(batch) >= c.cfg.BatchSize {
			if err := flush(); err != nil {
				return count.Load(), err
			}
		}
	}
	if err := src.Err(); err != nil && err != io.EOF {
		return count.Load(), err
	}
	return count.Load(), flush()
}

// collectWayGeometries scans the whole input, resolving each way against
// the coordinate store and recording its geometry in the table for
// relation aggregation in the final pass
func (c *Converter) collectWayGeometries(ctx context.Context, store *nodestore.Store, table *geometry.WayTable, stats *ConvertStats) error {
	f, err := os.Open(c.cfg.InputFile)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	scanner := osmpbf.New(ctx, f, runtime.NumCPU())
	defer scanner.Close()

	var count atomic.Int64
	stopProgress := c.startProgressTicker(ctx, "way resolution", &count, scanner, stats.InputBytes)
	defer stopProgress()

	if err := c.collectWaysFrom(scanner, store, table, &count); err != nil {
		return fmt.Errorf("scan failed during way resolution: %w", err)
	}
	return nil
}

// collectWaysFrom consumes the source to its end, same ordering caveat as
// collectNodesFrom
func (c *Converter) collectWaysFrom(src objectSource, store *nodestore.Store, table *geometry.WayTable, count *atomic.Int64) error {
	for src.Scan() {
		o, ok := src.Object().(*osm.Way)
		if !ok {
			continue
		}
		if g := geometry.ResolveWay(element.FromOSMWay(o), store); g != nil {
			table.Put(g)
		}
		count.Add(1)
	}
	if err := src.Err(); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// emit performs the output pass: a single producer scans the input and
// feeds elements to the executor's worker pool, which transforms them and
// streams batches into the sink. In single-pass mode there is no store and
// no geometry resolution; records carry their raw refs only.
func (c *Converter) emit(ctx context.Context, plan Plan, store *nodestore.Store, table *geometry.WayTable, stats *ConvertStats) error {
	f, err := os.Open(c.cfg.InputFile)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	sink := NewSink(c.cfg.OutputFile)
	sink.Start()

	// The producer selects on this derived context, not the caller's. It
	// is cancelled on every exit path, so a failed executor (whose workers
	// stop draining the channel) cannot strand the producer on a full
	// channel with the pass already over.
	ectx, cancel := context.WithCancel(ctx)
	defer cancel()

	var produced atomic.Int64
	elements := make(chan element.Element, elementQueueDepth)
	scanErr := make(chan error, 1)

	scanner := osmpbf.New(ectx, f, runtime.NumCPU())
	go func() {
		defer scanner.Close()
		c.produce(ectx, scanner, elements, scanErr, &produced)
	}()

	stopProgress := c.startProgressTicker(ectx, "feature streaming", &produced, scanner, stats.InputBytes)
	defer stopProgress()

	var nodes, ways, relations atomic.Int64
	pretty := c.cfg.Pretty
	log := logger.Get()

	transform := func(e element.Element) (string, bool) {
		tags := element.Tags(e)
		if len(tags) == 0 || !c.filter.Match(tags) {
			return "", false
		}

		var line string
		var err error
		switch v := e.(type) {
		case *element.Node:
			line, err = feature.Node(v, pretty)
			nodes.Add(1)
		case *element.Way:
			var g *geometry.WayGeometry
			switch {
			case table != nil:
				// Three-pass mode resolved every way already
				g, _ = table.Get(v.ID)
			case plan != SinglePass:
				g = geometry.ResolveWay(v, store)
			}
			line, err = feature.Way(v, g, pretty)
			ways.Add(1)
		case *element.Relation:
			var coords []geo.Coord
			if plan != SinglePass {
				coords = geometry.RelationCoords(v, table, store)
			}
			line, err = feature.Relation(v, coords, pretty)
			relations.Add(1)
		default:
			return "", false
		}
		if err != nil {
			log.Error("Failed to encode feature",
				zap.Int64("id", element.ID(e)), zap.Error(err))
			return "", false
		}
		return line, true
	}

	execErr := NewExecutor(c.cfg.Workers, sink).Run(ectx, elements, transform)
	sinkErr := sink.Close()

	stats.Records = sink.Records()
	if plan == SinglePass {
		stats.Nodes = nodes.Load()
	}
	stats.Ways = ways.Load()
	stats.Relations = relations.Load()

	select {
	case err := <-scanErr:
		return err
	default:
	}
	if execErr != nil {
		return execErr
	}
	return sinkErr
}

// produce feeds adapted elements into the channel until the source is
// exhausted or the context is cancelled, then closes the channel. The
// context select is what lets the producer exit when the consumers are
// gone; a blocked send with no receivers would otherwise never return.
func (c *Converter) produce(ctx context.Context, src objectSource, elements chan<- element.Element, scanErr chan<- error, produced *atomic.Int64) {
	defer close(elements)

	for src.Scan() {
		e := element.FromOSM(src.Object())
		if e == nil {
			continue
		}
		select {
		case elements <- e:
			produced.Add(1)
		case <-ctx.Done():
			return
		}
	}
	if err := src.Err(); err != nil && err != io.EOF {
		scanErr <- fmt.Errorf("scan failed during output pass: %w", err)
	}
}

// startProgressTicker logs per-pass progress every two seconds until the
// returned stop function is called
func (c *Converter) startProgressTicker(ctx context.Context, description string, count *atomic.Int64, scanner *osmpbf.Scanner, totalBytes int64) func() {
	log := logger.Get()
	tracker := NewProgressTracker(totalBytes, description)
	tctx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-tctx.Done():
				return
			case <-ticker.C:
				scanned := scanner.FullyScannedBytes()
				p := tracker.Calculate(count.Load(), scanned)
				log.Debug("Pass progress",
					zap.String("pass", description),
					zap.Int64("elements", count.Load()),
					zap.String("processed", humanize.IBytes(uint64(scanned))),
					zap.String("percent", fmt.Sprintf("%.1f%%", p.Percentage)),
					zap.String("throughput", FormatThroughput(p.Throughput)),
					zap.String("eta", FormatETA(p.ETA)))
			}
		}
	}()

	return cancel
}
