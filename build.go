package transitbuilder

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"mta/transit-builder/config"
	"mta/transit-builder/graph"
	"mta/transit-builder/transit"
)

// builderStats aggregates one worker's outcomes.
type builderStats struct {
	addedNodes         uint32
	addedEdges         uint32
	rejectedDepartures uint32
}

func (s *builderStats) merge(o builderStats) {
	s.addedNodes += o.addedNodes
	s.addedEdges += o.addedEdges
	s.rejectedDepartures += o.rejectedDepartures
}

// buildResult is the per-worker result slot: aggregated counters plus the
// last propagated tile error, if any.
type buildResult struct {
	stats builderStats
	err   error
}

// Build rewrites every local-level graph tile that overlaps a transit
// tile, adding stop nodes, transit line edges and road connection edges.
// Individual tile failures are logged and skipped; Build itself always
// returns normally.
func Build(cfg config.AppConfig) {
	log := zap.S()
	start := time.Now()

	transitDir := cfg.Mjolnir.TransitDir
	if transitDir == "" {
		log.Info("Transit directory not configured. Transit will not be added.")
		return
	}
	if info, err := os.Stat(transitDir); err != nil || !info.IsDir() {
		log.Info("Transit directory not found. Transit will not be added.")
		return
	}

	tileDir := cfg.Mjolnir.Hierarchy.TileDir
	reader := graph.NewGraphReader(tileDir)
	localLevel := graph.LocalLevel()

	// Discover transit tiles whose road tile exists and record each road
	// tile's node count for pbf-to-graph id translation.
	tileNodeCounts := map[graph.GraphId]int{}
	levelDir := filepath.Join(transitDir, strconv.FormatUint(uint64(localLevel), 10))
	if info, err := os.Stat(levelDir); err == nil && info.IsDir() {
		filepath.WalkDir(levelDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || filepath.Ext(path) != ".pbf" {
				return err
			}
			id, err := TransitTileToGraphID(transitDir, path)
			if err != nil {
				log.Errorf("Transit file %s: %v", path, err)
				return nil
			}
			if !reader.DoesTileExist(id) {
				return nil
			}
			tile, err := reader.GetGraphTile(id)
			if err != nil {
				log.Errorf("Transit file %s: %v", path, err)
				return nil
			}
			tileNodeCounts[id] = int(tile.Header().NodeCount)
			return nil
		})
	}
	if len(tileNodeCounts) == 0 {
		log.Info("No transit tiles found. Transit will not be added.")
		return
	}

	tileIDs := make([]graph.GraphId, 0, len(tileNodeCounts))
	for id := range tileNodeCounts {
		tileIDs = append(tileIDs, id)
	}
	sort.Slice(tileIDs, func(i, j int) bool { return tileIDs[i] < tileIDs[j] })

	workers := int(cfg.Mjolnir.Concurrency)
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(tileIDs) {
		workers = len(tileIDs)
	}

	log.Infof("Adding %d transit tiles to the local graph...", len(tileIDs))

	// One mutex guards all tile store reads and writes; one result slot
	// per worker.
	var lock sync.Mutex
	results := make([]buildResult, workers)
	var wg sync.WaitGroup
	floor := len(tileIDs) / workers
	atCeiling := len(tileIDs) - workers*floor
	begin := 0
	for i := 0; i < workers; i++ {
		count := floor
		if i < atCeiling {
			count++
		}
		assigned := tileIDs[begin : begin+count]
		begin += count
		wg.Add(1)
		go func(res *buildResult, assigned []graph.GraphId) {
			defer wg.Done()
			buildTiles(tileDir, transitDir, tileNodeCounts, assigned, &lock, res)
		}(&results[i], assigned)
	}
	wg.Wait()

	var total builderStats
	for i := range results {
		if results[i].err != nil {
			log.Errorf("Worker %d finished with error: %v", i, results[i].err)
		}
		total.merge(results[i].stats)
	}
	log.Infof("Finished - added %d nodes and %d edges, rejected %d departures. Took %s",
		total.addedNodes, total.addedEdges, total.rejectedDepartures,
		time.Since(start).Round(time.Second))
}

// buildTiles is one worker: it owns its reader and builder and walks its
// assigned tile range, logging and skipping tiles that fail.
func buildTiles(tileDir, transitDir string, tileNodeCounts map[graph.GraphId]int,
	assigned []graph.GraphId, lock *sync.Mutex, res *buildResult) {

	reader := graph.NewGraphReader(tileDir)
	for _, tileID := range assigned {
		if err := buildTile(reader, transitDir, tileNodeCounts, tileID, lock, &res.stats); err != nil {
			zap.S().Errorf("Tile %d not updated: %v", tileID.TileID(), err)
			res.err = err
		}
	}
}

func buildTile(reader *graph.GraphReader, transitDir string,
	tileNodeCounts map[graph.GraphId]int, tileID graph.GraphId,
	lock *sync.Mutex, stats *builderStats) error {

	log := zap.S()

	// Check out the road tile: a read-only view for snapping and a
	// writable builder, both under the store lock.
	lock.Lock()
	if reader.OverCommitted() {
		reader.Clear()
	}
	tile, err := reader.GetGraphTile(tileID)
	if err != nil {
		lock.Unlock()
		return err
	}
	b, err := graph.NewTileBuilder(reader.TileDir(), tileID)
	lock.Unlock()
	if err != nil {
		return err
	}

	// The transit blob decodes outside the critical section.
	tileData, err := transit.Read(transitDir, tileID)
	if err != nil {
		return err
	}

	// Form connections from each stop to the road network and register
	// the stop records.
	var conns []connectionEdge
	for _, stop := range tileData.Stops {
		addRoadConnections(stop, tile, &conns)
		b.AddTransitStop(graph.TransitStop{
			OneStopOffset: b.AddName(stop.OneStopID),
			NameOffset:    b.AddName(stop.Name),
		})
	}
	sortConnections(conns)
	log.Infof("Tile %d: added %d stops and %d connection edges",
		tileID.TileID(), len(tileData.Stops), len(conns))

	stopAccess := map[graph.GraphId]bool{}
	departures, rejected := processStopPairs(tileData, b.Header().DateCreated, stopAccess, tileID)
	stats.rejectedDepartures += rejected

	plans := buildStopEdgePlans(tileData, departures, b)
	routeTypes := addRoutes(tileData, b, tileID)

	nodesBefore := b.NodeCount()
	edgesBefore := b.DirectedEdgeCount()
	addToGraph(b, tileID, transitDir, tileData, tileNodeCounts, plans, stopAccess, conns, routeTypes)
	stats.addedNodes += b.NodeCount() - nodesBefore
	stats.addedEdges += b.DirectedEdgeCount() - edgesBefore

	lock.Lock()
	err = b.StoreTileData()
	lock.Unlock()
	return err
}
