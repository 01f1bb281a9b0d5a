package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/spf13/cobra"

	"github.com/wegman-software/pbf2json-go/internal/pipeline"
)

var infoExtended bool

var infoCmd = &cobra.Command{
	Use:   "info <input.osm.pbf>",
	Short: "Print information about a PBF file",
	Long: `Print header information about a PBF file and the processing plan that
would be selected for it. With --extended the entire file is scanned and
element counts are reported.`,
	Args: cobra.ExactArgs(1),
	Run:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().BoolVarP(&infoExtended, "extended", "e", false, "Scan the entire file and report element counts")
}

func runInfo(cmd *cobra.Command, args []string) {
	path := args[0]

	fi, err := os.Stat(path)
	if err != nil {
		exitWithError("Failed to stat input file", err)
	}

	f, err := os.Open(path)
	if err != nil {
		exitWithError("Failed to open input file", err)
	}
	defer f.Close()

	scanner := osmpbf.New(context.Background(), f, runtime.NumCPU())
	defer scanner.Close()

	hdr, err := scanner.Header()
	if err != nil {
		exitWithError("Failed to read file header", err)
	}

	fmt.Printf("File: %s\n", path)
	fmt.Printf("Size: %s\n", humanize.IBytes(uint64(fi.Size())))
	if hdr.Bounds != nil {
		fmt.Printf("BoundingBox: (%f, %f) (%f, %f)\n",
			hdr.Bounds.MinLon, hdr.Bounds.MinLat, hdr.Bounds.MaxLon, hdr.Bounds.MaxLat)
	}
	fmt.Printf("WritingProgram: %s\n", hdr.WritingProgram)
	if hdr.ReplicationTimestamp.Unix() > 0 {
		fmt.Printf("ReplicationTimestamp: %s\n", hdr.ReplicationTimestamp.UTC().Format(time.RFC3339))
	}
	fmt.Printf("Plan (auto): %s\n", pipeline.SelectPlan(fi.Size(), "auto"))
	fmt.Printf("Plan (full): %s\n", pipeline.SelectPlan(fi.Size(), "full"))

	if !infoExtended {
		return
	}

	var nodes, ways, relations int64
	for scanner.Scan() {
		switch scanner.Object().(type) {
		case *osm.Node:
			nodes++
		case *osm.Way:
			ways++
		case *osm.Relation:
			relations++
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		exitWithError("Failed to scan input file", err)
	}

	fmt.Printf("NodeCount: %s\n", humanize.Comma(nodes))
	fmt.Printf("WayCount: %s\n", humanize.Comma(ways))
	fmt.Printf("RelationCount: %s\n", humanize.Comma(relations))
}
