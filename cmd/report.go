package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/jsphweid/tactus/constants"
	"github.com/jsphweid/tactus/db"
	"github.com/jsphweid/tactus/midi"
	"github.com/jsphweid/tactus/model"
	"github.com/jsphweid/tactus/repeats"
	"github.com/jsphweid/tactus/util"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Creates a report over the score dir",
	Long:  `Creates a report over the score dir`,
	Run: func(cmd *cobra.Command, args []string) {
		var maxNum int
		if len(args) == 1 {
			fmt.Sscanf(args[0], "%d", &maxNum)
		}
		report(maxNum)
	},
}

type scoreReport struct {
	numFiles     int64
	numMeasures  []int64
	numSpanners  []int64
	numSkipped   []int64
	playedTicks  []int64
	unimportable int64
}

func analyzeScores(paths []string) scoreReport {
	var r scoreReport
	for _, path := range paths {
		mf, err := midi.ReadFile(path)
		if err != nil {
			r.unimportable += 1
			continue
		}
		tl, _, skipped, err := midi.Import(mf)
		if err != nil {
			r.unimportable += 1
			continue
		}
		r.numFiles += 1
		r.numMeasures = append(r.numMeasures, int64(len(tl.Measures)))
		r.numSpanners = append(r.numSpanners, int64(tl.Spanners.Len()))
		r.numSkipped = append(r.numSkipped, int64(skipped))
		r.playedTicks = append(r.playedTicks, repeats.New(tl).TotalPlayedTicks())
	}
	return r
}

// fetchMetadatas batches the store lookups ten filenames at a time and
// degrades to empty metadata if the store is unreachable.
func fetchMetadatas(paths []string) map[string]model.ScoreMetadata {
	res := make(map[string]model.ScoreMetadata)
	for i := 0; i < len(paths); i += 10 {
		batch := paths[i:util.Min(i+10, len(paths))]
		var filenames []string
		for _, p := range batch {
			filenames = append(filenames, filepath.Base(p))
		}
		metas, err := db.GetScoreMetadatas(filenames)
		if err != nil {
			fmt.Printf("Could not fetch metadata batch: %v\n", err)
			continue
		}
		for k, v := range metas {
			res[k] = v
		}
	}
	return res
}

func report(maxNum int) {
	paths, err := util.GatherAllMidiPaths(constants.GetScoreDir(), maxNum)
	if err != nil {
		panic(err)
	}
	r := analyzeScores(paths)
	metas := fetchMetadatas(paths)

	fmt.Printf("files: %v (unimportable: %v)\n", r.numFiles, r.unimportable)
	fmt.Printf("measures: %v\n", util.Sum(r.numMeasures))
	fmt.Printf("spanners: %v\n", util.Sum(r.numSpanners))
	fmt.Printf("skipped notes: %v\n", util.Sum(r.numSkipped))
	fmt.Printf("played ticks: %v\n", util.Sum(r.playedTicks))
	fmt.Printf("with metadata: %v of %v\n", len(metas), len(paths))
	for _, name := range util.GetKeysSorted(metas) {
		m := metas[name]
		fmt.Printf("  %v: %v - %v\n", name, m.Composer, m.Title)
	}
}
