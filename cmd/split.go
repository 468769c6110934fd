package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jsphweid/tactus/frac"
	"github.com/jsphweid/tactus/midi"
	"github.com/jsphweid/tactus/model"
	"github.com/jsphweid/tactus/repeats"
	"github.com/jsphweid/tactus/store"
	"github.com/jsphweid/tactus/timeline"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(splitCmd)
}

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Splits a measure at a raw tick",
	Long:  `Splits a measure at a raw tick and writes the score back as a snapshot`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 3 {
			panic("Need 3 args: <in> <tick> <out.dat>")
		}
		tick, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			panic(err)
		}
		split(args[0], tick, args[2])
	},
}

// loadScore accepts either a snapshot or a midi file.
func loadScore(path string) (*timeline.Timeline, repeats.TempoMap, model.ScoreMetadata) {
	if strings.HasSuffix(path, ".dat") {
		doc, err := store.Load(path)
		if err != nil {
			panic("Could not load snapshot: " + err.Error())
		}
		tl, tm, err := doc.Materialize()
		if err != nil {
			panic(err.Error())
		}
		return tl, tm, doc.Metadata
	}

	mf, err := midi.ReadFile(path)
	if err != nil {
		panic("Could not read midi file: " + err.Error())
	}
	tl, tm, _, err := midi.Import(mf)
	if err != nil {
		panic("Could not import midi file: " + err.Error())
	}
	return tl, tm, model.ScoreMetadata{}
}

func split(inPath string, tick int64, outPath string) {
	tl, tm, meta := loadScore(inPath)

	if err := tl.SplitMeasure(frac.FromTicks(tick)); err != nil {
		panic("Could not split: " + err.Error())
	}
	if err := store.Save(outPath, store.Snapshot(tl, tm, meta)); err != nil {
		panic(err.Error())
	}
	fmt.Printf("split at tick %v, now %v measures -> %v\n", tick, len(tl.Measures), outPath)
}
