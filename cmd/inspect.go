package cmd

import (
	"fmt"

	"github.com/jsphweid/tactus/midi"
	"github.com/jsphweid/tactus/playback"
	"github.com/jsphweid/tactus/repeats"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspects a midi file as a score",
	Long:  `Inspects a midi file as a score`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			panic("Need 1 arg...")
		}
		inspect(args[0])
	},
}

func inspect(path string) {
	mf, err := midi.ReadFile(path)
	if err != nil {
		panic("Could not read midi file: " + err.Error())
	}
	tl, tm, skipped, err := midi.Import(mf)
	if err != nil {
		panic("Could not import midi file: " + err.Error())
	}

	list := repeats.New(tl)
	m := playback.NewModel(tl, list)

	fmt.Printf("measures: %v\n", len(tl.Measures))
	fmt.Printf("voices: %v\n", tl.NumVoices())
	fmt.Printf("spanners: %v\n", tl.Spanners.Len())
	fmt.Printf("skipped notes: %v\n", skipped)
	fmt.Printf("raw ticks: %v\n", tl.EndTick())
	fmt.Printf("played ticks: %v\n", list.TotalPlayedTicks())
	fmt.Printf("play time: %.2fs\n", list.TotalPlayTime(tm))

	for _, tr := range m.Tracks() {
		events := m.ResolveTrackEvents(tr.ID)
		fmt.Printf("track %v (voice %v): %v events\n", tr.ID, tr.VoiceIndex, len(events))
	}
}
