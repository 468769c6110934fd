package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jsphweid/tactus/constants"
	"github.com/jsphweid/tactus/midi"
	"github.com/jsphweid/tactus/playback"
	"github.com/jsphweid/tactus/repeats"
	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2/smf"
)

var excerptFrom, excerptTo string

func init() {
	exportCmd.Flags().StringVar(&excerptFrom, "from", "", "excerpt start in played ticks")
	exportCmd.Flags().StringVar(&excerptTo, "to", "", "excerpt end in played ticks")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Exports the played score as a midi file",
	Long:  `Exports the played (repeat-expanded) score as a midi file`,
	Run: func(cmd *cobra.Command, args []string) {
		switch len(args) {
		case 1:
			export(args[0], filepath.Join(constants.GetOutDir(), "played.mid"))
		case 2:
			export(args[0], args[1])
		default:
			panic("Need 1-2 args: <in> [out.mid]")
		}
	},
}

func writeSMF(res *smf.SMF, outPath string) {
	os.MkdirAll(filepath.Dir(outPath), 0777)
	f, err := os.Create(outPath)
	if err != nil {
		panic("Could not create file: " + err.Error())
	}
	defer f.Close()
	if _, err := res.WriteTo(f); err != nil {
		panic("Write failed for midi file: " + err.Error())
	}
}

func export(inPath, outPath string) {
	tl, tm, _ := loadScore(inPath)
	list := repeats.New(tl)
	m := playback.NewModel(tl, list)

	var res *smf.SMF
	if excerptFrom != "" || excerptTo != "" {
		from, _ := strconv.ParseInt(excerptFrom, 10, 64)
		to, err := strconv.ParseInt(excerptTo, 10, 64)
		if err != nil || to == 0 {
			to = list.TotalPlayedTicks()
		}
		res, err = midi.Excerpt(m, list, tm, from, to)
		if err != nil {
			panic("Could not excerpt: " + err.Error())
		}
	} else {
		res = midi.Export(m, list, tm)
	}

	writeSMF(res, outPath)
	fmt.Printf("wrote %v tracks -> %v\n", len(res.Tracks), outPath)
}
