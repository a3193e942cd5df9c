package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/SilentByte/doublegit/internal/ledger"
	"github.com/SilentByte/doublegit/internal/ui"
)

var historyFormat string

var historyCmd = &cobra.Command{
	Use:   "history REPOSITORY [REF]",
	Short: "Show the recorded interval history of refs",
	Long: `Print the ledger's interval history: every value each ref has held,
with the time range it held it. With a REF argument (tracking form,
e.g. origin/main) only that ref's history is printed.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(args[0])
		if err != nil {
			return err
		}

		led, err := ledger.Open(filepath.Join(args[0], cfg.Database))
		if err != nil {
			return err
		}
		defer led.Close()

		var records []ledger.Record
		if len(args) == 2 {
			remote, name, err := ledger.SplitRef(args[1])
			if err != nil {
				return err
			}
			records, err = led.History(remote, name)
			if err != nil {
				return err
			}
		} else {
			records, err = led.AllHistory()
			if err != nil {
				return err
			}
		}

		return printRecords(records)
	},
}

var currentCmd = &cobra.Command{
	Use:   "current REPOSITORY",
	Short: "Show the ledger's view of live refs",
	Long: `Print every ref the ledger believes currently exists upstream, with
the commit it points at. This is the set of open intervals.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(args[0])
		if err != nil {
			return err
		}

		led, err := ledger.Open(filepath.Join(args[0], cfg.Database))
		if err != nil {
			return err
		}
		defer led.Close()

		targets, err := led.CurrentTargets()
		if err != nil {
			return err
		}

		keys := make([]ledger.Key, 0, len(targets))
		for k := range targets {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

		if historyFormat == "yaml" {
			out := make(map[string]string, len(targets))
			for _, k := range keys {
				out[k.String()] = targets[k]
			}
			data, err := yaml.Marshal(out)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		}

		for _, k := range keys {
			fmt.Printf("%s %s\n", ui.RenderAccent(k.String()), targets[k])
		}
		return nil
	},
}

func printRecords(records []ledger.Record) error {
	if historyFormat == "yaml" {
		data, err := yaml.Marshal(records)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	}

	for _, rec := range records {
		until := "now"
		if rec.To != nil {
			until = rec.To.Format(ledger.TimeFormat)
		}
		fmt.Printf("%s %s  %s .. %s\n",
			ui.RenderAccent(rec.Remote+"/"+rec.Name), rec.SHA,
			rec.From.Format(ledger.TimeFormat), ui.RenderDim(until))
	}
	return nil
}

func init() {
	for _, cmd := range []*cobra.Command{historyCmd, currentCmd} {
		cmd.Flags().StringVar(&historyFormat, "format", "text", "output format: text or yaml")
	}
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(currentCmd)
}
