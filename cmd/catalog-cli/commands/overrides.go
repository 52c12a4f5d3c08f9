package commands

import (
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var overridesCmd = &cobra.Command{
	Use:   "overrides <file>",
	Short: "Check an override file and list its rules",
	Long: `Reads the override file (JSON5, merged with <file>.local when present)
exactly as the server would and prints the resulting rules. A malformed
file is reported as an error instead of being ignored.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := readOverrides(args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd.OutOrStdout(), rules)
		}

		paths := make([]string, 0, len(rules))
		for path := range rules {
			paths = append(paths, path)
		}
		sort.Strings(paths)

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Path", "Hidden", "Price", "Image", "Extra images"})
		for _, path := range paths {
			rule := rules[path]
			price, image := "", ""
			if rule.Price != nil {
				price = *rule.Price
			}
			if rule.Image != nil {
				image = *rule.Image
			}
			t.AppendRow(table.Row{path, rule.Hidden, price, image, len(rule.Images)})
		}
		t.AppendFooter(table.Row{"Rules", len(paths)})
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(overridesCmd)
}
