package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var crawlCount int

func init() {
	crawlCmd.Flags().IntVarP(&crawlCount, "count", "n", 100, "number of random books to crawl")
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(missingCmd)
}

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl metadata for random books into book_info.",
	RunE: func(cmd *cobra.Command, args []string) error {
		saved, err := state.catalog.CrawlRandom(cmd.Context(), crawlCount)
		if err != nil {
			return err
		}
		fmt.Printf("crawled %d of %d books\n", saved, crawlCount)
		return nil
	},
}

var missingCmd = &cobra.Command{
	Use:   "missing <id file>",
	Short: "Re-crawl the book ids listed in a file (one per line) until the list converges.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		var ids []int64
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			id, err := strconv.ParseInt(line, 10, 64)
			if err != nil {
				return fmt.Errorf("%s: bad id %q: %w", args[0], line, err)
			}
			ids = append(ids, id)
		}

		failed, err := state.catalog.FetchMissing(cmd.Context(), ids)
		if err != nil {
			return err
		}
		fmt.Printf("recovered %d of %d books\n", len(ids)-len(failed), len(ids))
		for _, id := range failed {
			fmt.Fprintln(os.Stderr, id)
		}
		return nil
	},
}
