package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runCrawlCount int

func init() {
	runCmd.Flags().IntVarP(&runCrawlCount, "count", "n", 100, "number of random books to crawl first")
	rootCmd.AddCommand(lexiconsCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(reviewsCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(runCmd)
}

var lexiconsCmd = &cobra.Command{
	Use:   "lexicons",
	Short: "Parse the configured lexicon files and reload the four lexicon tables.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return state.pipeline.LoadLexicons(cmd.Context(), state.lexicons)
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Deduplicate eligible raw metadata into book_info_clean.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return state.pipeline.CleanBookInfo(cmd.Context())
	},
}

var reviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "Crawl reviews for cleaned books that have none yet.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return state.reviews.CrawlEligible(cmd.Context())
	},
}

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Tokenize pending reviews and rebuild the review feature table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return state.pipeline.Features(cmd.Context())
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one whole pass: crawl, clean, reviews, features.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := state.pipeline.Run(cmd.Context(), runCrawlCount); err != nil {
			return err
		}
		fmt.Println("pipeline pass complete")
		return nil
	},
}
