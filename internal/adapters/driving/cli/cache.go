package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var cacheJSON bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the session query cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics for the session",
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the session's cache store",
	RunE:  runCacheClear,
}

func init() {
	cacheStatsCmd.Flags().BoolVar(&cacheJSON, "json", false, "output stats as JSON")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	if cacheRegistry == nil {
		return errors.New("cache not configured")
	}

	stats, err := cacheRegistry.Get(flagSession).Stats(context.Background())
	if err != nil {
		return fmt.Errorf("cache stats: %w", err)
	}

	if cacheJSON {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal stats: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Session:        %s\n", flagSession)
	cmd.Printf("Entries:        %d\n", stats.TotalEntries)
	cmd.Printf("Total reuses:   %d\n", stats.TotalReuses)
	cmd.Printf("Avg reuse:      %.2f\n", stats.AvgReuseCount)
	cmd.Printf("Oldest entry:   %.1fh\n", stats.OldestAgeHours)
	cmd.Printf("Newest entry:   %.1fh\n", stats.NewestAgeHours)
	return nil
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	if cacheRegistry == nil {
		return errors.New("cache not configured")
	}

	if err := cacheRegistry.Get(flagSession).Clear(context.Background()); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	cacheRegistry.Drop(flagSession)
	cmd.Printf("Cache cleared for session %s\n", flagSession)
	return nil
}
