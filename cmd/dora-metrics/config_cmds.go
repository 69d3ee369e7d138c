package main

import (
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/cobra"

	"github.com/reillywatson/dorametrics/internal/cache"
)

func (a *app) newShowConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-config",
		Short: "Display the current configuration",
		Long:  `Shows the configuration loaded from the config file, environment variables and .env file, with secrets masked.`,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Fprintln(a.stdout, a.cfg.String())
			if err := a.cfg.Validate(); err != nil {
				fmt.Fprintf(a.stdout, "\nWarning: %v\n", err)
			}
			return nil
		},
	}
}

func (a *app) newCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the upstream response cache",
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached response",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var (
				fileCache *cache.FileCache
				err       error
			)
			if a.cfg.Cache.Dir != "" {
				fileCache, err = cache.NewFileCacheWithDir(a.cfg.Cache.Dir)
			} else {
				fileCache, err = cache.NewFileCache(cache.AppName)
			}
			if err != nil {
				return goerr.Wrap(err, "failed to open cache")
			}
			defer fileCache.Close()

			if err := fileCache.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Cleared cache at %s\n", fileCache.Dir())
			return nil
		},
	})

	return cacheCmd
}
