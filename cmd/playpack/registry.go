package main

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/playpack/internal/manifest"
	"github.com/jward/playpack/internal/registrycache"
)

var (
	flagRegistryCache string
	flagRegistryLang  string
	flagRegistryTag   string
)

// registryCmd groups the games-registry cache verbs: syncing a remote
// registry's manifests into the local SQLite cache, then browsing it.
var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Sync and browse the games-registry cache",
}

var registrySyncCmd = &cobra.Command{
	Use:   "sync <registry-url>",
	Short: "Fetch a games-registry manifest and its games into the cache",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegistrySync,
}

var registryGamesCmd = &cobra.Command{
	Use:   "games",
	Short: "List cached games, optionally filtered by tag",
	Args:  cobra.NoArgs,
	RunE:  runRegistryGames,
}

func init() {
	registrySyncCmd.Flags().StringVar(&flagRegistryCache, "cache", "", "registry cache database path")
	registrySyncCmd.Flags().StringVar(&flagRegistryLang, "lang", "en", "language id used to flatten game titles")
	_ = registrySyncCmd.MarkFlagRequired("cache")

	registryGamesCmd.Flags().StringVar(&flagRegistryCache, "cache", "", "registry cache database path")
	registryGamesCmd.Flags().StringVar(&flagRegistryTag, "tag", "", "only list games carrying this tag")
	_ = registryGamesCmd.MarkFlagRequired("cache")

	registryCmd.AddCommand(registrySyncCmd)
	registryCmd.AddCommand(registryGamesCmd)
}

func runRegistrySync(cmd *cobra.Command, args []string) error {
	registryURL := args[0]

	cache, err := registrycache.Open(flagRegistryCache)
	if err != nil {
		return fmt.Errorf("registry sync: opening cache: %w", err)
	}
	defer cache.Close()
	if err := cache.Migrate(); err != nil {
		return fmt.Errorf("registry sync: migrating cache: %w", err)
	}

	registryBytes, err := fetchURI(registryURL)
	if err != nil {
		return fmt.Errorf("registry sync: fetching %s: %w", registryURL, err)
	}
	reg, err := manifest.ParseRegistryManifest(registryBytes)
	if err != nil {
		return fmt.Errorf("registry sync: parsing %s: %w", registryURL, err)
	}

	now := time.Now().Unix()
	if err := cache.PutRegistry(registryURL, registryBytes, now); err != nil {
		return fmt.Errorf("registry sync: caching registry: %w", err)
	}

	for name, res := range reg.Games {
		gameURL, err := resolveAgainst(registryURL, res.URI)
		if err != nil {
			return fmt.Errorf("registry sync: resolving game %s: %w", name, err)
		}
		gameBytes, err := fetchURI(gameURL)
		if err != nil {
			return fmt.Errorf("registry sync: fetching game %s: %w", gameURL, err)
		}
		game, err := manifest.ParseGameManifest(gameBytes)
		if err != nil {
			return fmt.Errorf("registry sync: parsing game %s: %w", gameURL, err)
		}
		tags := make([]string, 0, len(game.Tags))
		for _, t := range game.Tags {
			tags = append(tags, string(t))
		}
		title := game.Title.Translate(flagRegistryLang)
		if err := cache.PutGame(game.Slug, title, registryURL, tags, gameBytes, now); err != nil {
			return fmt.Errorf("registry sync: caching game %s: %w", game.Slug, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cached %s (%s)\n", game.Slug, title)
	}

	return nil
}

func runRegistryGames(cmd *cobra.Command, args []string) error {
	cache, err := registrycache.Open(flagRegistryCache)
	if err != nil {
		return fmt.Errorf("registry games: opening cache: %w", err)
	}
	defer cache.Close()
	if err := cache.Migrate(); err != nil {
		return fmt.Errorf("registry games: migrating cache: %w", err)
	}

	var games []registrycache.GameSummary
	if flagRegistryTag == "" {
		games, err = cache.ListGames()
	} else {
		games, err = cache.ListGamesByTag(flagRegistryTag)
	}
	if err != nil {
		return fmt.Errorf("registry games: %w", err)
	}

	for _, g := range games {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", g.Slug, g.Title)
	}
	return nil
}

// resolveAgainst resolves a game manifest's declared URI against the
// registry manifest's own URL, the same relative-reference rule the
// resolver uses for a package's declared inputs/outputs.
func resolveAgainst(baseURL, ref string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base %q: %w", baseURL, err)
	}
	target, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse ref %q: %w", ref, err)
	}
	return base.ResolveReference(target).String(), nil
}
