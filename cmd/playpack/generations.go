package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/playpack/internal/generations"
	"github.com/jward/playpack/internal/hashcodec"
	"github.com/jward/playpack/internal/manifest"
)

var (
	flagGenBuildStore string
	flagGenListStore  string
	flagGenShowStore  string
	flagGenRmStore    string
)

var generationsCmd = &cobra.Command{
	Use:   "generations",
	Short: "Manage the append-only generations store",
}

var generationsBuildCmd = &cobra.Command{
	Use:   "build <lockfile.json>",
	Short: "Wrap a lockfile into a generation and insert it",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenerationsBuild,
}

var generationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List generation hashes, oldest first",
	Args:  cobra.NoArgs,
	RunE:  runGenerationsList,
}

var generationsShowCmd = &cobra.Command{
	Use:   "show <hash>",
	Short: "Print one generation as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenerationsShow,
}

var generationsRmCmd = &cobra.Command{
	Use:   "rm <hash>",
	Short: "Remove a generation",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenerationsRm,
}

func init() {
	generationsBuildCmd.Flags().StringVar(&flagGenBuildStore, "store", "", "generations store directory")
	_ = generationsBuildCmd.MarkFlagRequired("store")

	generationsListCmd.Flags().StringVar(&flagGenListStore, "store", "", "generations store directory")
	_ = generationsListCmd.MarkFlagRequired("store")

	generationsShowCmd.Flags().StringVar(&flagGenShowStore, "store", "", "generations store directory")
	_ = generationsShowCmd.MarkFlagRequired("store")

	generationsRmCmd.Flags().StringVar(&flagGenRmStore, "store", "", "generations store directory")
	_ = generationsRmCmd.MarkFlagRequired("store")

	generationsCmd.AddCommand(generationsBuildCmd)
	generationsCmd.AddCommand(generationsListCmd)
	generationsCmd.AddCommand(generationsShowCmd)
	generationsCmd.AddCommand(generationsRmCmd)
}

func runGenerationsBuild(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("generations build: reading %s: %w", args[0], err)
	}
	lf, err := manifest.ParseLockfileManifest(data)
	if err != nil {
		return fmt.Errorf("generations build: %w", err)
	}

	gen := &manifest.GenerationManifest{
		LockFile:    *lf,
		Games:       []manifest.GameLock{},
		GeneratedAt: uint64(time.Now().Unix()),
	}

	store, err := generations.Open(flagGenBuildStore)
	if err != nil {
		return fmt.Errorf("generations build: opening store: %w", err)
	}
	h, err := store.Insert(gen)
	if err != nil {
		return fmt.Errorf("generations build: %w", err)
	}
	fmt.Println(hashcodec.Encode(h))
	return nil
}

func runGenerationsList(cmd *cobra.Command, args []string) error {
	store, err := generations.Open(flagGenListStore)
	if err != nil {
		return fmt.Errorf("generations list: opening store: %w", err)
	}
	list, err := store.List()
	if err != nil {
		return fmt.Errorf("generations list: %w", err)
	}
	for _, h := range list {
		fmt.Println(hashcodec.Encode(h))
	}
	return nil
}

func runGenerationsShow(cmd *cobra.Command, args []string) error {
	h, ok := hashcodec.Decode(args[0])
	if !ok {
		return fmt.Errorf("generations show: invalid hash %q", args[0])
	}
	store, err := generations.Open(flagGenShowStore)
	if err != nil {
		return fmt.Errorf("generations show: opening store: %w", err)
	}
	gen, found, err := store.Load(h)
	if err != nil {
		return fmt.Errorf("generations show: %w", err)
	}
	if !found {
		return fmt.Errorf("generations show: %s not found", args[0])
	}
	data, err := gen.Bytes()
	if err != nil {
		return fmt.Errorf("generations show: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func runGenerationsRm(cmd *cobra.Command, args []string) error {
	h, ok := hashcodec.Decode(args[0])
	if !ok {
		return fmt.Errorf("generations rm: invalid hash %q", args[0])
	}
	store, err := generations.Open(flagGenRmStore)
	if err != nil {
		return fmt.Errorf("generations rm: opening store: %w", err)
	}
	if err := store.Remove(h); err != nil {
		return fmt.Errorf("generations rm: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Removed generation: %s\n", args[0])
	return nil
}
