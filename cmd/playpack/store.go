package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/playpack/internal/hashcodec"
	"github.com/jward/playpack/internal/manifest"
	"github.com/jward/playpack/internal/packstore"
)

var (
	flagStoreValidateStore string
	flagStorePathStore     string
	flagStorePathFormat    string
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect the content-addressed packages store",
}

var storeValidateCmd = &cobra.Command{
	Use:   "validate <lockfile.json>",
	Short: "Recompute every resource hash in a lockfile and compare against the store",
	Args:  cobra.ExactArgs(1),
	RunE:  runStoreValidate,
}

var storePathCmd = &cobra.Command{
	Use:   "path <hash>",
	Short: "Print the on-disk path for a content hash",
	Args:  cobra.ExactArgs(1),
	RunE:  runStorePath,
}

func init() {
	storeValidateCmd.Flags().StringVar(&flagStoreValidateStore, "store", "", "packages store directory")
	_ = storeValidateCmd.MarkFlagRequired("store")

	storePathCmd.Flags().StringVar(&flagStorePathStore, "store", "", "packages store directory")
	storePathCmd.Flags().StringVar(&flagStorePathFormat, "format", "file", "resource format: package|file|archive|tar|zip|7z|module|module/v1|module/auto")
	_ = storePathCmd.MarkFlagRequired("store")

	storeCmd.AddCommand(storeValidateCmd)
	storeCmd.AddCommand(storePathCmd)
}

func runStoreValidate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("store validate: reading %s: %w", args[0], err)
	}
	lf, err := manifest.ParseLockfileManifest(data)
	if err != nil {
		return fmt.Errorf("store validate: %w", err)
	}
	store, err := packstore.NewStore(flagStoreValidateStore)
	if err != nil {
		return fmt.Errorf("store validate: opening store: %w", err)
	}
	ok, err := store.Validate(lf)
	if err != nil {
		return fmt.Errorf("store validate: %w", err)
	}
	if ok {
		fmt.Println("valid")
		return nil
	}
	fmt.Println("invalid")
	errorHandled = true
	return fmt.Errorf("store validate: lockfile does not match store")
}

func runStorePath(cmd *cobra.Command, args []string) error {
	h, ok := hashcodec.Decode(args[0])
	if !ok {
		return fmt.Errorf("store path: invalid hash %q", args[0])
	}
	format, ok := manifest.ParseResourceFormat(flagStorePathFormat)
	if !ok {
		return fmt.Errorf("store path: invalid format %q", flagStorePathFormat)
	}
	store, err := packstore.NewStore(flagStorePathStore)
	if err != nil {
		return fmt.Errorf("store path: opening store: %w", err)
	}
	fmt.Println(store.Path(h, format))
	return nil
}
