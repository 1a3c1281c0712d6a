package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/playpack/internal/packstore"
	"github.com/jward/playpack/internal/resolver"
)

var (
	flagResolveStore string
	flagResolveOut   string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <root-url>...",
	Short: "Resolve one or more root package URLs into a lockfile",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&flagResolveStore, "store", "", "packages store directory")
	resolveCmd.Flags().StringVar(&flagResolveOut, "out", "", "write the lockfile here instead of stdout")
	_ = resolveCmd.MarkFlagRequired("store")
}

func runResolve(cmd *cobra.Command, args []string) error {
	store, err := packstore.NewStore(flagResolveStore)
	if err != nil {
		return fmt.Errorf("resolve: opening store: %w", err)
	}

	r := resolver.New(store)
	lf, err := r.Build(context.Background(), args)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	data, err := lf.Bytes()
	if err != nil {
		return fmt.Errorf("resolve: encoding lockfile: %w", err)
	}

	if flagResolveOut == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(flagResolveOut, data, 0o644); err != nil {
		return fmt.Errorf("resolve: writing %s: %w", flagResolveOut, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote lockfile: %s\n", flagResolveOut)
	return nil
}
