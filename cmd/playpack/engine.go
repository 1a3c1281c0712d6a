package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/playpack/internal/generations"
	"github.com/jward/playpack/internal/hashcodec"
	"github.com/jward/playpack/internal/packstore"
	"github.com/jward/playpack/internal/scriptengine"
)

var (
	flagEngineRunStore       string
	flagEngineRunGenerations string
	flagEngineRunEntry       string
)

var engineCmd = &cobra.Command{
	Use:   "engine",
	Short: "Materialize and evaluate a generation's resource graph",
}

var engineRunCmd = &cobra.Command{
	Use:   "run <generation-hash>",
	Short: "Build a generation's lockfile against the store and print one resource's table",
	Args:  cobra.ExactArgs(1),
	RunE:  runEngineRun,
}

func init() {
	engineRunCmd.Flags().StringVar(&flagEngineRunStore, "store", "", "packages store directory")
	engineRunCmd.Flags().StringVar(&flagEngineRunGenerations, "generations", "", "generations store directory")
	engineRunCmd.Flags().StringVar(&flagEngineRunEntry, "entry", "", "resource identifier to print (index, hash, or hash prefix); defaults to the first root")
	_ = engineRunCmd.MarkFlagRequired("store")
	_ = engineRunCmd.MarkFlagRequired("generations")

	engineCmd.AddCommand(engineRunCmd)
}

func runEngineRun(cmd *cobra.Command, args []string) error {
	h, ok := hashcodec.Decode(args[0])
	if !ok {
		return fmt.Errorf("engine run: invalid hash %q", args[0])
	}

	genStore, err := generations.Open(flagEngineRunGenerations)
	if err != nil {
		return fmt.Errorf("engine run: opening generations store: %w", err)
	}
	gen, found, err := genStore.Load(h)
	if err != nil {
		return fmt.Errorf("engine run: %w", err)
	}
	if !found {
		return fmt.Errorf("engine run: generation %s not found", args[0])
	}

	packStore, err := packstore.NewStore(flagEngineRunStore)
	if err != nil {
		return fmt.Errorf("engine run: opening packages store: %w", err)
	}

	tempRoot, err := os.MkdirTemp("", "playpack-engine-temp")
	if err != nil {
		return fmt.Errorf("engine run: %w", err)
	}
	defer os.RemoveAll(tempRoot)
	moduleRoot, err := os.MkdirTemp("", "playpack-engine-module")
	if err != nil {
		return fmt.Errorf("engine run: %w", err)
	}
	defer os.RemoveAll(moduleRoot)
	persistentRoot, err := os.MkdirTemp("", "playpack-engine-persistent")
	if err != nil {
		return fmt.Errorf("engine run: %w", err)
	}
	defer os.RemoveAll(persistentRoot)

	dirs := scriptengine.BaseDirs{TempRoot: tempRoot, ModuleRoot: moduleRoot, PersistentRoot: persistentRoot}

	lf := gen.LockFile
	e, err := scriptengine.Build(context.Background(), &lf, packStore, dirs)
	if err != nil {
		return fmt.Errorf("engine run: %w", err)
	}

	entry := flagEngineRunEntry
	if entry == "" {
		if len(lf.Root) == 0 {
			return fmt.Errorf("engine run: lockfile has no root resources")
		}
		entry = fmt.Sprintf("%d", lf.Root[0])
	}
	idx, ok := e.Resolve(entry)
	if !ok {
		return fmt.Errorf("engine run: unknown resource %q", entry)
	}

	table := scriptengine.ToGoValue(e.Table(idx))
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("engine run: encoding result: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
