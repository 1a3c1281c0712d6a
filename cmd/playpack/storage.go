package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/playpack/internal/scriptengine/hostapi"
)

var (
	flagStorageURI       string
	flagStorageAlgorithm string
)

// storageCmd groups the one verb spec.md mandates for the CLI.
var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Content hashing of arbitrary URIs",
}

var storageHashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Fetch --uri and print the hash of its content",
	Args:  cobra.NoArgs,
	RunE:  runStorageHash,
}

func init() {
	storageHashCmd.Flags().StringVar(&flagStorageURI, "uri", "", "URI to fetch: file://, http://, or https://")
	storageHashCmd.Flags().StringVar(&flagStorageAlgorithm, "algorithm", "sha2-256", "hash algorithm")
	_ = storageHashCmd.MarkFlagRequired("uri")
	storageCmd.AddCommand(storageHashCmd)
}

func runStorageHash(cmd *cobra.Command, args []string) error {
	data, err := fetchURI(flagStorageURI)
	if err != nil {
		return fmt.Errorf("storage hash: fetching %s: %w", flagStorageURI, err)
	}
	out, err := hostapi.CalcHash(data, flagStorageAlgorithm)
	if err != nil {
		return fmt.Errorf("storage hash: %w", err)
	}
	fmt.Println(out)
	return nil
}

// fetchURI reads the full content of a file://, http://, or https:// URI,
// per spec.md §6's accepted downloader schemes.
func fetchURI(raw string) ([]byte, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "file":
		return os.ReadFile(u.Path)
	case "http", "https":
		resp, err := http.Get(raw)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %s", resp.Status)
		}
		return io.ReadAll(resp.Body)
	default:
		return nil, fmt.Errorf("unsupported URI scheme %q", strings.TrimSuffix(u.Scheme, "://"))
	}
}
