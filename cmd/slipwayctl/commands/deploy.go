package commands

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/slipway-sh/slipway/pkg/apiclient"
	"github.com/slipway-sh/slipway/pkg/artifact"
	"github.com/spf13/cobra"
)

var (
	deployHash       string
	deployPort       int
	deployEntrypoint string
)

var deployCmd = &cobra.Command{
	Use:   "deploy <directory|archive.tar.gz>",
	Short: "Deploy an application to the host",
	Long: `Deploy an application to the slipway host.

The argument is either a directory, which is packaged into a gzip-compressed
tar archive, or a prebuilt .tar.gz archive, which is uploaded as-is. The
current instance on the host is replaced by the new deployment.

Examples:
  # Deploy a directory
  slipwayctl deploy ./myapp --port 3000 --entrypoint bin/server

  # Deploy a prebuilt archive with an explicit version hash
  slipwayctl deploy myapp.tar.gz --hash v42 --port 3000 --entrypoint bin/server

  # Deploy to a remote host
  slipwayctl deploy ./myapp --server http://deploy.example.com:8080 --port 3000 --entrypoint bin/server`,
	Args: cobra.ExactArgs(1),
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().StringVar(&deployHash, "hash", "", "Version identifier (default: random)")
	deployCmd.Flags().IntVar(&deployPort, "port", 0, "Port the application will listen on (required)")
	deployCmd.Flags().StringVar(&deployEntrypoint, "entrypoint", "", "Entrypoint path relative to the archive root (required)")
	_ = deployCmd.MarkFlagRequired("port")
	_ = deployCmd.MarkFlagRequired("entrypoint")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	target := args[0]

	hash := deployHash
	if hash == "" {
		hash = uuid.New().String()
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", target, err)
	}

	var archive bytes.Buffer
	if info.IsDir() {
		fmt.Printf("Packaging %s...\n", target)
		if err := artifact.Pack(target, &archive); err != nil {
			return fmt.Errorf("failed to package %s: %w", target, err)
		}
	} else {
		if !strings.HasSuffix(target, ".tar.gz") && !strings.HasSuffix(target, ".tgz") {
			return fmt.Errorf("%s is not a directory or a .tar.gz archive", target)
		}
		data, err := os.ReadFile(target)
		if err != nil {
			return fmt.Errorf("failed to read archive: %w", err)
		}
		archive.Write(data)
	}

	fmt.Printf("Deploying %s (%d bytes) to %s...\n", hash, archive.Len(), serverURL)

	client := apiclient.New(serverURL)
	result, err := client.Deploy(&archive, hash, deployPort, deployEntrypoint)
	if err != nil {
		return fmt.Errorf("deploy failed: %w", err)
	}

	fmt.Printf("Deployed %s on port %d in %s\n",
		result.Hash, deployPort, time.Duration(result.Duration)*time.Millisecond)
	if result.Message != "" {
		fmt.Println(result.Message)
	}

	return nil
}
