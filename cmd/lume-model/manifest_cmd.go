package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/open-edge-platform/lume-model/internal/config/manifest"
	"github.com/open-edge-platform/lume-model/internal/utils/config"
	"github.com/open-edge-platform/lume-model/internal/utils/logger"
	"github.com/spf13/cobra"
)

// EnvSignPassphrase holds the passphrase of an encrypted signing key.
const EnvSignPassphrase = "LUME_MODEL_SIGN_PASSPHRASE"

// Manifest command flags
var (
	manifestOutput string
	signKey        string
)

// createManifestCommand creates the manifest subcommand
func createManifestCommand() *cobra.Command {
	manifestCmd := &cobra.Command{
		Use:   "manifest [flags] RECIPE",
		Short: "Write the release manifest and SBOM of a package",
		Long: `Write manifest.json and spdx.json for a package descriptor. The manifest
records the descriptor fingerprint, the hash of the descriptor file and the
hash of the SBOM. With --sign-key both files get an armored detached OpenPGP
signature; an encrypted key is unlocked with $` + EnvSignPassphrase + `.`,
		Args:              cobra.ExactArgs(1),
		RunE:              executeManifest,
		ValidArgsFunction: recipeFileCompletion,
	}

	manifestCmd.Flags().StringVarP(&manifestOutput, "output", "o", "",
		"Output directory (default: <work_dir>/<name>-<version>)")
	manifestCmd.Flags().StringVar(&signKey, "sign-key", "",
		"Armored OpenPGP private key used to sign the outputs")
	return manifestCmd
}

// executeManifest handles the manifest command logic
func executeManifest(cmd *cobra.Command, args []string) error {
	log := logger.Logger()
	path := recipePath(args[0])

	d, err := loadRecipe(cmd.Context(), path)
	if err != nil {
		return err
	}

	outDir := manifestOutput
	if outDir == "" {
		outDir, err = config.NewConfigHelpers(config.Global()).ReleaseDir(d.Package.Name, d.Package.Version)
		if err != nil {
			return err
		}
	}

	m, err := manifest.BuildManifest(d, path)
	if err != nil {
		return fmt.Errorf("failed to build manifest: %w", err)
	}

	pkgs, err := manifest.PackagesFromDescriptor(d)
	if err != nil {
		return err
	}
	spdxPath := filepath.Join(outDir, "spdx.json")
	if err := manifest.WriteSPDXToFile(pkgs, spdxPath); err != nil {
		return err
	}
	if err := m.AttachSBOM(spdxPath); err != nil {
		return err
	}

	manifestPath := filepath.Join(outDir, "manifest.json")
	if err := manifest.WriteManifestToFile(m, manifestPath); err != nil {
		return err
	}
	written := []string{manifestPath, spdxPath}

	if signKey != "" {
		passphrase := signPassphrase()
		for _, p := range []string{manifestPath, spdxPath} {
			sig, err := manifest.SignFile(p, signKey, passphrase)
			if err != nil {
				return fmt.Errorf("failed to sign %s: %w", filepath.Base(p), err)
			}
			written = append(written, sig)
		}
	}

	out := cmd.OutOrStdout()
	for _, p := range written {
		info, err := os.Stat(p)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s (%s)\n", p, humanize.Bytes(uint64(info.Size())))
	}
	log.Infof("manifest for %s %s written to %s", m.Name, m.Version, outDir)
	return nil
}

// signPassphrase reads the key passphrase from the environment. Only a
// trailing line break is dropped; other whitespace is part of the secret.
func signPassphrase() []byte {
	return []byte(strings.TrimRight(os.Getenv(EnvSignPassphrase), "\r\n"))
}
