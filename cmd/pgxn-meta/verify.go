package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pgxn/meta-go/internal/config"
	"github.com/pgxn/meta-go/internal/utils/logger"
	"github.com/pgxn/meta-go/internal/utils/security"
	"github.com/pgxn/meta-go/meta"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func createVerifyCommand() *cobra.Command {
	verifyCmd := &cobra.Command{
		Use:   "verify [flags] META_FILE ARCHIVE",
		Short: "Verify a release archive against its certified digests",
		Long: `Verify a downloaded release archive against release metadata.

The metadata must be release metadata as published by PGXN, with the
certs property holding the signed release payload. The archive is hashed
and compared to every digest recorded in the payload.

Releases certified before 2024 may carry only a SHA-1 digest. The
digests.sha1 configuration setting controls whether such archives are
accepted, accepted with a warning, or rejected.`,
		Example: `  # Verify a downloaded archive
  pgxn-meta verify pair-0.1.7.json pair-0.1.7.zip`,
		Args: cobra.ExactArgs(2),
		RunE: executeVerify,
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			// First argument is metadata, second the archive.
			if len(args) == 0 {
				return metaFileCompletion(cmd, args, toComplete)
			}
			return nil, cobra.ShellCompDirectiveDefault
		},
	}

	return verifyCmd
}

func executeVerify(cmd *cobra.Command, args []string) error {
	log := logger.Logger()
	metaFile, archive := args[0], args[1]

	rel, err := meta.ParseReleaseFile(metaFile)
	if err != nil {
		reportInvalid(cmd, metaFile, err)
		return fmt.Errorf("%s is invalid", metaFile)
	}

	payload := rel.Payload()
	log.Debugf("Release %s %s for %s, published %s",
		rel.Name, rel.Version, payload.User, payload.Date.Format(time.RFC3339))
	log.Debugf("Source URI: %s", payload.URI)

	strongest := payload.Digests.Strongest()
	if strongest == "sha1" {
		switch config.SHA1Policy() {
		case config.SHA1Reject:
			return fmt.Errorf("%s carries only a SHA-1 digest, rejected by digests.sha1 policy", metaFile)
		case config.SHA1Warn:
			log.Warnf("%s carries only a SHA-1 digest; consider digests.sha1: reject", metaFile)
		default:
			log.Debugf("%s carries only a SHA-1 digest, allowed by policy", metaFile)
		}
	}

	content, err := readArchive(cmd, archive)
	if err != nil {
		return err
	}

	if err := payload.Digests.Verify(content); err != nil {
		return fmt.Errorf("%s does not match %s: %w", archive, metaFile, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s is OK (verified with %s)\n", archive, strongest)
	return nil
}

// readArchive reads the archive into memory, rendering progress while it
// goes. Symlinked archives are rejected so the verified bytes come from
// the named path.
func readArchive(cmd *cobra.Command, archive string) ([]byte, error) {
	file, err := security.SafeOpenFile(archive, os.O_RDONLY, 0, security.RejectSymlinks)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", archive, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", archive, err)
	}

	bar := progressbar.NewOptions(int(info.Size()),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(200*time.Millisecond),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
	bar.Describe(filepath.Base(archive))

	var buf bytes.Buffer
	buf.Grow(int(info.Size()))
	if _, err := io.Copy(io.MultiWriter(&buf, bar), file); err != nil {
		return nil, fmt.Errorf("reading %s: %w", archive, err)
	}
	_ = bar.Finish()
	fmt.Fprintln(cmd.ErrOrStderr())

	return buf.Bytes(), nil
}
