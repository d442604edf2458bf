package main

import (
	"encoding/json"
	"fmt"

	"github.com/pgxn/meta-go/internal/utils/logger"
	"github.com/pgxn/meta-go/internal/utils/security"
	"github.com/pgxn/meta-go/meta"
	"github.com/spf13/cobra"
)

// Convert command flags
var (
	convertRelease bool
	convertOutput  string
)

func createConvertCommand() *cobra.Command {
	convertCmd := &cobra.Command{
		Use:   "convert [flags] META_FILE",
		Short: "Convert v1 metadata to the v2 format",
		Long: `Convert a PGXN Meta Spec v1 document to version 2.

The input is validated against the v1 schema, upgraded, and the result is
validated against the v2 schema before it is written out. A document that
already uses version 2 is validated and reprinted unchanged, so the
command is safe to run on either format.`,
		Example: `  # Convert META.json and print the v2 document
  pgxn-meta convert META.json

  # Convert release metadata and write it to a file
  pgxn-meta convert --release -o pair-0.1.7.json pgxn-0.1.7.json`,
		Args:              cobra.ExactArgs(1),
		RunE:              executeConvert,
		ValidArgsFunction: metaFileCompletion,
	}

	convertCmd.Flags().BoolVar(&convertRelease, "release", false,
		"Convert release metadata, preserving the certs property")
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "",
		"Write the converted document to this file instead of stdout")

	return convertCmd
}

func executeConvert(cmd *cobra.Command, args []string) error {
	log := logger.Logger()
	metaFile := args[0]
	log.Debugf("Converting %s", metaFile)

	var doc interface{}
	if convertRelease {
		rel, err := meta.ParseReleaseFile(metaFile)
		if err != nil {
			reportInvalid(cmd, metaFile, err)
			return fmt.Errorf("cannot convert %s", metaFile)
		}
		doc = rel
	} else {
		dist, err := meta.ParseFile(metaFile)
		if err != nil {
			reportInvalid(cmd, metaFile, err)
			return fmt.Errorf("cannot convert %s", metaFile)
		}
		doc = dist
	}

	return writeDocument(cmd, doc, convertOutput)
}

// writeDocument renders doc as indented JSON to the named file, or to
// stdout when path is empty.
func writeDocument(cmd *cobra.Command, doc interface{}, path string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}

	if err := security.SafeWriteFile(path, data, 0o644, security.RejectSymlinks); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	logger.Logger().Infof("Wrote %s", path)
	return nil
}
