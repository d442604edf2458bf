package main

import (
	"errors"
	"fmt"

	"github.com/pgxn/meta-go/internal/config"
	"github.com/pgxn/meta-go/internal/utils/logger"
	"github.com/pgxn/meta-go/meta"
	"github.com/pgxn/meta-go/valid"
	"github.com/spf13/cobra"
)

// Validate command flags
var validateRelease bool

func createValidateCommand() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate [flags] [META_FILE]",
		Short: "Validate a PGXN META.json file",
		Long: `Validate a PGXN metadata file against the PGXN Meta Spec.

The document is checked against the schema for its declared spec version
and against the semantic rules the schemas cannot express, such as license
expressions, version ranges, and glob patterns. Version 1 documents are
upgraded to version 2 and the result is validated again.

Reads META.json in the current directory when no file is named; the
default-file configuration setting changes that.`,
		Example: `  # Validate META.json in the current directory
  pgxn-meta validate

  # Validate a specific file
  pgxn-meta validate pair-0.1.7/META.json

  # Validate release metadata as published on PGXN
  pgxn-meta validate --release pair-0.1.7.json`,
		Args:              cobra.MaximumNArgs(1),
		RunE:              executeValidate,
		ValidArgsFunction: metaFileCompletion,
	}

	validateCmd.Flags().BoolVar(&validateRelease, "release", false,
		"Validate release metadata, requiring the certs property")

	return validateCmd
}

func executeValidate(cmd *cobra.Command, args []string) error {
	log := logger.Logger()

	metaFile := config.DefaultFile()
	if len(args) > 0 {
		metaFile = args[0]
	}
	log.Debugf("Validating %s", metaFile)

	if validateRelease {
		rel, err := meta.ParseReleaseFile(metaFile)
		if err != nil {
			reportInvalid(cmd, metaFile, err)
			return fmt.Errorf("%s is invalid", metaFile)
		}
		log.Debugf("Release %s %s certified for %s",
			rel.Name, rel.Version, rel.Payload().User)
	} else {
		dist, err := meta.ParseFile(metaFile)
		if err != nil {
			reportInvalid(cmd, metaFile, err)
			return fmt.Errorf("%s is invalid", metaFile)
		}
		log.Debugf("Distribution %s %s provides %d extension(s)",
			dist.Name, dist.Version, len(dist.Contents.Extensions))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s is OK\n", metaFile)
	return nil
}

// reportInvalid prints one line per schema violation or semantic failure
// so the user sees everything wrong with the document at once.
func reportInvalid(cmd *cobra.Command, path string, err error) {
	out := cmd.ErrOrStderr()

	var verr *valid.ValidationError
	if errors.As(err, &verr) {
		for _, v := range verr.Violations {
			fmt.Fprintf(out, "%s: %s: %s\n", path, v.Instance, v.Message)
		}
		return
	}

	var serr *meta.SemanticError
	if errors.As(err, &serr) {
		fmt.Fprintf(out, "%s: %s: %s\n", path, serr.Field, serr.Reason)
		return
	}

	fmt.Fprintf(out, "%s: %v\n", path, err)
}

// metaFileCompletion restricts shell completion to JSON files.
func metaFileCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"json"}, cobra.ShellCompDirectiveFilterFileExt
}
