package main

import (
	"encoding/json"
	"fmt"

	"github.com/pgxn/meta-go/internal/utils/logger"
	"github.com/pgxn/meta-go/internal/utils/security"
	"github.com/pgxn/meta-go/meta"
	"github.com/spf13/cobra"
)

// Merge command flags
var (
	mergeRelease bool
	mergeOutput  string
)

func createMergeCommand() *cobra.Command {
	mergeCmd := &cobra.Command{
		Use:   "merge [flags] BASE_FILE [PATCH_FILE...]",
		Short: "Merge metadata documents into one valid v2 document",
		Long: `Merge PGXN metadata documents using RFC 7396 JSON Merge Patch.

Each patch file is applied to the base document in argument order: object
members are merged recursively, null removes a member, and arrays and
scalars replace the base value outright. A version 1 base is upgraded to
version 2 before the first patch is applied. The merged document is
validated and printed.

A typical use is keeping a small patch file with fixes for an older
release, such as a corrected license or an added metadata field.`,
		Example: `  # Upgrade a v1 document and set a SPDX license expression
  pgxn-meta merge META.json license.json

  # Patch release metadata and save the result
  pgxn-meta merge --release -o patched.json pair-0.1.7.json fix.json`,
		Args:              cobra.MinimumNArgs(1),
		RunE:              executeMerge,
		ValidArgsFunction: metaFileCompletion,
	}

	mergeCmd.Flags().BoolVar(&mergeRelease, "release", false,
		"Merge release metadata, requiring the certs property")
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "",
		"Write the merged document to this file instead of stdout")

	return mergeCmd
}

func executeMerge(cmd *cobra.Command, args []string) error {
	log := logger.Logger()
	log.Debugf("Merging %d document(s)", len(args))

	docs := make([]map[string]interface{}, 0, len(args))
	for _, path := range args {
		doc, err := readDocument(path)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	var merged interface{}
	if mergeRelease {
		rel, err := meta.ReleaseFromValues(docs)
		if err != nil {
			reportInvalid(cmd, "merged document", err)
			return fmt.Errorf("merge produced invalid metadata")
		}
		merged = rel
	} else {
		dist, err := meta.FromValues(docs)
		if err != nil {
			reportInvalid(cmd, "merged document", err)
			return fmt.Errorf("merge produced invalid metadata")
		}
		merged = dist
	}

	return writeDocument(cmd, merged, mergeOutput)
}

// readDocument loads a JSON object from path.
func readDocument(path string) (map[string]interface{}, error) {
	data, err := security.SafeReadFile(path, security.ResolveSymlinks)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}
