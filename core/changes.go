package core

import (
	"fmt"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/mitchellh/mapstructure"
	"github.com/r3labs/diff/v3"
)

// systemAttributes are maintained by the server and never part of a document's content.
var systemAttributes = []string{"_id", "_key", "_rev"}

// Content returns a copy of doc without its system attributes.
func Content(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}

	result := make(map[string]any, len(doc))
	for k, v := range doc {
		result[k] = v
	}
	for _, k := range systemAttributes {
		delete(result, k)
	}

	return result
}

// Changelog lists what changed between two versions of a document. Each entry carries Type
// (create, update or delete), Path, From and To.
func Changelog(from any, to any) ([]map[string]any, error) {
	cl, err := diff.Diff(from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to diff documents: %w", err)
	}

	var result []map[string]any
	if err := mapstructure.Decode(cl, &result); err != nil {
		return nil, fmt.Errorf("failed to decode changelog: %w", err)
	}

	return result, nil
}

// Fingerprint hashes a document so two versions can be compared without walking them.
func Fingerprint(v any) (string, error) {
	h, err := hashstructure.Hash(v, hashstructure.FormatV2, nil)
	if err != nil {
		return "", fmt.Errorf("failed to hash document: %w", err)
	}

	return fmt.Sprintf("%d", h), nil
}
