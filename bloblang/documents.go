// Package bloblang registers mapping methods for working with arangodb documents.
package bloblang

import (
	"fmt"

	bl "github.com/benthosdev/benthos/v4/public/bloblang"
	"github.com/shono-io/arangosh/core"
)

func init() {
	err := bl.RegisterMethodV2("document_changes", bl.NewPluginSpec().
		Description("Lists what changed between this document and another version of it, ignoring system attributes.").
		Param(bl.NewAnyParam("other")), func(args *bl.ParsedParams) (bl.Method, error) {
		other, err := args.Get("other")
		if err != nil {
			return nil, err
		}

		return func(v any) (any, error) {
			if v == nil {
				return nil, nil
			}

			return core.Changelog(content(v), content(other))
		}, nil
	})
	if err != nil {
		panic(err)
	}

	err = bl.RegisterMethodV2("document_fingerprint", bl.NewPluginSpec().
		Description("Hashes the content of a document, ignoring system attributes."), func(args *bl.ParsedParams) (bl.Method, error) {
		return func(v any) (any, error) {
			if v == nil {
				return nil, nil
			}

			return core.Fingerprint(content(v))
		}, nil
	})
	if err != nil {
		panic(err)
	}

	err = bl.RegisterMethodV2("parse_document_handle", bl.NewPluginSpec().
		Description("Splits a document handle into its collection and key."), func(args *bl.ParsedParams) (bl.Method, error) {
		return func(v any) (any, error) {
			id, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("expected a string handle, got %T", v)
			}

			h, err := core.ParseDocumentHandle(id, "")
			if err != nil {
				return nil, err
			}

			return map[string]any{
				"collection": h.Collection,
				"key":        h.Key,
			}, nil
		}, nil
	})
	if err != nil {
		panic(err)
	}
}

func content(v any) any {
	if doc, ok := v.(map[string]any); ok {
		return core.Content(doc)
	}
	return v
}
