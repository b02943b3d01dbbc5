package core

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	keyRegex   = regexp.MustCompile(`^[a-zA-Z0-9_:\-@.()+,=;$!*'%]+$`)
	indexRegex = regexp.MustCompile(`^[a-zA-Z0-9\-_]+/[0-9]+$`)
	digitRegex = regexp.MustCompile(`^[0-9]+$`)
)

// ParseDocumentHandle splits a document handle of the form collection/key. When expectedCollection is
// not empty the handle must belong to that collection.
func ParseDocumentHandle(id string, expectedCollection string) (Handle, error) {
	return parseHandle(id, expectedCollection, ErrMalformedHandle)
}

// ParseIndexHandle splits an index handle. A bare index key is qualified with expectedCollection first.
func ParseIndexHandle(id string, expectedCollection string) (Handle, error) {
	if expectedCollection != "" && !indexRegex.MatchString(id) {
		id = expectedCollection + "/" + id
	}

	return parseHandle(id, expectedCollection, ErrMalformedIndexHandle)
}

// ParseNumericIndexHandle qualifies a numeric index id with expectedCollection.
func ParseNumericIndexHandle(id uint64, expectedCollection string) (Handle, error) {
	if expectedCollection == "" {
		return Handle{}, fmt.Errorf("%w: numeric index id %d without a collection", ErrMalformedIndexHandle, id)
	}

	return ParseIndexHandle(strconv.FormatUint(id, 10), expectedCollection)
}

func parseHandle(id string, expectedCollection string, malformed error) (Handle, error) {
	parts := strings.Split(id, "/")
	if len(parts) != 2 {
		return Handle{}, fmt.Errorf("%w: %q", malformed, id)
	}

	if expectedCollection != "" && parts[0] != expectedCollection {
		return Handle{}, fmt.Errorf("%w: %q does not belong to %q", ErrCrossCollectionReference, id, expectedCollection)
	}

	if parts[0] == "" || !keyRegex.MatchString(parts[1]) {
		return Handle{}, fmt.Errorf("%w: %q", malformed, id)
	}

	return Handle{
		Collection: parts[0],
		Key:        parts[1],
	}, nil
}

func NewHandle(collection string, key string) Handle {
	return Handle{
		Collection: collection,
		Key:        key,
	}
}

// Handle identifies a document or an index inside a collection.
type Handle struct {
	Collection string
	Key        string
}

func (h Handle) String() string {
	return h.Collection + "/" + h.Key
}

func (h Handle) IsValid() bool {
	return h.Collection != "" && keyRegex.MatchString(h.Key)
}

func (h Handle) EscapedCollection() string {
	return url.PathEscape(h.Collection)
}

func (h Handle) EscapedKey() string {
	return url.PathEscape(h.Key)
}

func (h Handle) DocumentPath() string {
	return "/_api/document/" + h.EscapedCollection() + "/" + h.EscapedKey()
}

func (h Handle) IndexPath() string {
	return "/_api/index/" + h.EscapedCollection() + "/" + h.EscapedKey()
}

// IsValidKey reports whether key satisfies the document key grammar.
func IsValidKey(key string) bool {
	return keyRegex.MatchString(key)
}

// CollectionPath returns the collection endpoint, or the endpoint of a single collection. All-digit
// identifiers are collection ids and are resolved as such by the server.
func CollectionPath(nameOrID string) string {
	if nameOrID == "" {
		return "/_api/collection"
	}

	path := "/_api/collection/" + url.PathEscape(nameOrID)
	if digitRegex.MatchString(nameOrID) {
		path = AppendQuery(path, "useId", "true")
	}

	return path
}

// AppendQuery adds a query parameter to a url that may or may not carry a query already.
func AppendQuery(u string, key string, value string) string {
	if strings.Contains(u, "?") {
		u += "&"
	} else {
		u += "?"
	}

	return u + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}

// AppendSyncFlag adds waitForSync=true when waitForSync is set.
func AppendSyncFlag(u string, waitForSync bool) string {
	if !waitForSync {
		return u
	}

	return AppendQuery(u, "waitForSync", "true")
}
