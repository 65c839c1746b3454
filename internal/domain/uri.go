package domain

import (
	"fmt"
	"strings"
)

// MakeURI builds the canonical uri for a provider item:
// domain://media_type/provider_item_id.
func MakeURI(providerDomain string, mediaType MediaType, itemID string) string {
	return fmt.Sprintf("%s://%s/%s", providerDomain, mediaType, itemID)
}

// ParseURI splits a media uri into its provider domain, media type and
// provider item id. The item id part may itself contain slashes
// (filesystem paths).
func ParseURI(uri string) (providerDomain string, mediaType MediaType, itemID string, err error) {
	head, rest, ok := strings.Cut(uri, "://")
	if !ok || head == "" {
		return "", "", "", fmt.Errorf("invalid media uri %q", uri)
	}
	typePart, idPart, ok := strings.Cut(rest, "/")
	if !ok || idPart == "" {
		return "", "", "", fmt.Errorf("invalid media uri %q", uri)
	}
	mt := MediaType(typePart)
	if !mt.Valid() {
		return "", "", "", fmt.Errorf("invalid media type in uri %q", uri)
	}
	return head, mt, idPart, nil
}
