package client

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dunglas/httpsfv"
)

// profilePattern limits profile ids to characters safe in storage keys.
var profilePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ParseHeader extracts the client identity from the Storefront-Client header.
// Format: profile="<id>", tab="<id>", version="v1.2.0" (RFC 8941 Dictionary).
//
// Examples:
//   - profile="p1"                            → {Profile: p1}
//   - profile="p1", tab="t9", version="v1.0.0" → {Profile: p1, Tab: t9, Version: v1.0.0}
//   - profile=p1;x=1                           → {Profile: p1} (tokens accepted, params ignored)
//
// Returns error if header is empty, malformed, or missing the profile key.
func ParseHeader(header string) (Identity, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Identity{}, errors.New("empty Storefront-Client header")
	}

	dict, err := httpsfv.UnmarshalDictionary([]string{header})
	if err != nil {
		return Identity{}, fmt.Errorf("invalid Storefront-Client header: %w", err)
	}

	profile, err := stringMember(dict, "profile")
	if err != nil {
		return Identity{}, err
	}
	if profile == "" {
		return Identity{}, errors.New("profile key not found in Storefront-Client header")
	}

	tab, err := stringMember(dict, "tab")
	if err != nil {
		return Identity{}, err
	}
	version, err := stringMember(dict, "version")
	if err != nil {
		return Identity{}, err
	}

	id := Identity{Profile: profile, Tab: tab, Version: version}
	if err := id.Validate(); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// stringMember reads a string or token item. Missing keys yield "".
func stringMember(dict *httpsfv.Dictionary, key string) (string, error) {
	member, ok := dict.Get(key)
	if !ok {
		return "", nil
	}

	item, ok := member.(httpsfv.Item)
	if !ok {
		return "", fmt.Errorf("%s value must be an item", key)
	}

	switch v := item.Value.(type) {
	case string:
		return v, nil
	case httpsfv.Token:
		return string(v), nil
	default:
		return "", fmt.Errorf("%s value must be a string", key)
	}
}

// Validate checks the profile and tab ids.
func (id Identity) Validate() error {
	if !profilePattern.MatchString(id.Profile) {
		return fmt.Errorf("invalid profile id %q", id.Profile)
	}
	if id.Tab != "" && !profilePattern.MatchString(id.Tab) {
		return fmt.Errorf("invalid tab id %q", id.Tab)
	}
	return nil
}
