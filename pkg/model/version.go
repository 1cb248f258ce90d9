// Package model contains the trained model types, their artifact formats and
// the training routines shared by the global and per-user pipelines.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// LegacyVersion is the version string of the single-score pipeline.
	LegacyVersion = "gbm_v1"

	// schemaV2 is the schema revision of the two-head pipeline.
	schemaV2 = "v2"
)

// Version identifies a two-head model bundle: the global bundle or a
// per-user one. Modeling this as user id + schema revision (rather than bare
// string concatenation) keeps parsing honest when schema revisions change.
type Version struct {
	// UserID owns a per-user bundle; zero means the global bundle.
	UserID uint

	// Schema is the schema revision, currently always "v2".
	Schema string
}

// GlobalVersion returns the identity of the global two-head bundle.
func GlobalVersion() Version {
	return Version{Schema: schemaV2}
}

// UserVersion returns the identity of a user's two-head bundle.
func UserVersion(userID uint) Version {
	return Version{UserID: userID, Schema: schemaV2}
}

// IsGlobal reports whether this is the global bundle identity.
func (v Version) IsGlobal() bool {
	return v.UserID == 0
}

// String renders the canonical version string ("global_v2", "user_42_v2").
func (v Version) String() string {
	if v.IsGlobal() {
		return "global_" + v.Schema
	}

	return fmt.Sprintf("user_%d_%s", v.UserID, v.Schema)
}

// ParseVersion parses a canonical version string back into an identity.
func ParseVersion(s string) (Version, error) {
	if rest, ok := strings.CutPrefix(s, "global_"); ok {
		if rest == "" {
			return Version{}, fmt.Errorf("invalid version %q: missing schema", s)
		}

		return Version{Schema: rest}, nil
	}

	rest, ok := strings.CutPrefix(s, "user_")
	if !ok {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}

	idStr, schema, ok := strings.Cut(rest, "_")
	if !ok || schema == "" {
		return Version{}, fmt.Errorf("invalid version %q: missing schema", s)
	}

	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		return Version{}, fmt.Errorf("invalid version %q: bad user id", s)
	}

	return Version{UserID: uint(id), Schema: schema}, nil
}
