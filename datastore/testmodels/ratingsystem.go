package testmodels

import (
	"github.com/go-openapi/strfmt"

	"github.com/suparena/entitysync"
)

type RatingSystem struct {

	// Timestamp when the rating system was created.
	// Format: date-time
	CreatedAt *strfmt.DateTime `json:"CreatedAt,omitempty" dynamodbav:"CreatedAt,omitempty"`

	// A description of the rating system.
	Description *string `json:"Description,omitempty" dynamodbav:"Description,omitempty"`

	// Unique identifier for the rating system.
	// Required: true
	ID *string `json:"Id" dynamodbav:"Id"`

	// Name of the rating system.
	Name *string `json:"Name,omitempty" dynamodbav:"Name,omitempty"`

	// Number of rated players.
	Players *int64 `json:"Players,omitempty" dynamodbav:"Players,omitempty"`

	// site Url
	SiteURL string `json:"SiteUrl,omitempty" dynamodbav:"SiteUrl,omitempty"`

	// Timestamp when the rating system was last updated.
	// Format: date-time
	UpdatedAt *strfmt.DateTime `json:"UpdatedAt,omitempty" dynamodbav:"UpdatedAt,omitempty"`
}

// RatingSystemID returns the identifier, or "" when unset.
func RatingSystemID(r RatingSystem) string {
	if r.ID == nil {
		return ""
	}
	return *r.ID
}

// SetRatingSystemID assigns the identifier.
func SetRatingSystemID(r *RatingSystem, id string) error {
	r.ID = &id
	return nil
}

// RatingSystemFields lists the updatable fields of RatingSystem.
func RatingSystemFields() []entitysync.Field[RatingSystem] {
	return []entitysync.Field[RatingSystem]{
		entitysync.PointerField("CreatedAt", func(r *RatingSystem) **strfmt.DateTime { return &r.CreatedAt }),
		entitysync.PointerField("Description", func(r *RatingSystem) **string { return &r.Description }),
		entitysync.PointerField("Name", func(r *RatingSystem) **string { return &r.Name }),
		entitysync.PointerField("Players", func(r *RatingSystem) **int64 { return &r.Players }),
		entitysync.ValueField("SiteUrl", func(r *RatingSystem) *string { return &r.SiteURL }),
		entitysync.PointerField("UpdatedAt", func(r *RatingSystem) **strfmt.DateTime { return &r.UpdatedAt }),
	}
}

// RatingSystemDescriptor describes RatingSystem for an entitysync service.
func RatingSystemDescriptor() entitysync.Descriptor[string, RatingSystem] {
	return entitysync.Descriptor[string, RatingSystem]{
		EntityType: "RatingSystem",
		Schema:     "ratings",
		Table:      "rating_systems",
		GetID:      RatingSystemID,
		SetID:      SetRatingSystemID,
		Fields:     RatingSystemFields(),
	}
}

// MergeRatingSystem applies the set fields of patch to dst.
func MergeRatingSystem(dst *RatingSystem, patch RatingSystem) {
	for _, f := range RatingSystemFields() {
		if _, ok := f.Get(patch); ok {
			f.Set(dst, patch)
		}
	}
}
