package enums

import "slices"

// ReferenceEntityType names the kind of content that points at a media item.
type ReferenceEntityType string

const (
	ReferenceEntityPost  ReferenceEntityType = "post"
	ReferenceEntityPage  ReferenceEntityType = "page"
	ReferenceEntityVideo ReferenceEntityType = "video"
)

var referenceEntityTypes = []ReferenceEntityType{ReferenceEntityPost, ReferenceEntityPage, ReferenceEntityVideo}

func (r ReferenceEntityType) IsValid() bool { return slices.Contains(referenceEntityTypes, r) }

func ParseReferenceEntityType(value string) (ReferenceEntityType, error) {
	return parseOne("reference entity type", referenceEntityTypes, value)
}
