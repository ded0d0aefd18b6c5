package models

// ResourceKind identifies a billable generation action.
type ResourceKind string

// ResourceKind constants define the billable action categories.
const (
	// ResourceScript is a marketing script generation.
	ResourceScript ResourceKind = "script"
	// ResourceImage is an image generation.
	ResourceImage ResourceKind = "image"
	// ResourceVideo is a video generation.
	ResourceVideo ResourceKind = "video"
	// ResourceDescription is a product description generation.
	ResourceDescription ResourceKind = "description"
)

// AllResourceKinds lists every billable resource kind.
func AllResourceKinds() []ResourceKind {
	return []ResourceKind{ResourceScript, ResourceImage, ResourceVideo, ResourceDescription}
}

// Valid reports whether the resource kind is one of the known categories.
func (k ResourceKind) Valid() bool {
	switch k {
	case ResourceScript, ResourceImage, ResourceVideo, ResourceDescription:
		return true
	default:
		return false
	}
}
