package models

// ResourceRequirement is one resource a service needs per booking.
// It is either AnySuitableResource or SpecificResource.
type ResourceRequirement interface {
	isResourceRequirement()
}

// AnySuitableResource is met by any resource of Type with free capacity.
type AnySuitableResource struct {
	Type ResourceType
}

// SpecificResource is met only by the resource with ResourceID.
type SpecificResource struct {
	ResourceID ResourceID
}

func (AnySuitableResource) isResourceRequirement() {}
func (SpecificResource) isResourceRequirement()    {}

func AnyOf(typeName string) AnySuitableResource {
	return AnySuitableResource{Type: NewResourceType(typeName)}
}

func Specific(id ResourceID) SpecificResource {
	return SpecificResource{ResourceID: id}
}

// RequirementKey groups requirements that draw on the same units.
func RequirementKey(req ResourceRequirement) string {
	switch r := req.(type) {
	case AnySuitableResource:
		return "type:" + r.Type.Name
	case SpecificResource:
		return "resource:" + string(r.ResourceID)
	default:
		return "unknown"
	}
}

// DescribeRequirement is a human readable label for diagnostics.
func DescribeRequirement(req ResourceRequirement) string {
	switch r := req.(type) {
	case AnySuitableResource:
		return "any " + r.Type.Name
	case SpecificResource:
		return "resource " + string(r.ResourceID)
	default:
		return "unknown requirement"
	}
}
