package models

// Relationship is the caller's follow status towards another user.
type Relationship string

const (
	RelationshipNotFollowing Relationship = "not-following"
	RelationshipFollowing    Relationship = "following"
	RelationshipPending      Relationship = "pending"
)

func (r Relationship) IsValid() bool {
	switch r {
	case RelationshipNotFollowing, RelationshipFollowing, RelationshipPending:
		return true
	}
	return false
}

// DeriveRelationship computes the relationship from the authoritative profile
// fields. is_following wins over request_sent.
func DeriveRelationship(p Profile) Relationship {
	if p.IsFollowing != nil && *p.IsFollowing {
		return RelationshipFollowing
	}
	if p.RequestSent != nil && *p.RequestSent {
		return RelationshipPending
	}
	return RelationshipNotFollowing
}

// ActionLabel is the button text a front end shows for the relationship.
func (r Relationship) ActionLabel(targetPrivate bool) string {
	switch r {
	case RelationshipFollowing:
		return "Following"
	case RelationshipPending:
		return "Requested"
	}
	if targetPrivate {
		return "Request"
	}
	return "Follow"
}
