package models

// ActionKind is the user action an Activity records.
type ActionKind string

const (
	ActionCheckedIn      ActionKind = "checked_in"
	ActionReviewed       ActionKind = "reviewed"
	ActionRecommended    ActionKind = "recommended"
	ActionPostedHomemade ActionKind = "posted_homemade"
	ActionAddedPlace     ActionKind = "added_place"
	ActionLeveledUp      ActionKind = "leveled_up"
	ActionFollowedUser   ActionKind = "followed_user"
)

// ResourceKind identifies the collection an Activity's target lives in.
type ResourceKind string

const (
	ResourceCheckIn  ResourceKind = "check_in"
	ResourceReview   ResourceKind = "review"
	ResourceHomemade ResourceKind = "homemade"
	ResourcePlace    ResourceKind = "place"
	ResourceUser     ResourceKind = "user"
)

// ResourceKindFor returns the resource kind an action kind must target.
// The mapping is closed: unknown action kinds report false.
func ResourceKindFor(kind ActionKind) (ResourceKind, bool) {
	switch kind {
	case ActionCheckedIn:
		return ResourceCheckIn, true
	case ActionReviewed, ActionRecommended:
		return ResourceReview, true
	case ActionPostedHomemade:
		return ResourceHomemade, true
	case ActionAddedPlace:
		return ResourcePlace, true
	case ActionLeveledUp, ActionFollowedUser:
		return ResourceUser, true
	default:
		return "", false
	}
}

func (k ActionKind) Valid() bool {
	_, ok := ResourceKindFor(k)
	return ok
}

func (k ResourceKind) Valid() bool {
	switch k {
	case ResourceCheckIn, ResourceReview, ResourceHomemade, ResourcePlace, ResourceUser:
		return true
	default:
		return false
	}
}

// Visibility of an activity or its originating resource.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityFollowers Visibility = "followers"
	VisibilityPrivate   Visibility = "private"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityFollowers, VisibilityPrivate:
		return true
	default:
		return false
	}
}

// RewardKind is the action kind recorded on a reward ledger entry.
type RewardKind string

const (
	RewardReview   RewardKind = "review"
	RewardCheckIn  RewardKind = "check_in"
	RewardReaction RewardKind = "reaction"
	RewardComment  RewardKind = "comment"
	RewardHomemade RewardKind = "homemade"
	RewardAddPlace RewardKind = "add_place"
)

// RewardKindFor returns the reward an originating action earns, if any.
func RewardKindFor(kind ActionKind) (RewardKind, bool) {
	switch kind {
	case ActionReviewed:
		return RewardReview, true
	case ActionCheckedIn:
		return RewardCheckIn, true
	case ActionPostedHomemade:
		return RewardHomemade, true
	case ActionAddedPlace:
		return RewardAddPlace, true
	default:
		return "", false
	}
}

// ReactionType is the flavour of a reaction.
type ReactionType string

const (
	ReactionLike ReactionType = "like"
	ReactionLove ReactionType = "love"
	ReactionYum  ReactionType = "yum"
	ReactionWow  ReactionType = "wow"
)

func (t ReactionType) Valid() bool {
	switch t {
	case ReactionLike, ReactionLove, ReactionYum, ReactionWow:
		return true
	default:
		return false
	}
}

// AllResourceKinds lists every resource kind. Resolver tables are checked against it.
func AllResourceKinds() []ResourceKind {
	return []ResourceKind{ResourceCheckIn, ResourceReview, ResourceHomemade, ResourcePlace, ResourceUser}
}

func AllActionKinds() []ActionKind {
	return []ActionKind{
		ActionCheckedIn, ActionReviewed, ActionRecommended, ActionPostedHomemade,
		ActionAddedPlace, ActionLeveledUp, ActionFollowedUser,
	}
}
