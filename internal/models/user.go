package models

// User is an account as the backend serializes it, flattened so the nested
// profile fields live on the user itself.
type User struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email,omitempty"`
	FullName   string `json:"full_name,omitempty"`
	Bio        string `json:"bio,omitempty"`
	ProfilePic string `json:"profile_pic,omitempty"`
	IsPrivate  bool   `json:"is_private"`
}

// DisplayName prefers the full name and falls back to the username.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// Profile is a user plus the counters and the caller's relationship fields.
// IsFollowing and RequestSent are nil when the backend omitted them.
type Profile struct {
	User
	PostsCount     int   `json:"posts_count"`
	FollowersCount int   `json:"followers_count"`
	FollowingCount int   `json:"following_count"`
	IsFollowing    *bool `json:"is_following,omitempty"`
	RequestSent    *bool `json:"request_sent,omitempty"`
}

type LoginParams struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type SignupParams struct {
	Username string `json:"username" validate:"required,max=150,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name,omitempty" validate:"max=100"`
}

// ProfileUpdate carries the self-profile fields; nil means unchanged.
type ProfileUpdate struct {
	FullName  *string `json:"full_name,omitempty" validate:"omitempty,max=100"`
	Bio       *string `json:"bio,omitempty" validate:"omitempty,max=500"`
	IsPrivate *bool   `json:"is_private,omitempty"`
}

func (u ProfileUpdate) IsEmpty() bool {
	return u.FullName == nil && u.Bio == nil && u.IsPrivate == nil
}

type AuthResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	User      User   `json:"user"`
}
