package domain

import (
	"fmt"
	"time"
)

// Session represents one authenticated (shop, optionally user) pairing
// produced by a completed OAuth handshake.
//
// Exactly one offline session exists per shop at a time: its ID is derived
// from the shop alone, so a reinstall overwrites it. Online sessions are
// keyed by shop and user and carry an expiry.
type Session struct {
	ID           string     `json:"id" bson:"_id"`
	Shop         string     `json:"shop" bson:"shop"`
	IsOnline     bool       `json:"is_online" bson:"is_online"`
	AccessToken  string     `json:"access_token" bson:"access_token"`
	Scopes       []string   `json:"scopes" bson:"scopes"`
	Expires      *time.Time `json:"expires,omitempty" bson:"expires,omitempty"`
	OnlineUserID int64      `json:"online_user_id,omitempty" bson:"online_user_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at" bson:"created_at"`
}

// SessionID derives the deterministic session identifier for a shop.
// Offline sessions use "offline_{shop}"; online sessions "{shop}_{userID}".
func SessionID(shop string, isOnline bool, userID int64) string {
	if isOnline {
		return fmt.Sprintf("%s_%d", shop, userID)
	}
	return "offline_" + shop
}

// NewSession builds a session for a completed handshake. Online sessions
// get an expiry; offline sessions are long-lived.
func NewSession(shop string, isOnline bool, userID int64, accessToken string, scopes []string, expiresIn time.Duration) *Session {
	s := &Session{
		ID:          SessionID(shop, isOnline, userID),
		Shop:        shop,
		IsOnline:    isOnline,
		AccessToken: accessToken,
		Scopes:      scopes,
		CreatedAt:   time.Now(),
	}
	if isOnline {
		s.OnlineUserID = userID
		if expiresIn > 0 {
			expires := s.CreatedAt.Add(expiresIn)
			s.Expires = &expires
		}
	}
	return s
}

// Expired reports whether the session has expired at the given instant.
// Offline sessions never expire.
func (s *Session) Expired(now time.Time) bool {
	return s.Expires != nil && now.After(*s.Expires)
}
