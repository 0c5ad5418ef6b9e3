package refresh

import (
	"time"
)

// StoredRefreshToken is the backend's record of an issued refresh token. The client only ever
// sees Token.
type StoredRefreshToken struct {
	Token  string
	UserID string
	Iat    time.Time
}

// Repo stores refresh tokens keyed by the opaque token string.
type Repo interface {
	Upsert(refreshToken *StoredRefreshToken) error
	Delete(token string) error
	DeleteByUserID(userID string) error
	Get(token string) (*StoredRefreshToken, error)
	List() ([]*StoredRefreshToken, error)
}
