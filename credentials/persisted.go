package credentials

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrsteele09/go-admin-client/internal/errors"
	"github.com/jrsteele09/go-admin-client/internal/utils"
)

const persistedVersion = 0

// persistedState mirrors the durable JSON layout shared with the browser admin app:
// {"state":{...},"version":0}. Missing values are written as null.
type persistedState struct {
	Token          *string `json:"token"`
	RefreshToken   *string `json:"refreshToken"`
	RequestID      *string `json:"requestId"`
	Role           *string `json:"role"`
	UserID         *string `json:"userId"`
	TokenTimestamp *int64  `json:"tokenTimestamp"`
}

type persistedEnvelope struct {
	State   persistedState `json:"state"`
	Version int            `json:"version"`
}

func encodeRecord(r Record) ([]byte, error) {
	env := persistedEnvelope{
		State: persistedState{
			Token:        utils.PtrOrNil(r.AccessToken),
			RefreshToken: utils.PtrOrNil(r.RefreshToken),
			RequestID:    utils.PtrOrNil(r.RequestID),
			Role:         utils.PtrOrNil(r.Role),
			UserID:       utils.PtrOrNil(r.UserID),
		},
		Version: persistedVersion,
	}
	if !r.IssuedAt.IsZero() {
		env.State.TokenTimestamp = utils.Ptr(r.IssuedAt.UnixMilli())
	}
	return json.Marshal(env)
}

func decodeRecord(data []byte) (Record, error) {
	var env persistedEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Record{}, fmt.Errorf("%w: %v", errors.ErrCorruptCredential, err)
	}
	if env.Version != persistedVersion {
		return Record{}, fmt.Errorf("%w: unsupported version %d", errors.ErrCorruptCredential, env.Version)
	}

	r := Record{
		AccessToken:  utils.Value(env.State.Token),
		RefreshToken: utils.Value(env.State.RefreshToken),
		RequestID:    utils.Value(env.State.RequestID),
		Role:         utils.Value(env.State.Role),
		UserID:       utils.Value(env.State.UserID),
	}
	if env.State.TokenTimestamp != nil {
		r.IssuedAt = time.UnixMilli(*env.State.TokenTimestamp)
	}
	if r.AccessToken != "" && r.IssuedAt.IsZero() {
		return Record{}, fmt.Errorf("%w: token without timestamp", errors.ErrCorruptCredential)
	}
	return r, nil
}
