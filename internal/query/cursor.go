package query

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrBadCursor is returned when a nextToken cannot be decoded. Tokens are
// opaque to clients; anything that does not round-trip through EncodeCursor
// is a client error.
var ErrBadCursor = errors.New("invalid pagination token")

// Cursor is the keyset position after the last record of a page. Pages are
// ordered by (created_at DESC, id DESC), so the next page starts strictly
// before this position.
type Cursor struct {
	CreatedAt time.Time `json:"ca"`
	ID        string    `json:"id"`
}

// EncodeCursor renders the cursor as an opaque nextToken string.
func EncodeCursor(c Cursor) string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor parses a nextToken previously produced by EncodeCursor.
func DecodeCursor(token string) (Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		return Cursor{}, ErrBadCursor
	}
	return c, nil
}
