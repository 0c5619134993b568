package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any cursor query can request.
	MaxLimit = 100
)

// ErrInvalidCursor is returned for cursors that fail to decode.
var ErrInvalidCursor = errors.New("invalid cursor")

// Params holds cursor pagination inputs from controllers or services.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor represents the pagination cursor components.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// LimitWithBuffer returns the normalization result plus one to detect the next page.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// EncodeCursor builds a base64 cursor string from the provided values.
func EncodeCursor(cursor Cursor) string {
	payload := fmt.Sprintf("%s|%s", cursor.CreatedAt.UTC().Format(time.RFC3339Nano), cursor.ID.String())
	return base64.StdEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes the cursor string back into its components.
func ParseCursor(value string) (*Cursor, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrInvalidCursor, err)
	}
	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: format", ErrInvalidCursor)
	}

	t, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %w", ErrInvalidCursor, err)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: id: %w", ErrInvalidCursor, err)
	}
	return &Cursor{
		CreatedAt: t,
		ID:        id,
	}, nil
}

// RankedCursor extends Cursor with a leading integer sort key, used by
// listings ordered by a flag (such as verified) before recency.
type RankedCursor struct {
	Rank int
	Cursor
}

// EncodeRankedCursor serializes the rank ahead of the created/id pair.
func EncodeRankedCursor(cursor RankedCursor) string {
	payload := fmt.Sprintf("%d|%s|%s", cursor.Rank, cursor.CreatedAt.UTC().Format(time.RFC3339Nano), cursor.ID.String())
	return base64.StdEncoding.EncodeToString([]byte(payload))
}

// ParseRankedCursor accepts both ranked cursors and plain two-part cursors,
// which decode with a zero rank.
func ParseRankedCursor(value string) (*RankedCursor, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrInvalidCursor, err)
	}
	parts := strings.Split(string(decoded), "|")
	switch len(parts) {
	case 2:
		plain, err := ParseCursor(value)
		if err != nil {
			return nil, err
		}
		return &RankedCursor{Cursor: *plain}, nil
	case 3:
	default:
		return nil, fmt.Errorf("%w: format", ErrInvalidCursor)
	}

	rank, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: rank: %w", ErrInvalidCursor, err)
	}
	t, err := time.Parse(time.RFC3339Nano, parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %w", ErrInvalidCursor, err)
	}
	id, err := uuid.Parse(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: id: %w", ErrInvalidCursor, err)
	}
	return &RankedCursor{Rank: rank, Cursor: Cursor{CreatedAt: t, ID: id}}, nil
}
