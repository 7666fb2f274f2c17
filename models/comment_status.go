package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// CommentStatus is the moderation state of a comment. The zero value is invalid so an
// unset status can never be persisted by accident.
type CommentStatus uint8

const (
	CommentPending CommentStatus = iota + 1
	CommentApproved
	CommentRejected
)

var commentStatusNames = map[CommentStatus]string{
	CommentPending:  "PENDING",
	CommentApproved: "APPROVED",
	CommentRejected: "REJECTED",
}

// ParseCommentStatus converts the wire form into a CommentStatus.
func ParseCommentStatus(s string) (CommentStatus, error) {
	for status, name := range commentStatusNames {
		if name == s {
			return status, nil
		}
	}
	return 0, fmt.Errorf("invalid comment status %q", s)
}

func (s CommentStatus) String() string {
	if name, ok := commentStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("CommentStatus(%d)", uint8(s))
}

// Valid reports whether s is one of the three known states.
func (s CommentStatus) Valid() bool {
	_, ok := commentStatusNames[s]
	return ok
}

// CanTransitionTo reports whether an administrator may move a comment from s to next.
// Comments leave PENDING exactly once and never return to it.
func (s CommentStatus) CanTransitionTo(next CommentStatus) bool {
	if !s.Valid() {
		return false
	}
	return next == CommentApproved || next == CommentRejected
}

func (s CommentStatus) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", s)
	}
	return json.Marshal(s.String())
}

func (s *CommentStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := ParseCommentStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value stores the status as its string name.
func (s CommentStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot store %s", s)
	}
	return s.String(), nil
}

func (s *CommentStatus) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into CommentStatus", src)
	}
	parsed, err := ParseCommentStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
