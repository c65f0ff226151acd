package listsync

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// permission of the current viewer on one list
// `owner` is the synthesis of `permission=edit` plus `is_owner=true`
// from the permission lookup. Shares are never granted `owner`.
type Permission string

const (
	PermissionView  Permission = "view"
	PermissionEdit  Permission = "edit"
	PermissionOwner Permission = "owner"
)

func (self Permission) CanEditItems() bool {
	return self == PermissionEdit || self == PermissionOwner
}

// the share endpoints accept only view and edit
func (self Permission) Shareable() bool {
	return self == PermissionView || self == PermissionEdit
}

// a single list entry as returned by the items endpoints.
// `Created` is the server-side creation timestamp. The server id is
// authoritative and unique within a list.
type Item struct {
	ItemId    int64     `json:"id"`
	ListId    int64     `json:"todo_list"`
	Body      string    `json:"body"`
	Completed bool      `json:"completed"`
	Created   time.Time `json:"created,omitempty"`
	Updated   time.Time `json:"updated,omitempty"`
}

type List struct {
	ListId int64  `json:"id,omitempty"`
	Title  string `json:"title"`
	Owner  int64  `json:"owner,omitempty"`
}

// a grant of view/edit access to one list for one other user.
// the shared-with names are populated server side and read only.
type Share struct {
	ShareId             int64      `json:"id"`
	ListId              int64      `json:"todo_list"`
	SharedWithEmail     string     `json:"shared_with_email,omitempty"`
	SharedWithFirstName string     `json:"shared_with_first_name,omitempty"`
	SharedWithLastName  string     `json:"shared_with_last_name,omitempty"`
	Permission          Permission `json:"permission"`
}

// comparable
type Id [16]byte

func NewId() Id {
	return Id(ulid.Make())
}

func IdFromBytes(idBytes []byte) (Id, error) {
	if len(idBytes) != 16 {
		return Id{}, errors.New("Id must be 16 bytes")
	}
	return Id(idBytes), nil
}

func ParseId(idStr string) (Id, error) {
	return parseUuid(idStr)
}

func (self Id) Bytes() []byte {
	return self[0:16]
}

func (self Id) String() string {
	return encodeUuid(self)
}

func (self *Id) MarshalJSON() ([]byte, error) {
	var buf [16]byte
	copy(buf[0:16], self[0:16])
	var buff bytes.Buffer
	buff.WriteByte('"')
	buff.WriteString(encodeUuid(buf))
	buff.WriteByte('"')
	return buff.Bytes(), nil
}

func (self *Id) UnmarshalJSON(src []byte) error {
	if len(src) != 38 {
		return fmt.Errorf("invalid length for UUID: %v", len(src))
	}
	buf, err := parseUuid(string(src[1 : len(src)-1]))
	if err != nil {
		return err
	}
	*self = buf
	return nil
}

func parseUuid(src string) (dst [16]byte, err error) {
	switch len(src) {
	case 36:
		src = src[0:8] + src[9:13] + src[14:18] + src[19:23] + src[24:]
	case 32:
		// dashes already stripped, assume valid
	default:
		// assume invalid.
		return dst, fmt.Errorf("cannot parse UUID %v", src)
	}

	buf, err := hex.DecodeString(src)
	if err != nil {
		return dst, err
	}

	copy(dst[:], buf)
	return dst, err
}

func encodeUuid(src [16]byte) string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", src[0:4], src[4:6], src[6:8], src[8:10], src[10:16])
}
