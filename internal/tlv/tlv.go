// Package tlv implements the TLV8 encoding used by the pairing endpoints.
//
// A TLV8 item is a one byte type, a one byte length and up to 255 bytes of
// value. Longer values are split into consecutive items of the same type and
// merged again on decode.
package tlv

import (
	"errors"
	"fmt"
)

// Type is a TLV8 item type.
type Type byte

// Item types used by pairing messages.
const (
	TypeMethod        Type = 0x00
	TypeIdentifier    Type = 0x01
	TypeSalt          Type = 0x02
	TypePublicKey     Type = 0x03
	TypeProof         Type = 0x04
	TypeEncryptedData Type = 0x05
	TypeState         Type = 0x06
	TypeError         Type = 0x07
	TypeRetryDelay    Type = 0x08
	TypeCertificate   Type = 0x09
	TypeSignature     Type = 0x0A
	TypePermissions   Type = 0x0B
	TypeFragmentData  Type = 0x0C
	TypeFragmentLast  Type = 0x0D
	TypeFlags         Type = 0x13
	TypeSeparator     Type = 0xFF
)

// Method values carried in TypeMethod.
const (
	MethodPairSetup         byte = 0x00
	MethodPairSetupWithAuth byte = 0x01
	MethodPairVerify        byte = 0x02
	MethodAddPairing        byte = 0x03
	MethodRemovePairing     byte = 0x04
	MethodListPairings      byte = 0x05
)

// maxFragment is the largest value a single item can carry.
const maxFragment = 255

// ErrTruncated is returned when the input ends inside an item.
var ErrTruncated = errors.New("tlv: truncated item")

// Encodable is anything that renders itself as a TLV8 payload.
type Encodable interface {
	Encode() []byte
}

// Item is a single decoded (and de-fragmented) TLV8 entry.
type Item struct {
	Type  Type
	Value []byte
}

// Container is an ordered list of items.
type Container struct {
	Items []Item
}

// New returns an empty container.
func New() *Container {
	return &Container{}
}

// Decode parses a TLV8 payload. Consecutive items of the same type are merged
// when the preceding fragment was full.
func Decode(b []byte) (*Container, error) {
	c := &Container{}
	lastFull := false
	for len(b) > 0 {
		if len(b) < 2 {
			return nil, fmt.Errorf("%w: %d trailing byte(s)", ErrTruncated, len(b))
		}
		t, n := Type(b[0]), int(b[1])
		if len(b) < 2+n {
			return nil, fmt.Errorf("%w: type 0x%02x wants %d bytes, %d left", ErrTruncated, byte(t), n, len(b)-2)
		}
		v := b[2 : 2+n]
		b = b[2+n:]

		if last := len(c.Items) - 1; last >= 0 && lastFull && c.Items[last].Type == t {
			c.Items[last].Value = append(c.Items[last].Value, v...)
		} else {
			c.Items = append(c.Items, Item{Type: t, Value: append([]byte(nil), v...)})
		}
		lastFull = n == maxFragment
	}
	return c, nil
}

// Encode renders the container, fragmenting values longer than 255 bytes.
func (c *Container) Encode() []byte {
	size := 0
	for _, it := range c.Items {
		size += len(it.Value) + 2*(len(it.Value)/maxFragment+1)
	}
	out := make([]byte, 0, size)
	for _, it := range c.Items {
		v := it.Value
		if len(v) == 0 {
			out = append(out, byte(it.Type), 0)
			continue
		}
		for len(v) > 0 {
			n := min(len(v), maxFragment)
			out = append(out, byte(it.Type), byte(n))
			out = append(out, v[:n]...)
			v = v[n:]
		}
	}
	return out
}

// Append adds an item to the end of the container.
func (c *Container) Append(t Type, v []byte) *Container {
	c.Items = append(c.Items, Item{Type: t, Value: v})
	return c
}

// AppendByte adds a single byte item.
func (c *Container) AppendByte(t Type, v byte) *Container {
	return c.Append(t, []byte{v})
}

// Separator adds an empty separator item between records.
func (c *Container) Separator() *Container {
	return c.Append(TypeSeparator, nil)
}

// Get returns the value of the first item of type t.
func (c *Container) Get(t Type) ([]byte, bool) {
	for _, it := range c.Items {
		if it.Type == t {
			return it.Value, true
		}
	}
	return nil, false
}

// GetByte returns the first byte of the first item of type t.
func (c *Container) GetByte(t Type) (byte, bool) {
	v, ok := c.Get(t)
	if !ok || len(v) == 0 {
		return 0, false
	}
	return v[0], true
}

// Set replaces the first item of type t or appends a new one.
func (c *Container) Set(t Type, v []byte) *Container {
	for i := range c.Items {
		if c.Items[i].Type == t {
			c.Items[i].Value = v
			return c
		}
	}
	return c.Append(t, v)
}

// SetByte replaces the first item of type t with a single byte value.
func (c *Container) SetByte(t Type, v byte) *Container {
	return c.Set(t, []byte{v})
}

// Records splits the container on separator items.
func (c *Container) Records() []*Container {
	var out []*Container
	cur := &Container{}
	for _, it := range c.Items {
		if it.Type == TypeSeparator {
			out = append(out, cur)
			cur = &Container{}
			continue
		}
		cur.Items = append(cur.Items, it)
	}
	return append(out, cur)
}
