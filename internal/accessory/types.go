// Package accessory holds the live accessory/service/characteristic tree
// exposed to controllers.
package accessory

import (
	"encoding/json"
	"slices"
)

// Format is a characteristic value format.
type Format string

const (
	FormatBool   Format = "bool"
	FormatUInt8  Format = "uint8"
	FormatUInt16 Format = "uint16"
	FormatUInt32 Format = "uint32"
	FormatUInt64 Format = "uint64"
	FormatInt    Format = "int"
	FormatFloat  Format = "float"
	FormatString Format = "string"
	FormatTLV8   Format = "tlv8"
	FormatData   Format = "data"
)

// Perm is a characteristic permission.
type Perm string

const (
	PermPairedRead    Perm = "pr"
	PermPairedWrite   Perm = "pw"
	PermEvents        Perm = "ev"
	PermAdditional    Perm = "aa"
	PermTimedWrite    Perm = "tw"
	PermHidden        Perm = "hd"
	PermWriteResponse Perm = "wr"
)

// Characteristic is a single value on a service.
type Characteristic struct {
	IID         uint64   `json:"iid" yaml:"iid"`
	Type        string   `json:"type" yaml:"type"`
	Format      Format   `json:"format" yaml:"format"`
	Perms       []Perm   `json:"perms" yaml:"perms"`
	Value       any      `json:"value,omitempty" yaml:"value"`
	Unit        string   `json:"unit,omitempty" yaml:"unit"`
	MinValue    *float64 `json:"minValue,omitempty" yaml:"min_value"`
	MaxValue    *float64 `json:"maxValue,omitempty" yaml:"max_value"`
	MinStep     *float64 `json:"minStep,omitempty" yaml:"min_step"`
	MaxLen      *int     `json:"maxLen,omitempty" yaml:"max_len"`
	Description string   `json:"description,omitempty" yaml:"description"`
}

// Has reports whether the characteristic carries perm.
func (c *Characteristic) Has(perm Perm) bool {
	return slices.Contains(c.Perms, perm)
}

// Readable reports whether paired controllers may read the value.
func (c *Characteristic) Readable() bool { return c.Has(PermPairedRead) }

// Writable reports whether paired controllers may write the value.
func (c *Characteristic) Writable() bool { return c.Has(PermPairedWrite) }

// SupportsEvents reports whether controllers may subscribe to changes.
func (c *Characteristic) SupportsEvents() bool { return c.Has(PermEvents) }

// MarshalJSON renders the HAP form; the value is omitted for characteristics
// that cannot be read.
func (c *Characteristic) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		"iid":    c.IID,
		"type":   c.Type,
		"format": c.Format,
		"perms":  c.Perms,
	}
	if c.Readable() {
		m["value"] = c.Value
	}
	addMeta(m, c)
	return json.Marshal(m)
}

func addMeta(m map[string]any, c *Characteristic) {
	if c.Unit != "" {
		m["unit"] = c.Unit
	}
	if c.MinValue != nil {
		m["minValue"] = *c.MinValue
	}
	if c.MaxValue != nil {
		m["maxValue"] = *c.MaxValue
	}
	if c.MinStep != nil {
		m["minStep"] = *c.MinStep
	}
	if c.MaxLen != nil {
		m["maxLen"] = *c.MaxLen
	}
	if c.Description != "" {
		m["description"] = c.Description
	}
}

func (c *Characteristic) clone() *Characteristic {
	cp := *c
	cp.Perms = slices.Clone(c.Perms)
	return &cp
}

// Service groups characteristics.
type Service struct {
	IID             uint64            `json:"iid" yaml:"iid"`
	Type            string            `json:"type" yaml:"type"`
	Primary         bool              `json:"primary" yaml:"primary"`
	Hidden          bool              `json:"hidden" yaml:"hidden"`
	Characteristics []*Characteristic `json:"characteristics" yaml:"characteristics"`
}

// Accessory is one addressable device; a bridge is accessory 1.
type Accessory struct {
	AID      uint64     `json:"aid" yaml:"aid"`
	Services []*Service `json:"services" yaml:"services"`
}

// Characteristic finds a characteristic by instance id.
func (a *Accessory) Characteristic(iid uint64) (*Characteristic, bool) {
	for _, s := range a.Services {
		for _, c := range s.Characteristics {
			if c.IID == iid {
				return c, true
			}
		}
	}
	return nil, false
}

// Name returns the value of the Name characteristic in the accessory
// information service.
func (a *Accessory) Name() string {
	for _, s := range a.Services {
		if s.Type != ServiceAccessoryInformation {
			continue
		}
		for _, c := range s.Characteristics {
			if c.Type == CharName {
				name, _ := c.Value.(string)
				return name
			}
		}
	}
	return ""
}

func (a *Accessory) clone() *Accessory {
	cp := &Accessory{AID: a.AID, Services: make([]*Service, len(a.Services))}
	for i, s := range a.Services {
		sc := *s
		sc.Characteristics = make([]*Characteristic, len(s.Characteristics))
		for j, c := range s.Characteristics {
			sc.Characteristics[j] = c.clone()
		}
		cp.Services[i] = &sc
	}
	return cp
}

// CharacteristicID addresses a characteristic as "aid.iid".
type CharacteristicID struct {
	AID uint64 `json:"aid"`
	IID uint64 `json:"iid"`
}
