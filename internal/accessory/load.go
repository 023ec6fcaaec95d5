package accessory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML layout of an accessory definition file.
type File struct {
	Accessories []Definition `yaml:"accessories"`
}

// Definition describes one bridged accessory. The information service is
// generated from the embedded Info; instance ids left at zero are assigned
// in document order after it.
type Definition struct {
	AID      uint64     `yaml:"aid"`
	Info     Info       `yaml:",inline"`
	Services []*Service `yaml:"services"`
}

// LoadFile reads accessory definitions from a YAML file.
func LoadFile(path string) ([]*Accessory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading accessory file: %w", err)
	}
	return Parse(data)
}

// Parse builds accessories from YAML definitions.
func Parse(data []byte) ([]*Accessory, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing accessory file: %w", err)
	}

	out := make([]*Accessory, 0, len(f.Accessories))
	for i, def := range f.Accessories {
		if def.AID < 2 {
			return nil, fmt.Errorf("accessory %d: aid must be 2 or higher, 1 is the bridge", i)
		}
		if def.Info.Name == "" {
			return nil, fmt.Errorf("accessory %d: name is required", def.AID)
		}
		a := &Accessory{AID: def.AID, Services: []*Service{InformationService(def.Info)}}

		next := uint64(8)
		for _, s := range def.Services {
			if s.IID == 0 {
				s.IID = next
			}
			next = max(next, s.IID) + 1
			for _, c := range s.Characteristics {
				if c.IID == 0 {
					c.IID = next
				}
				next = max(next, c.IID) + 1
				if c.Format == "" {
					return nil, fmt.Errorf("accessory %d characteristic %s: format is required", def.AID, c.Type)
				}
			}
			a.Services = append(a.Services, s)
		}
		out = append(out, a)
	}
	return out, nil
}
