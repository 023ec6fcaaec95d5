// Package client talks to the hapd admin API.
package client

// ClientInterface is the surface hapctl uses, so commands can be tested
// against a fake.
type ClientInterface interface {
	GetVersion() (map[string]any, error)
	GetStatus() (*Status, error)
	GetAccessories() ([]Accessory, error)
	GetAccessory(aid uint64) (*Accessory, error)
	SetCharacteristic(aid, iid uint64, value any) error
	GetPairings() ([]Pairing, error)
	RemovePairing(id string) error
	GetLogLevel() (string, error)
	SetLogLevel(level string) (string, error)
}

// Status is the daemon's runtime summary.
type Status struct {
	Name          string `json:"name"`
	Paired        bool   `json:"paired"`
	Pairings      int    `json:"pairings"`
	Sessions      int    `json:"sessions"`
	Listeners     int    `json:"listeners"`
	Subscriptions int    `json:"subscriptions"`
	Accessories   int    `json:"accessories"`
	Uptime        string `json:"uptime"`
}

// Characteristic is one value of a service.
type Characteristic struct {
	IID    uint64   `json:"iid"`
	Type   string   `json:"type"`
	Format string   `json:"format"`
	Perms  []string `json:"perms"`
	Value  any      `json:"value,omitempty"`
	Unit   string   `json:"unit,omitempty"`
}

// Service groups characteristics.
type Service struct {
	IID             uint64           `json:"iid"`
	Type            string           `json:"type"`
	Primary         bool             `json:"primary"`
	Characteristics []Characteristic `json:"characteristics"`
}

// Accessory is one entry of the accessory database.
type Accessory struct {
	AID      uint64    `json:"aid"`
	Name     string    `json:"name"`
	Services []Service `json:"services"`
}

// Pairing is a paired controller.
type Pairing struct {
	ID        string `json:"id"`
	PublicKey string `json:"public_key"`
	Admin     bool   `json:"admin"`
}
