package accessory

// Service types (short form).
const (
	ServiceAccessoryInformation = "3E"
	ServiceProtocolInformation  = "A2"
	ServiceLightbulb            = "43"
	ServiceSwitch               = "49"
	ServiceOutlet               = "47"
	ServiceTemperatureSensor    = "8A"
)

// Characteristic types (short form).
const (
	CharIdentify           = "14"
	CharManufacturer       = "20"
	CharModel              = "21"
	CharName               = "23"
	CharSerialNumber       = "30"
	CharFirmwareRevision   = "52"
	CharVersion            = "37"
	CharOn                 = "25"
	CharBrightness         = "8"
	CharCurrentTemperature = "11"
	CharOutletInUse        = "26"
)

// ProtocolVersion is reported by the protocol information service.
const ProtocolVersion = "1.1.0"

// Info describes an accessory for its information service.
type Info struct {
	Name         string `yaml:"name"`
	Manufacturer string `yaml:"manufacturer"`
	Model        string `yaml:"model"`
	SerialNumber string `yaml:"serial_number"`
	Firmware     string `yaml:"firmware"`
}

func readOnlyString(iid uint64, typ, value string) *Characteristic {
	return &Characteristic{IID: iid, Type: typ, Format: FormatString, Perms: []Perm{PermPairedRead}, Value: value}
}

// InformationService builds the mandatory accessory information service
// starting at instance id 1. It uses iids 1..7.
func InformationService(info Info) *Service {
	return &Service{
		IID:  1,
		Type: ServiceAccessoryInformation,
		Characteristics: []*Characteristic{
			{IID: 2, Type: CharIdentify, Format: FormatBool, Perms: []Perm{PermPairedWrite}},
			readOnlyString(3, CharManufacturer, info.Manufacturer),
			readOnlyString(4, CharModel, info.Model),
			readOnlyString(5, CharName, info.Name),
			readOnlyString(6, CharSerialNumber, info.SerialNumber),
			readOnlyString(7, CharFirmwareRevision, info.Firmware),
		},
	}
}

// NewBridge returns accessory 1 with the information and protocol services.
func NewBridge(info Info) *Accessory {
	return &Accessory{
		AID: 1,
		Services: []*Service{
			InformationService(info),
			{
				IID:  8,
				Type: ServiceProtocolInformation,
				Characteristics: []*Characteristic{
					readOnlyString(9, CharVersion, ProtocolVersion),
				},
			},
		},
	}
}
