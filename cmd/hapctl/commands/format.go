package commands

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/jmylchreest/hapd/pkg/client"
)

// serviceNames maps the short service types hapd serves to display names.
var serviceNames = map[string]string{
	"3E": "Accessory Information",
	"A2": "Protocol Information",
	"43": "Lightbulb",
	"49": "Switch",
	"47": "Outlet",
	"8A": "Temperature Sensor",
}

func serviceName(typ string) string {
	if name, ok := serviceNames[typ]; ok {
		return name
	}
	return typ
}

func formatValue(v any) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%v", v)
}

// AccessoryTableData returns one row per characteristic of a.
func AccessoryTableData(a client.Accessory) pterm.TableData {
	data := pterm.TableData{
		[]string{pterm.Bold.Sprint("IID"), pterm.Bold.Sprint("Service"), pterm.Bold.Sprint("Type"), pterm.Bold.Sprint("Format"), pterm.Bold.Sprint("Perms"), pterm.Bold.Sprint("Value")},
	}
	for _, s := range a.Services {
		for _, c := range s.Characteristics {
			value := formatValue(c.Value)
			if c.Unit != "" && c.Value != nil {
				value += " " + c.Unit
			}
			data = append(data, []string{
				fmt.Sprintf("%d", c.IID),
				serviceName(s.Type),
				c.Type,
				c.Format,
				strings.Join(c.Perms, ","),
				value,
			})
		}
	}
	return data
}

// CharacteristicParseable returns one key=value line for a characteristic.
func CharacteristicParseable(aid uint64, c client.Characteristic) string {
	value := c.Value
	if s, ok := value.(string); ok {
		value = fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("aid=%d iid=%d type=\"%s\" format=\"%s\" perms=\"%s\" value=%s",
		aid, c.IID, c.Type, c.Format, strings.Join(c.Perms, ","), formatValue(value))
}

// PairingParseable returns the parseable key=value string for a pairing.
func PairingParseable(p client.Pairing) string {
	return fmt.Sprintf("id=\"%s\" admin=%t public_key=\"%s\"", p.ID, p.Admin, p.PublicKey)
}
