package modem

import (
	"strconv"
	"strings"

	"github.com/transitlab/bustrack/at"
)

// Derived read-only queries. Each issues one command and parses a
// fixed field layout; a layout mismatch is a ParseError, distinct from
// transport and device errors.

// Battery is the device battery state from AT+CBC.
type Battery struct {
	// ChargeState is a human-readable charging state.
	ChargeState string
	// Level is the charge level, e.g. "93%".
	Level string
	// Voltage is the battery voltage, e.g. "3.964V".
	Voltage string
}

var chargeStates = map[int]string{
	0: "Not charging",
	1: "Charging",
	2: "Finished charging",
}

// BatteryStatus queries the battery charge state, level and voltage.
func (m *Modem) BatteryStatus() (Battery, error) {
	cmd := at.BatteryCharge()
	resp, err := m.channel.Execute(cmd)
	if err != nil {
		return Battery{}, err
	}

	// +CBC: <charging>,<level>,<millivolts>
	_, values, found := strings.Cut(resp, ":")
	fields := strings.Split(values, ",")
	if !found || len(fields) != 3 {
		return Battery{}, &ParseError{Command: cmd.Text, Response: resp}
	}

	charging, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return Battery{}, &ParseError{Command: cmd.Text, Response: resp}
	}
	millivolts, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return Battery{}, &ParseError{Command: cmd.Text, Response: resp}
	}

	state, ok := chargeStates[charging]
	if !ok {
		state = "Power fault"
	}
	return Battery{
		ChargeState: state,
		Level:       strings.TrimSpace(fields[1]) + "%",
		Voltage:     strconv.FormatFloat(float64(millivolts)/1000, 'g', -1, 64) + "V",
	}, nil
}

// Signal is a signal quality report from AT+CSQ.
type Signal struct {
	// RSSIPercent is the received signal strength scaled to percent of
	// the maximum reportable value, or 99 for "not known".
	RSSIPercent float64
	// BER is the bit error rate band, e.g. "0.2% < BER < 0.4%".
	BER string
}

var berBands = map[int]string{
	0: "BER < 0.2%",
	1: "0.2% < BER < 0.4%",
	2: "0.4% < BER < 0.8%",
	3: "0.8% < BER < 1.6%",
	4: "1.6% < BER < 3.2%",
	5: "3.2% < BER < 6.4%",
	6: "6.4% < BER < 12.8%",
	7: "12.8% < BER",
}

// SignalQuality queries the received signal strength and bit error
// rate.
func (m *Modem) SignalQuality() (Signal, error) {
	cmd := at.SignalQuality()
	resp, err := m.channel.Execute(cmd)
	if err != nil {
		return Signal{}, err
	}

	// +CSQ: <rssi>,<ber>
	_, values, found := strings.Cut(resp, ":")
	fields := strings.Split(values, ",")
	if !found || len(fields) != 2 {
		return Signal{}, &ParseError{Command: cmd.Text, Response: resp}
	}

	rawRSSI := strings.TrimSpace(fields[0])
	rssi, err := strconv.ParseFloat(rawRSSI, 64)
	if err != nil {
		return Signal{}, &ParseError{Command: cmd.Text, Response: resp}
	}
	rxQual, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return Signal{}, &ParseError{Command: cmd.Text, Response: resp}
	}

	// 30 is the maximum reportable RSSI; 99 means not known.
	percent := float64(99)
	if rawRSSI != "99" {
		percent = rssi * 100 / 30
	}
	ber, ok := berBands[rxQual]
	if !ok {
		ber = "99"
	}
	return Signal{RSSIPercent: percent, BER: ber}, nil
}

// Registration is the network registration state from AT+CREG?.
type Registration struct {
	// Registered is true for home network and roaming.
	Registered bool
	// Status is the raw registration status code.
	Status int
	// StatusText describes the status code.
	StatusText string
}

var registrationStates = map[int]string{
	0: "not registered, not searching",
	1: "registered, home network",
	2: "not registered, searching",
	3: "registration denied",
	4: "unknown",
	5: "registered, roaming",
}

// NetworkRegistration queries the network registration status.
func (m *Modem) NetworkRegistration() (Registration, error) {
	cmd := at.NetworkRegistration()
	resp, err := m.channel.Execute(cmd)
	if err != nil {
		return Registration{}, err
	}

	// +CREG: <n>,<stat>
	_, values, found := strings.Cut(resp, ":")
	fields := strings.Split(values, ",")
	if !found || len(fields) < 2 {
		return Registration{}, &ParseError{Command: cmd.Text, Response: resp}
	}
	stat, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return Registration{}, &ParseError{Command: cmd.Text, Response: resp}
	}

	text, ok := registrationStates[stat]
	if !ok {
		text = "unknown"
	}
	return Registration{
		Registered: stat == 1 || stat == 5,
		Status:     stat,
		StatusText: text,
	}, nil
}

// SIMInserted queries whether a SIM card is present.
func (m *Modem) SIMInserted() (bool, error) {
	cmd := at.SIMInserted()
	resp, err := m.channel.Execute(cmd)
	if err != nil {
		return false, err
	}

	// +CSMINS: <n>,<inserted>
	_, values, found := strings.Cut(resp, ":")
	fields := strings.Split(values, ",")
	if !found || len(fields) != 2 {
		return false, &ParseError{Command: cmd.Text, Response: resp}
	}
	return strings.TrimSpace(fields[1]) == "1", nil
}

// FirmwareRevision queries the device's software release
// identification.
func (m *Modem) FirmwareRevision() (string, error) {
	resp, err := m.channel.Execute(at.FirmwareRevision())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}

// Network is one operator from a network scan.
type Network struct {
	Name      string
	ShortName string
	ID        string
}

// ScanOperators scans for available operators. Slow: the device may
// take most of a minute.
func (m *Modem) ScanOperators() ([]Network, error) {
	cmd := at.ScanOperators()
	resp, err := m.channel.Execute(cmd)
	if err != nil {
		return nil, err
	}

	// +COPS: (2,"voda NL","voda","20404"),(1,"NL KPN","KPN","20408"),...
	i := strings.Index(resp, "(")
	if i < 0 {
		return nil, &ParseError{Command: cmd.Text, Response: resp}
	}

	var networks []Network
	for _, piece := range strings.Split(resp[i+1:], ")") {
		piece = strings.ReplaceAll(piece, ",(", "")
		fields := strings.Split(piece, ",")
		if len(fields) != 4 {
			continue
		}
		networks = append(networks, Network{
			Name:      trimQuotes(fields[1]),
			ShortName: trimQuotes(fields[2]),
			ID:        trimQuotes(fields[3]),
		})
	}
	return networks, nil
}

// CurrentOperator returns the currently selected operator name, or ""
// when the device reports none.
func (m *Modem) CurrentOperator() (string, error) {
	resp, err := m.channel.Execute(at.CurrentOperator())
	if err != nil {
		return "", err
	}

	// +COPS: 0,0,"voda NL", or just "+COPS: 0" with no operator.
	fields := strings.Split(resp, ",")
	network := trimQuotes(fields[len(fields)-1])
	if strings.HasPrefix(network, "+COPS") {
		return "", nil
	}
	return network, nil
}

// ServiceProviderName reads the provider name stored on the SIM.
func (m *Modem) ServiceProviderName() (string, error) {
	cmd := at.ServiceProviderName()
	resp, err := m.channel.Execute(cmd)
	if err != nil {
		return "", err
	}

	// +CSPN: "Vodafone",0
	_, values, found := strings.Cut(resp, ":")
	if !found {
		return "", &ParseError{Command: cmd.Text, Response: resp}
	}
	fields := strings.Split(values, ",")
	return trimQuotes(strings.TrimSpace(fields[0])), nil
}

// Cell is one tower from a cell scan.
type Cell struct {
	// Operator is the network operator name.
	Operator string
	// MCC and MNC identify the network.
	MCC string
	MNC string
	// RxLevel is the received signal level in dBm steps.
	RxLevel int
	// CellID is the tower's cell identifier (hex, as reported).
	CellID string
}

// CellScan scans nearby cell towers. The scan takes tens of seconds
// and returns one line per tower.
func (m *Modem) CellScan() ([]Cell, error) {
	cmd := at.CellScan()
	resp, err := m.channel.Execute(cmd)
	if err != nil {
		return nil, err
	}

	// Operator:"voda NL",MCC:204,MNC:04,Rxlev:42,Cellid:69A5,Arfcn:108
	var cells []Cell
	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		values := make(map[string]string)
		for _, field := range strings.Split(line, ",") {
			key, value, found := strings.Cut(field, ":")
			if !found {
				return nil, &ParseError{Command: cmd.Text, Response: resp}
			}
			values[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}

		rxlev, err := strconv.Atoi(values["Rxlev"])
		if err != nil {
			return nil, &ParseError{Command: cmd.Text, Response: resp}
		}
		cells = append(cells, Cell{
			Operator: trimQuotes(values["Operator"]),
			MCC:      values["MCC"],
			MNC:      values["MNC"],
			RxLevel:  rxlev,
			CellID:   values["Cellid"],
		})
	}
	return cells, nil
}

func trimQuotes(s string) string {
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}
