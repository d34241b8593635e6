package at

import "fmt"

const (
	// Terminal Control
	CRLF = "\r\n"

	// Response Codes
	OK             = "OK"
	Error          = "ERROR"
	CMEErrorPrefix = "+CME ERROR"

	// Download is the prompt the device sends when it is ready to
	// receive literal payload bytes (AT+HTTPDATA).
	Download = "DOWNLOAD"

	// HTTPActionPrefix terminates AT+HTTPACTION: the action command is
	// acknowledged with OK, but the response we care about is the
	// +HTTPACTION status report that follows.
	HTTPActionPrefix = "+HTTPACTION"

	// HTTPReadPrefix marks the length-header lines of AT+HTTPREAD.
	// They precede the payload and are not part of it.
	HTTPReadPrefix = "+HTTPREAD:"
)

// Command is a single AT command together with its response framing:
// how many empty-read ticks to wait before giving up, and which token
// ends the response. Commands are immutable values built per call.
type Command struct {
	// Text is the command line sent to the device, without line terminator.
	Text string
	// Timeout is the budget of consecutive empty read polls (one tick each).
	Timeout int
	// End is the token that terminates the response. Usually "OK", but
	// some commands declare their own (e.g. DOWNLOAD, +HTTPACTION).
	End string
}

// Command constructors. Strings, timeouts and terminators follow the
// SIM800 series AT command manual (v1.09).

// EnableErrorCodes enables verbose mobile-equipment error reports.
func EnableErrorCodes() Command {
	return Command{Text: "AT+CMEE=2", Timeout: 3, End: OK}
}

// ProductInfo requests product identification information.
func ProductInfo() Command {
	return Command{Text: "ATI", Timeout: 10, End: OK}
}

// FirmwareRevision requests the software release identification.
func FirmwareRevision() Command {
	return Command{Text: "AT+CGMR", Timeout: 3, End: OK}
}

// SIMInserted queries whether a SIM card is inserted.
func SIMInserted() Command {
	return Command{Text: "AT+CSMINS?", Timeout: 3, End: OK}
}

// NetworkRegistration queries the network registration status.
func NetworkRegistration() Command {
	return Command{Text: "AT+CREG?", Timeout: 3, End: OK}
}

// BatteryCharge queries the battery charge state.
func BatteryCharge() Command {
	return Command{Text: "AT+CBC", Timeout: 3, End: OK}
}

// ScanOperators scans for available network operators. Slow.
func ScanOperators() Command {
	return Command{Text: "AT+COPS=?", Timeout: 60, End: OK}
}

// CurrentOperator queries the currently selected operator.
func CurrentOperator() Command {
	return Command{Text: "AT+COPS?", Timeout: 3, End: OK}
}

// SignalQuality requests a signal quality report.
func SignalQuality() Command {
	return Command{Text: "AT+CSQ", Timeout: 3, End: OK}
}

// ServiceProviderName reads the service provider name from the SIM.
func ServiceProviderName() Command {
	return Command{Text: "AT+CSPN?", Timeout: 3, End: OK}
}

// CellScan performs a scan of nearby cell towers.
func CellScan() Command {
	return Command{Text: "AT+CNETSCAN", Timeout: 45, End: OK}
}

// SetBearerGPRS selects GPRS as the bearer connection type.
func SetBearerGPRS() Command {
	return Command{Text: `AT+SAPBR=3,1,"CONTYPE","GPRS"`, Timeout: 3, End: OK}
}

// SetBearerAPN sets the bearer access point name.
func SetBearerAPN(apn string) Command {
	return Command{Text: fmt.Sprintf(`AT+SAPBR=3,1,"APN","%s"`, apn), Timeout: 3, End: OK}
}

// SetBearerUsername sets the bearer username.
func SetBearerUsername(user string) Command {
	return Command{Text: fmt.Sprintf(`AT+SAPBR=3,1,"USER","%s"`, user), Timeout: 3, End: OK}
}

// SetBearerPassword sets the bearer password.
func SetBearerPassword(pass string) Command {
	return Command{Text: fmt.Sprintf(`AT+SAPBR=3,1,"PWD","%s"`, pass), Timeout: 3, End: OK}
}

// OpenBearer opens the GPRS bearer context.
func OpenBearer() Command {
	return Command{Text: "AT+SAPBR=1,1", Timeout: 3, End: OK}
}

// CloseBearer closes the GPRS bearer context.
func CloseBearer() Command {
	return Command{Text: "AT+SAPBR=0,1", Timeout: 3, End: OK}
}

// BearerStatus queries the bearer status, including the assigned IP.
func BearerStatus() Command {
	return Command{Text: "AT+SAPBR=2,1", Timeout: 30, End: OK}
}

// InitHTTP initializes the HTTP service.
func InitHTTP() Command {
	return Command{Text: "AT+HTTPINIT", Timeout: 3, End: OK}
}

// CloseHTTP terminates the HTTP service.
func CloseHTTP() Command {
	return Command{Text: "AT+HTTPTERM", Timeout: 3, End: OK}
}

// SetHTTPURL sets the request URL.
func SetHTTPURL(url string) Command {
	return Command{Text: fmt.Sprintf(`AT+HTTPPARA="URL","%s"`, url), Timeout: 3, End: OK}
}

// SetHTTPCID binds the HTTP service to a bearer profile.
func SetHTTPCID(cid int) Command {
	return Command{Text: fmt.Sprintf(`AT+HTTPPARA="CID",%d`, cid), Timeout: 3, End: OK}
}

// SetHTTPContent sets the request content type.
func SetHTTPContent(contentType string) Command {
	return Command{Text: fmt.Sprintf(`AT+HTTPPARA="CONTENT","%s"`, contentType), Timeout: 3, End: OK}
}

// HTTPActionGET issues the HTTP GET action.
func HTTPActionGET() Command {
	return Command{Text: "AT+HTTPACTION=0", Timeout: 30, End: HTTPActionPrefix}
}

// HTTPActionPOST issues the HTTP POST action.
func HTTPActionPOST() Command {
	return Command{Text: "AT+HTTPACTION=1", Timeout: 30, End: HTTPActionPrefix}
}

// HTTPData declares the length of the POST body. The device answers
// with DOWNLOAD and then expects the literal body bytes.
func HTTPData(length int) Command {
	return Command{Text: fmt.Sprintf("AT+HTTPDATA=%d,5000", length), Timeout: 3, End: Download}
}

// DumpData sends raw payload bytes as if they were a command line.
// Used for the POST body after HTTPData.
func DumpData(data string) Command {
	return Command{Text: data, Timeout: 3, End: OK}
}

// HTTPRead reads the response body of the last HTTP action.
func HTTPRead() Command {
	return Command{Text: "AT+HTTPREAD", Timeout: 30, End: OK}
}

// CheckSSL queries SSL capability.
func CheckSSL() Command {
	return Command{Text: "AT+HTTPSSL?", Timeout: 3, End: OK}
}

// SetSSL enables or disables SSL for HTTP sessions.
func SetSSL(enabled bool) Command {
	v := 0
	if enabled {
		v = 1
	}
	return Command{Text: fmt.Sprintf("AT+HTTPSSL=%d", v), Timeout: 3, End: OK}
}
