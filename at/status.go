package at

// httpActionStatus maps HTTPACTION status codes to their descriptions.
// Codes 000 and 6xx are SIM800-specific; the rest are plain HTTP.
var httpActionStatus = map[int]string{
	0:   "Unknown HTTPACTION error",
	100: "Continue",
	101: "Switching Protocols",
	200: "OK",
	201: "Created",
	202: "Accepted",
	203: "Non-Authoritative Information",
	204: "No Content",
	205: "Reset Content",
	206: "Partial Content",
	300: "Multiple Choices",
	301: "Moved Permanently",
	302: "Found",
	303: "See Other",
	304: "Not Modified",
	305: "Use Proxy",
	307: "Temporary Redirect",
	400: "Bad Request",
	401: "Unauthorized",
	402: "Payment Required",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	407: "Proxy Authentication Required",
	408: "Request Time-out",
	409: "Conflict",
	410: "Gone",
	411: "Length Required",
	412: "Precondition Failed",
	413: "Request Entity Too Large",
	414: "Request-URI Too Large",
	415: "Unsupported Media Type",
	416: "Requested range not satisfiable",
	417: "Expectation Failed",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Time-out",
	505: "HTTP Version not supported",
	600: "Not HTTP PDU",
	601: "Network Error",
	602: "No memory",
	603: "DNS Error",
	604: "Stack Busy",
	605: "SSL failed to establish channels",
	606: "SSL fatal alert message with immediate connection termination",
}

// StatusText returns the description for an HTTPACTION status code,
// or "Unknown" for codes not in the table.
func StatusText(code int) string {
	if text, ok := httpActionStatus[code]; ok {
		return text
	}
	return "Unknown"
}
