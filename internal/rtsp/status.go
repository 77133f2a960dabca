package rtsp

import "fmt"

// Status codes from RFC 2326 Section 11, carried verbatim so the transport
// can serialize and recognize the full reply vocabulary exchanged with
// third-party Sinks/Sources, not only the subset M1-M16 emits itself.
const (
	StatusContinue uint = 100

	StatusOK                uint = 200
	StatusCreated           uint = 201
	StatusLowOnStorageSpace uint = 250

	StatusMultipleChoices   uint = 300
	StatusMovedPermanently  uint = 301
	StatusMovedTemporarily  uint = 302
	StatusSeeOther          uint = 303
	StatusNotModified       uint = 304
	StatusUseProxy          uint = 305

	StatusBadRequest                  uint = 400
	StatusUnauthorized                uint = 401
	StatusPaymentRequired             uint = 402
	StatusForbidden                   uint = 403
	StatusNotFound                    uint = 404
	StatusMethodNotAllowed            uint = 405
	StatusNotAcceptable               uint = 406
	StatusProxyAuthenticationRequired uint = 407
	StatusRequestTimeout              uint = 408
	StatusGone                        uint = 410
	StatusLengthRequired              uint = 411
	StatusPreconditionFailed          uint = 412
	StatusRequestEntityTooLarge       uint = 413
	StatusRequestURITooLarge          uint = 414
	StatusUnsupportedMediaType        uint = 415

	StatusParameterNotUnderstood          uint = 451
	StatusConferenceNotFound              uint = 452
	StatusNotEnoughBandwidth              uint = 453
	StatusSessionNotFound                 uint = 454
	StatusMethodNotValidInThisState       uint = 455
	StatusHeaderFieldNotValidForResource  uint = 456
	StatusInvalidRange                    uint = 457
	StatusParameterIsReadOnly             uint = 458
	StatusAggregateOperationNotAllowed    uint = 459
	StatusOnlyAggregateOperationAllowed   uint = 460
	StatusUnsupportedTransport            uint = 461
	StatusDestinationUnreachable          uint = 462

	StatusInternalServerError     uint = 500
	StatusNotImplemented          uint = 501
	StatusBadGateway              uint = 502
	StatusServiceUnavailable      uint = 503
	StatusGatewayTimeout          uint = 504
	StatusRTSPVersionNotSupported uint = 505

	StatusOptionNotSupported uint = 551
)

// reasonPhrases maps each defined status code to its standard reason
// phrase, used when a caller builds a reply without specifying one.
var reasonPhrases = map[uint]string{
	StatusContinue:                       "Continue",
	StatusOK:                             "OK",
	StatusCreated:                        "Created",
	StatusLowOnStorageSpace:              "Low on Storage Space",
	StatusMultipleChoices:                "Multiple Choices",
	StatusMovedPermanently:               "Moved Permanently",
	StatusMovedTemporarily:               "Moved Temporarily",
	StatusSeeOther:                       "See Other",
	StatusNotModified:                    "Not Modified",
	StatusUseProxy:                       "Use Proxy",
	StatusBadRequest:                     "Bad Request",
	StatusUnauthorized:                   "Unauthorized",
	StatusPaymentRequired:                "Payment Required",
	StatusForbidden:                      "Forbidden",
	StatusNotFound:                       "Not Found",
	StatusMethodNotAllowed:               "Method Not Allowed",
	StatusNotAcceptable:                  "Not Acceptable",
	StatusProxyAuthenticationRequired:    "Proxy Authentication Required",
	StatusRequestTimeout:                 "Request Timeout",
	StatusGone:                           "Gone",
	StatusLengthRequired:                 "Length Required",
	StatusPreconditionFailed:             "Precondition Failed",
	StatusRequestEntityTooLarge:          "Request Entity Too Large",
	StatusRequestURITooLarge:             "Request-URI Too Large",
	StatusUnsupportedMediaType:           "Unsupported Media Type",
	StatusParameterNotUnderstood:         "Parameter Not Understood",
	StatusConferenceNotFound:             "Conference Not Found",
	StatusNotEnoughBandwidth:             "Not Enough Bandwidth",
	StatusSessionNotFound:                "Session Not Found",
	StatusMethodNotValidInThisState:      "Method Not Valid in This State",
	StatusHeaderFieldNotValidForResource: "Header Field Not Valid for Resource",
	StatusInvalidRange:                   "Invalid Range",
	StatusParameterIsReadOnly:            "Parameter Is Read-Only",
	StatusAggregateOperationNotAllowed:   "Aggregate Operation Not Allowed",
	StatusOnlyAggregateOperationAllowed:  "Only Aggregate Operation Allowed",
	StatusUnsupportedTransport:           "Unsupported Transport",
	StatusDestinationUnreachable:         "Destination Unreachable",
	StatusInternalServerError:            "Internal Server Error",
	StatusNotImplemented:                 "Not Implemented",
	StatusBadGateway:                     "Bad Gateway",
	StatusServiceUnavailable:             "Service Unavailable",
	StatusGatewayTimeout:                 "Gateway Timeout",
	StatusRTSPVersionNotSupported:        "RTSP Version Not Supported",
	StatusOptionNotSupported:             "Option Not Supported",
}

// ReasonPhrase returns the standard reason phrase for code, or a generic
// "Unknown(<code>)" string if code is not a recognized status.
func ReasonPhrase(code uint) string {
	if p, ok := reasonPhrases[code]; ok {
		return p
	}
	return fmt.Sprintf(unknownFmt, code)
}
