package wfd

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/miraclecast/miraclecast/internal/rtsp"
)

// Classify maps an inbound RTSP request to its Miracast message id. Replies
// are classified by the MessageID recorded against the outbound request's
// CSeq rather than through this function; Classify only inspects requests. role
// disambiguates OPTIONS: a Source receiving OPTIONS is being asked M2 by
// its Sink, while a Sink receiving OPTIONS is being asked M1 by its Source.
func Classify(role Role, m *rtsp.Message) MessageID {
	if m.Type() != rtsp.TypeRequest {
		return MessageUnknown
	}

	switch m.Method() {
	case "OPTIONS":
		if role == RoleSource {
			return M2RequestSrcOptions
		}
		return M1RequestSinkOptions
	case "GET_PARAMETER":
		if len(m.Body()) == 0 {
			return M16Keepalive
		}
		return M3GetParameter
	case "SET_PARAMETER":
		return classifySetParameter(m.Body())
	case "SETUP":
		return M6Setup
	case "PLAY":
		return M7Play
	case "TEARDOWN":
		return M8Teardown
	case "PAUSE":
		return M9Pause
	default:
		return MessageUnknown
	}
}

// classifySetParameter inspects the wfd_* body keys of a SET_PARAMETER
// request to tell M4-M5 and M10-M15 apart; all eight share the SET_PARAMETER
// method and are distinguished only by body content (original_source's
// wfd-session.c does the same line-oriented inspection).
func classifySetParameter(body []byte) MessageID {
	params := parseBodyParams(body)

	switch {
	case has(params, paramTrigger):
		return M5Trigger
	case has(params, paramRoute):
		return M10SetRoute
	case has(params, paramConnectorType):
		return M11SetConnectorType
	case has(params, paramStandby):
		return M12SetStandby
	case has(params, paramIDRRequest):
		return M13RequestIDR
	case has(params, paramUIBCCapability):
		return M14EstablishUIBC
	case has(params, paramUIBCSetting):
		return M15EnableUIBC
	default:
		return M4SetParameter
	}
}

// parseBodyParams parses an RTSP body of "key: value" lines (the
// wfd_*-over-text/parameters convention Miracast uses for SET_PARAMETER
// and GET_PARAMETER bodies) into a map. A line without a colon, such as
// a bare "wfd_idr_request", is recorded as a key with an empty value.
func parseBodyParams(body []byte) map[string]string {
	out := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			out[line] = ""
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		out[key] = val
	}
	return out
}

func has(params map[string]string, key wfdParameter) bool {
	_, ok := params[string(key)]
	return ok
}
