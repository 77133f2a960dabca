package wfd

import (
	"testing"

	"github.com/miraclecast/miraclecast/internal/rtsp"
)

func TestClassifySetParameterVariants(t *testing.T) {
	tests := []struct {
		body string
		want MessageID
	}{
		{"wfd_trigger_method: SETUP\r\n", M5Trigger},
		{"wfd_route: primary\r\n", M10SetRoute},
		{"wfd_connector_type: 01\r\n", M11SetConnectorType},
		{"wfd_standby: true\r\n", M12SetStandby},
		{"wfd_idr_request\r\n", M13RequestIDR}, // bare key, no colon
		{"wfd_uibc_capability: input_category_list=GENERIC\r\n", M14EstablishUIBC},
		{"wfd_uibc_setting: enable\r\n", M15EnableUIBC},
		{"wfd_video_formats: 00 00 02 10\r\n", M4SetParameter},
	}

	for _, tc := range tests {
		m := rtsp.NewRequest("SET_PARAMETER", "rtsp://localhost/wfd1.0")
		m.SetBody([]byte(tc.body))
		got := Classify(RoleSource, m)
		if got != tc.want {
			t.Errorf("body %q: Classify() = %v, want %v", tc.body, got, tc.want)
		}
	}
}

func TestClassifyKeepaliveVsGetParameter(t *testing.T) {
	empty := rtsp.NewRequest("GET_PARAMETER", "rtsp://localhost/wfd1.0")
	if got := Classify(RoleSink, empty); got != M16Keepalive {
		t.Fatalf("empty GET_PARAMETER: Classify() = %v, want M16Keepalive", got)
	}

	withBody := rtsp.NewRequest("GET_PARAMETER", "rtsp://localhost/wfd1.0")
	withBody.SetBody([]byte("wfd_audio_codecs\r\n"))
	if got := Classify(RoleSink, withBody); got != M3GetParameter {
		t.Fatalf("GET_PARAMETER with body: Classify() = %v, want M3GetParameter", got)
	}
}

func TestClassifyIgnoresReplies(t *testing.T) {
	reply := rtsp.NewReply(rtsp.StatusOK, "")
	if got := Classify(RoleSink, reply); got != MessageUnknown {
		t.Fatalf("Classify(reply) = %v, want MessageUnknown", got)
	}
}

func TestClassifyOptionsByRole(t *testing.T) {
	options := rtsp.NewRequest("OPTIONS", "*")
	if got := Classify(RoleSource, options); got != M2RequestSrcOptions {
		t.Fatalf("Source receiving OPTIONS: Classify() = %v, want M2RequestSrcOptions", got)
	}
	if got := Classify(RoleSink, options); got != M1RequestSinkOptions {
		t.Fatalf("Sink receiving OPTIONS: Classify() = %v, want M1RequestSinkOptions", got)
	}
}
