package wfdmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace = "miracled"
	subsystem = "wfd"
)

// Label names for WFD metrics.
const (
	labelLink      = "link"
	labelMessageID = "message_id"
	labelEventKind = "event_kind"
)

// -------------------------------------------------------------------------
// Collector — Prometheus WFD Metrics
// -------------------------------------------------------------------------

// Collector holds all miracled Prometheus metrics.
//
//   - Session/peer/group gauges track currently active state.
//   - RTSP message counters track M1-M16 traffic per link.
//   - Supplicant restarts and DHCP lease events flag instability.
type Collector struct {
	// Sessions tracks the number of currently active WFD sessions.
	Sessions *prometheus.GaugeVec

	// Peers tracks the number of discovered P2P peers per link.
	Peers *prometheus.GaugeVec

	// Groups tracks whether a link currently has a formed P2P group (0 or 1).
	Groups *prometheus.GaugeVec

	// RTSPSent counts RTSP messages transmitted, labeled by message id.
	RTSPSent *prometheus.CounterVec

	// RTSPReceived counts RTSP messages received, labeled by message id.
	RTSPReceived *prometheus.CounterVec

	// SupplicantRestarts counts supplicant child-process restarts per link.
	SupplicantRestarts *prometheus.CounterVec

	// DHCPLeaseEvents counts DHCP helper lease events, labeled by kind
	// (lease_group, lease_go, lease_renew).
	DHCPLeaseEvents *prometheus.CounterVec
}

// NewCollector creates a Collector with all miracled metrics registered
// against reg. If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.Sessions,
		c.Peers,
		c.Groups,
		c.RTSPSent,
		c.RTSPReceived,
		c.SupplicantRestarts,
		c.DHCPLeaseEvents,
	)

	return c
}

// newMetrics creates all Prometheus metric vectors without registering them.
func newMetrics() *Collector {
	linkLabels := []string{labelLink}
	messageLabels := []string{labelLink, labelMessageID}
	dhcpLabels := []string{labelLink, labelEventKind}

	return &Collector{
		Sessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions",
			Help:      "Number of currently active WFD sessions.",
		}, linkLabels),

		Peers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "peers",
			Help:      "Number of discovered P2P peers per link.",
		}, linkLabels),

		Groups: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "groups",
			Help:      "Whether a link currently has a formed P2P group (0 or 1).",
		}, linkLabels),

		RTSPSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rtsp_messages_sent_total",
			Help:      "Total RTSP messages transmitted, by message id.",
		}, messageLabels),

		RTSPReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rtsp_messages_received_total",
			Help:      "Total RTSP messages received, by message id.",
		}, messageLabels),

		SupplicantRestarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "supplicant_restarts_total",
			Help:      "Total supplicant child-process restarts per link.",
		}, linkLabels),

		DHCPLeaseEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dhcp_lease_events_total",
			Help:      "Total DHCP helper lease events, by kind.",
		}, dhcpLabels),
	}
}

// -------------------------------------------------------------------------
// Session/Peer/Group Gauges
// -------------------------------------------------------------------------

// RegisterSession increments the active sessions gauge for the given link.
func (c *Collector) RegisterSession(link string) {
	c.Sessions.WithLabelValues(link).Inc()
}

// UnregisterSession decrements the active sessions gauge for the given link.
func (c *Collector) UnregisterSession(link string) {
	c.Sessions.WithLabelValues(link).Dec()
}

// SetPeerCount sets the discovered-peer gauge for the given link.
func (c *Collector) SetPeerCount(link string, count int) {
	c.Peers.WithLabelValues(link).Set(float64(count))
}

// SetGroupFormed sets the group-formed gauge for the given link.
func (c *Collector) SetGroupFormed(link string, formed bool) {
	v := 0.0
	if formed {
		v = 1.0
	}
	c.Groups.WithLabelValues(link).Set(v)
}

// -------------------------------------------------------------------------
// RTSP Traffic
// -------------------------------------------------------------------------

// IncRTSPSent increments the sent-messages counter for the given link and
// message id.
func (c *Collector) IncRTSPSent(link, messageID string) {
	c.RTSPSent.WithLabelValues(link, messageID).Inc()
}

// IncRTSPReceived increments the received-messages counter for the given
// link and message id.
func (c *Collector) IncRTSPReceived(link, messageID string) {
	c.RTSPReceived.WithLabelValues(link, messageID).Inc()
}

// -------------------------------------------------------------------------
// Child Process Stability
// -------------------------------------------------------------------------

// IncSupplicantRestart increments the supplicant restart counter for the
// given link.
func (c *Collector) IncSupplicantRestart(link string) {
	c.SupplicantRestarts.WithLabelValues(link).Inc()
}

// IncDHCPLeaseEvent increments the DHCP lease event counter for the given
// link and event kind.
func (c *Collector) IncDHCPLeaseEvent(link, kind string) {
	c.DHCPLeaseEvents.WithLabelValues(link, kind).Inc()
}
