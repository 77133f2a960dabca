// Package commands implements the miraclectl CLI commands.
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

// errUnsupportedFormat is returned when the requested output format is not supported.
var errUnsupportedFormat = errors.New("unsupported output format")

// linkRow mirrors the positional D-Bus struct internal/facade.linkSummary
// marshals: ID, Name, PeerCount, HasGroup.
type linkRow struct {
	ID        string
	Name      string
	PeerCount int
	HasGroup  bool
}

// peerRow mirrors internal/facade.peerSummary: ID, Name, Address.
type peerRow struct {
	ID      string
	Name    string
	Address string
}

func formatLinks(links []linkRow, format string) (string, error) {
	switch format {
	case formatJSON:
		b, err := json.MarshalIndent(links, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal links: %w", err)
		}
		return string(b) + "\n", nil
	case formatTable:
		return formatLinksTable(links), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatLinksTable(links []linkRow) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPEERS\tGROUP")

	for _, l := range links {
		fmt.Fprintf(w, "%s\t%s\t%d\t%v\n", l.ID, l.Name, l.PeerCount, l.HasGroup)
	}

	w.Flush() //nolint:errcheck // writing to a strings.Builder never fails
	return buf.String()
}

func formatPeers(peers []peerRow, format string) (string, error) {
	switch format {
	case formatJSON:
		b, err := json.MarshalIndent(peers, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal peers: %w", err)
		}
		return string(b) + "\n", nil
	case formatTable:
		return formatPeersTable(peers), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatPeersTable(peers []peerRow) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tADDRESS")

	for _, p := range peers {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Name, p.Address)
	}

	w.Flush() //nolint:errcheck // writing to a strings.Builder never fails
	return buf.String()
}
