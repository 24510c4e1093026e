// ABOUTME: Converts a raw communication log into a new lead payload
// ABOUTME: Pure function; the engine adds id, timestamps, and the assigned agent

package rotation

import (
	"strings"

	"github.com/2389/brokerage-crm/internal/store"
)

// ImportedLeadName is used when a log has neither a from nor a to address.
const ImportedLeadName = "Imported Lead"

// MaterializeLead derives a lead from a communication log.
//
// Name is the first non-empty of from/to. Email is whichever address contains
// "@" and phone whichever does not, preferring the from address for each.
// The returned lead has no ID, timestamps, or agent.
func MaterializeLead(log *store.CommunicationLog) *store.Lead {
	from := strings.TrimSpace(log.FromAddress)
	to := strings.TrimSpace(log.ToAddress)

	name := ImportedLeadName
	switch {
	case from != "":
		name = from
	case to != "":
		name = to
	}

	return &store.Lead{
		Name:   name,
		Email:  pickAddress(from, to, true),
		Phone:  pickAddress(from, to, false),
		Status: store.LeadStatusNew,
		Notes:  composeNotes(log, from, to),
		IsHot:  true,
	}
}

func pickAddress(from, to string, wantEmail bool) string {
	for _, addr := range []string{from, to} {
		if addr == "" {
			continue
		}
		if strings.Contains(addr, "@") == wantEmail {
			return addr
		}
	}
	return ""
}

func composeNotes(log *store.CommunicationLog, from, to string) string {
	lines := []string{"Imported from " + log.CommunicationType + " communication"}

	if s := strings.TrimSpace(log.Subject); s != "" {
		lines = append(lines, "Subject: "+s)
	}
	if b := strings.TrimSpace(log.Body); b != "" {
		lines = append(lines, "Message: "+b)
	}
	if log.Property != nil && log.Property.Address != "" {
		lines = append(lines, "Property: "+log.Property.Address)
	}
	if from != "" {
		lines = append(lines, "From: "+from)
	}
	if to != "" {
		lines = append(lines, "To: "+to)
	}

	return strings.Join(lines, "\n")
}
