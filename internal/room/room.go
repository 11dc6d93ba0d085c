// Package room names the third-party audio/video rooms calls are held in.
package room

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

type Provisioner struct {
	domain string
}

func NewProvisioner(domain string) *Provisioner {
	domain = strings.TrimSuffix(strings.TrimSpace(domain), "/")
	if domain == "" {
		domain = "meet.jit.si"
	}
	return &Provisioner{domain: domain}
}

// NewRoomID returns crm-<userID>-<8 hex chars>. The suffix comes from a
// random UUID, so two calls by the same user never share a room.
func (p *Provisioner) NewRoomID(userID string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("crm-%s-%s", userID, suffix)
}

func (p *Provisioner) JoinURL(roomID string) string {
	if roomID == "" {
		return ""
	}
	return (&url.URL{Scheme: "https", Host: p.domain, Path: "/" + roomID}).String()
}
