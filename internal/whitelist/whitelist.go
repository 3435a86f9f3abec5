package whitelist

import (
	"strings"

	"github.com/mikey/phish-shield/internal/utils"
	"go.uber.org/zap"
)

// Checker decides whether a sender belongs to a trusted domain. Subdomains of a
// trusted domain are trusted too.
type Checker struct {
	domains map[string]struct{}
	logger  *zap.Logger
}

// NewChecker creates a new whitelist checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	set := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		d = strings.Trim(strings.ToLower(strings.TrimSpace(d)), ".")
		if d != "" {
			set[d] = struct{}{}
		}
	}

	if len(set) > 0 && logger != nil {
		logger.Info("Initialized trusted domains", zap.Int("domains", len(set)))
	}

	return &Checker{domains: set, logger: logger}
}

// IsWhitelisted reports whether from, a bare address or a From header value,
// is sent from a trusted domain
func (c *Checker) IsWhitelisted(from string) bool {
	if len(c.domains) == 0 {
		return false
	}

	addr := utils.SenderAddress(from)
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return false
	}
	domain := strings.ToLower(addr[at+1:])

	for d := domain; d != ""; {
		if _, ok := c.domains[d]; ok {
			if c.logger != nil {
				c.logger.Debug("Sender domain is trusted",
					zap.String("domain", domain),
					zap.String("matched", d))
			}
			return true
		}
		dot := strings.IndexByte(d, '.')
		if dot < 0 {
			break
		}
		d = d[dot+1:]
	}
	return false
}
