package config

import (
	"net/netip"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type SecurityConfig interface {
	GetMaxLoginAttempts() int
	GetLockDuration() time.Duration
	GetBcryptCost() int
	GetPasswordResetTTL() time.Duration
	GetEmailVerificationTTL() time.Duration
	GetTrialPeriod() time.Duration
	GetEnableRateLimiting() bool
	GetThrottleRPS() int
	GetThrottleBurst() int
	GetTrustedProxies() (TrustedProxies, error)
}

// TrustedProxies are the peers whose X-Forwarded-For header is believed.
type TrustedProxies []netip.Prefix

func (t TrustedProxies) Contains(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range t {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetMaxLoginAttempts() int {
	return GetEnvInt("MAX_LOGIN_ATTEMPTS", 5)
}

func (Security) GetLockDuration() time.Duration {
	return GetEnvDuration("LOCK_DURATION", 15*time.Minute)
}

func (Security) GetBcryptCost() int {
	return GetEnvInt("BCRYPT_COST", 12)
}

func (Security) GetPasswordResetTTL() time.Duration {
	return GetEnvDuration("PASSWORD_RESET_TTL", time.Hour)
}

func (Security) GetEmailVerificationTTL() time.Duration {
	return GetEnvDuration("EMAIL_VERIFICATION_TTL", 24*time.Hour)
}

func (Security) GetTrialPeriod() time.Duration {
	return GetEnvDuration("TRIAL_PERIOD", 14*24*time.Hour)
}

func (Security) GetEnableRateLimiting() bool {
	return GetEnvBool("ENABLE_RATE_LIMITING", true)
}

// GetThrottleRPS is the global per-IP request rate; 0 disables the throttle.
func (Security) GetThrottleRPS() int {
	return GetEnvInt("THROTTLE_RPS", 20)
}

func (Security) GetThrottleBurst() int {
	return GetEnvInt("THROTTLE_BURST", 40)
}

// GetTrustedProxies reads TRUSTED_PROXIES, a comma separated list of IPs or CIDRs.
// Empty means no forwarding header is trusted.
func (Security) GetTrustedProxies() (TrustedProxies, error) {
	var proxies TrustedProxies
	for _, entry := range strings.Split(GetEnv("TRUSTED_PROXIES", ""), ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, errors.Wrapf(err, "TRUSTED_PROXIES entry %q", entry)
			}
			proxies = append(proxies, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, errors.Wrapf(err, "TRUSTED_PROXIES entry %q", entry)
		}
		addr = addr.Unmap()
		proxies = append(proxies, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return proxies, nil
}
