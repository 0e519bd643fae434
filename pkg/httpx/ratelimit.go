package httpx

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

// Profile is a token bucket refilled at Requests per Window, holding at most
// Burst tokens. Profiles guard routes that run before a caller is known;
// authenticated routes are limited per identity by WindowLimiter.
type Profile struct {
	Name     string
	Requests int
	Window   time.Duration
	Burst    int
}

var (
	// StrictLimit guards login and bootstrap.
	StrictLimit = ProfileFromEnv(Profile{Name: "strict", Requests: 5, Window: time.Minute, Burst: 5})

	// AccountLimit caps login attempts per email across all client addresses.
	AccountLimit = ProfileFromEnv(Profile{Name: "account", Requests: 10, Window: time.Minute, Burst: 10})

	// LenientLimit guards health probes.
	LenientLimit = ProfileFromEnv(Profile{Name: "lenient", Requests: 100, Window: time.Minute, Burst: 100})
)

// ProfileFromEnv overrides def from RATELIMIT_<NAME>_REQUESTS,
// RATELIMIT_<NAME>_WINDOW_SEC and RATELIMIT_<NAME>_BURST. Invalid or
// non-positive values are ignored.
func ProfileFromEnv(def Profile) Profile {
	prefix := "RATELIMIT_" + strings.ToUpper(def.Name) + "_"
	p := def
	if n, ok := positiveEnv(prefix + "REQUESTS"); ok {
		p.Requests = n
	}
	if n, ok := positiveEnv(prefix + "WINDOW_SEC"); ok {
		p.Window = time.Duration(n) * time.Second
	}
	if n, ok := positiveEnv(prefix + "BURST"); ok {
		p.Burst = n
	}
	return p
}

func positiveEnv(key string) (int, bool) {
	n, err := strconv.Atoi(os.Getenv(key))
	return n, err == nil && n > 0
}

// KeyFunc derives the bucket key of a request. An empty key skips limiting.
type KeyFunc func(*http.Request) string

// TrustedProxies are the peers whose X-Forwarded-For and X-Real-IP headers
// are believed. The zero value trusts no one.
type TrustedProxies []netip.Prefix

// ParseTrustedProxies reads a comma-separated list of CIDR prefixes or bare
// addresses.
func ParseTrustedProxies(list string) (TrustedProxies, error) {
	var out TrustedProxies
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", item, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", item, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// Contains reports whether addr is one of the trusted peers.
func (tp TrustedProxies) Contains(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range tp {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP is the peer address unless the peer is a trusted proxy, in which
// case the nearest untrusted X-Forwarded-For hop is used, then X-Real-IP.
// Header values that do not parse as an address are ignored.
func (tp TrustedProxies) ClientIP(r *http.Request) string {
	peer := peerHost(r)
	addr, err := netip.ParseAddr(peer)
	if err != nil || !tp.Contains(addr) {
		return peer
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		// Walk right to left: hops appended by our own proxies are skipped.
		for i := len(hops) - 1; i >= 0; i-- {
			hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			if !tp.Contains(hop) || i == 0 {
				return hop.Unmap().String()
			}
		}
	}
	if xri, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return xri.Unmap().String()
	}
	return peer
}

func peerHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// EmailField keys on a form field holding an email address, folded to lower
// case so that changing case does not buy a fresh bucket.
func EmailField(name string) KeyFunc {
	return func(r *http.Request) string {
		if err := r.ParseForm(); err != nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(r.PostFormValue(name)))
	}
}

// JoinKeys concatenates the non-empty keys of fns with "|".
func JoinKeys(fns ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(fns))
		for _, fn := range fns {
			if k := fn(r); k != "" {
				parts = append(parts, k)
			}
		}
		return strings.Join(parts, "|")
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Buckets holds one token bucket per key.
type Buckets struct {
	Now func() time.Time

	profile Profile
	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewBuckets returns an empty bucket set for p.
func NewBuckets(p Profile) *Buckets {
	return &Buckets{profile: p, buckets: make(map[string]*bucket)}
}

// Allow takes a token from key's bucket. When none is left it reports how
// long until the next token.
func (b *Buckets) Allow(key string) (bool, time.Duration) {
	now := time.Now()
	if b.Now != nil {
		now = b.Now()
	}

	b.mu.Lock()
	bk, ok := b.buckets[key]
	if !ok {
		every := rate.Every(b.profile.Window / time.Duration(max(b.profile.Requests, 1)))
		bk = &bucket{limiter: rate.NewLimiter(every, b.profile.Burst)}
		b.buckets[key] = bk
	}
	bk.lastSeen = now
	b.mu.Unlock()

	if bk.limiter.AllowN(now, 1) {
		return true, 0
	}
	r := bk.limiter.ReserveN(now, 1)
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return false, wait
}

// Sweep drops buckets idle for longer than the profile window as of now; a
// refilled bucket behaves like a new one. It returns the number removed.
func (b *Buckets) Sweep(now time.Time) int {
	cutoff := now.Add(-b.profile.Window)

	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for key, bk := range b.buckets {
		if bk.lastSeen.Before(cutoff) {
			delete(b.buckets, key)
			n++
		}
	}
	return n
}

// Len reports the number of tracked keys.
func (b *Buckets) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buckets)
}

// Guard limits requests per key with b. onLimited, if set, is called for
// every rejected request.
func Guard(b *Buckets, key KeyFunc, onLimited func(*http.Request)) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			ok, wait := b.Allow(k)
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			retry := max(int((wait+time.Second-1)/time.Second), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(b.profile.Requests))
			w.Header().Set("X-RateLimit-Window", b.profile.Window.String())

			slogx.FromContext(r.Context()).Warn("rate limit exceeded",
				"profile", b.profile.Name,
				"path", r.URL.Path,
				"retry_after", retry,
			)
			if onLimited != nil {
				onLimited(r)
			}
			WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "too many requests")
		})
	}
}
