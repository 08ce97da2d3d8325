// Package identity derives a stable per-user key used to namespace credit
// accounting on shared deployments. The key is either the caller's public IP
// or a best-effort device fingerprint; it is never a security credential.
package identity

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/Chinu7077/Talk-to-Chinu/internal/utils"
	"github.com/Chinu7077/Talk-to-Chinu/pkg/logger"
)

const (
	defaultLookupURL = "https://api.ipify.org?format=json"

	// FallbackID is used when neither the IP lookup nor the fingerprint
	// can be computed. Degrading to a shared bucket beats failing.
	FallbackID = "device-anonymous"
)

type Resolver struct {
	lookupURL  string
	httpClient *http.Client

	mu       sync.Mutex
	resolved string
}

type Option func(*Resolver)

func WithLookupURL(url string) Option {
	return func(r *Resolver) { r.lookupURL = url }
}

func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.httpClient = c }
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		lookupURL:  defaultLookupURL,
		httpClient: utils.NewHTTPClient(5 * time.Second),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the identity string, memoized for the process lifetime
// after the first successful resolution.
func (r *Resolver) Resolve(ctx context.Context) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved != "" {
		return r.resolved
	}

	if ip, err := r.lookupIP(ctx); err == nil {
		r.resolved = "ip-" + ip
		logger.WithField("identity", r.resolved).Info("Resolved user identity by public IP")
		return r.resolved
	} else {
		logger.Warnf("IP lookup failed, falling back to device fingerprint: %v", err)
	}

	r.resolved = fingerprint()
	logger.WithField("identity", r.resolved).Info("Resolved user identity by device fingerprint")
	return r.resolved
}

// StorageKey namespaces a persistence key by the resolved identity.
func (r *Resolver) StorageKey(ctx context.Context, base string) string {
	return base + "-" + r.Resolve(ctx)
}

// Clear drops the memoized identity. Test hook.
func (r *Resolver) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved = ""
}

func (r *Resolver) lookupIP(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.lookupURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ip lookup returned status %d", resp.StatusCode)
	}

	var body struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.IP == "" {
		return "", fmt.Errorf("ip lookup returned empty address")
	}
	return body.IP, nil
}

// fingerprint hashes host characteristics into a 16-character device key,
// mirroring the canvas/user-agent/screen fingerprint of browser clients.
func fingerprint() string {
	hostname, err := os.Hostname()
	if err != nil {
		return FallbackID
	}

	seed := fmt.Sprintf("device-fingerprint|%s|%s|%s|%d",
		hostname, runtime.GOOS, runtime.GOARCH, runtime.NumCPU())

	sum := sha256.Sum256([]byte(seed))
	encoded := base64.StdEncoding.EncodeToString(sum[:])
	return "device-" + encoded[:16]
}
