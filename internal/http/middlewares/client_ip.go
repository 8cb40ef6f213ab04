package middlewares

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

const ctxClientIPKey ctxKey = "client_ip"

// TrustedProxies es la lista de peers cuyo X-Forwarded-For se acepta.
// El valor cero no confía en nadie.
type TrustedProxies struct {
	prefixes []netip.Prefix
}

// ParseTrustedProxies acepta IPs sueltas o CIDRs ("10.0.0.0/8", "127.0.0.1").
func ParseTrustedProxies(entries []string) (*TrustedProxies, error) {
	tp := &TrustedProxies{}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
			}
			tp.prefixes = append(tp.prefixes, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
		}
		a = a.Unmap()
		tp.prefixes = append(tp.prefixes, netip.PrefixFrom(a, a.BitLen()))
	}
	return tp, nil
}

func (tp *TrustedProxies) trusts(a netip.Addr) bool {
	if tp == nil || !a.IsValid() {
		return false
	}
	a = a.Unmap()
	for _, p := range tp.prefixes {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

// Resolve devuelve la IP del cliente. X-Forwarded-For solo cuenta si el peer
// directo es un proxy confiable; se recorre de derecha a izquierda y gana el
// primer hop que no es confiable.
func (tp *TrustedProxies) Resolve(r *http.Request) string {
	peer := remoteHost(r)
	addr, err := netip.ParseAddr(peer)
	if err != nil || !tp.trusts(addr) {
		return peer
	}

	hops := forwardedHops(r)
	for i := len(hops) - 1; i >= 0; i-- {
		h, err := netip.ParseAddr(hops[i])
		if err != nil {
			// basura en el header: no se puede seguir confiando hacia la izquierda
			return peer
		}
		if !tp.trusts(h) {
			return h.Unmap().String()
		}
		peer = h.Unmap().String()
	}
	return peer
}

func forwardedHops(r *http.Request) []string {
	var hops []string
	for _, v := range r.Header.Values("X-Forwarded-For") {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				hops = append(hops, part)
			}
		}
	}
	return hops
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// WithClientIP resuelve la IP del cliente una vez por request y la deja en el
// contexto para rate limiting, sesiones y logs.
func WithClientIP(tp *TrustedProxies) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := contextWithClientIP(r.Context(), tp.Resolve(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
