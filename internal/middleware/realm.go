// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"strings"

	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-video-call-service/internal/notes"
)

// RealmResolver looks up the tenant realm serving a request host. A nil
// realm with a nil error means the host maps to no realm.
type RealmResolver interface {
	ResolveRealm(host string) (*domain.Realm, error)
}

// StaticRealmResolver resolves realms from a fixed subdomain map. The host
// system resolves realms from its database; this covers single-node runs
// and tests.
type StaticRealmResolver struct {
	Realms map[string]*domain.Realm
}

// ResolveRealm resolves the realm for the first label of the host name.
func (s *StaticRealmResolver) ResolveRealm(host string) (*domain.Realm, error) {
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	subdomain, _, _ := strings.Cut(host, ".")
	return s.Realms[subdomain], nil
}

// RealmBySubdomain looks a realm up directly by subdomain.
func (s *StaticRealmResolver) RealmBySubdomain(subdomain string) (*domain.Realm, bool) {
	realm, ok := s.Realms[subdomain]
	return realm, ok
}

// RealmMiddleware resolves the request's realm and records the outcome on
// the notes, so downstream code can distinguish "no realm" from "never
// looked". Resolution failures leave the realm unfetched.
func RealmMiddleware(resolver RealmResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver != nil {
				realm, err := resolver.ResolveRealm(r.Host)
				if err == nil {
					notes.FromRequest(r).SetRealm(realm)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
